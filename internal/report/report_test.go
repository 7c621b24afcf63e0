package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aliirezaaa/trade-bot/internal/broker"
)

func acct(initial, final float64) broker.Account {
	return broker.Account{InitialBalance: initial, Balance: final}
}

func TestSummarizeMixedOutcomes(t *testing.T) {
	trades := []broker.Position{
		{RealizedPnL: 200},
		{RealizedPnL: -50},
		{RealizedPnL: 100},
		{RealizedPnL: -150},
	}
	s := Summarize(trades, acct(10000, 10100))

	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.Equal(t, 2, s.LosingTrades)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	assert.InDelta(t, 300.0, s.GrossProfit, 1e-9)
	assert.InDelta(t, 200.0, s.GrossLoss, 1e-9)
	assert.InDelta(t, 1.5, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 100.0, s.NetPnL, 1e-9)
	assert.InDelta(t, 1.0, s.NetPnLPercent, 1e-9)
}

func TestSummarizeNoLossesHasInfiniteProfitFactor(t *testing.T) {
	s := Summarize([]broker.Position{{RealizedPnL: 80}}, acct(1000, 1080))
	assert.True(t, math.IsInf(s.ProfitFactor, 1))
	assert.InDelta(t, 100.0, s.WinRate, 1e-9)
}

func TestSummarizeNoTrades(t *testing.T) {
	s := Summarize(nil, acct(1000, 1000))
	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.ProfitFactor)
	assert.Contains(t, s.String(), "No trades were executed")
}

func TestSummarizeBreakEvenTradeCountsNeitherSide(t *testing.T) {
	s := Summarize([]broker.Position{{RealizedPnL: 0}}, acct(1000, 1000))
	assert.Equal(t, 1, s.TotalTrades)
	assert.Zero(t, s.WinningTrades)
	assert.Zero(t, s.LosingTrades)
	assert.Zero(t, s.WinRate)
}

func TestStringRendersCoreFields(t *testing.T) {
	s := Summarize([]broker.Position{{RealizedPnL: 200}, {RealizedPnL: -100}}, acct(10000, 10100))
	out := s.String()
	assert.True(t, strings.Contains(out, "Total trades:   2"))
	assert.Contains(t, out, "Win rate:       50.00%")
	assert.Contains(t, out, "Profit factor:  2.00")
}
