// Package report summarizes closed trades into performance statistics.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/aliirezaaa/trade-bot/internal/broker"
)

// Summary aggregates the outcome of a finished run. ProfitFactor is +Inf
// when there are winners and no losers, and zero when there are no winners.
type Summary struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	GrossProfit    float64 `json:"gross_profit"`
	GrossLoss      float64 `json:"gross_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	NetPnL         float64 `json:"net_pnl"`
	NetPnLPercent  float64 `json:"net_pnl_percent"`
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
}

// Summarize computes the statistics over all closed positions. Break-even
// trades count toward the total but neither as winners nor losers.
func Summarize(trades []broker.Position, acct broker.Account) Summary {
	s := Summary{
		TotalTrades:    len(trades),
		InitialBalance: acct.InitialBalance,
		FinalBalance:   acct.Balance,
	}
	for _, p := range trades {
		switch {
		case p.RealizedPnL > 0:
			s.WinningTrades++
			s.GrossProfit += p.RealizedPnL
		case p.RealizedPnL < 0:
			s.LosingTrades++
			s.GrossLoss += -p.RealizedPnL
		}
		s.NetPnL += p.RealizedPnL
	}
	if s.TotalTrades > 0 {
		s.WinRate = 100 * float64(s.WinningTrades) / float64(s.TotalTrades)
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	if acct.InitialBalance > 0 {
		s.NetPnLPercent = 100 * s.NetPnL / acct.InitialBalance
	}
	return s
}

// String renders the summary for the console.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("==== Backtest Results ====\n")
	if s.TotalTrades == 0 {
		b.WriteString("No trades were executed.\n")
		fmt.Fprintf(&b, "Final balance:  %.2f\n", s.FinalBalance)
		return b.String()
	}
	fmt.Fprintf(&b, "Total trades:   %d\n", s.TotalTrades)
	fmt.Fprintf(&b, "Winners/Losers: %d/%d\n", s.WinningTrades, s.LosingTrades)
	fmt.Fprintf(&b, "Win rate:       %.2f%%\n", s.WinRate)
	if math.IsInf(s.ProfitFactor, 1) {
		b.WriteString("Profit factor:  inf\n")
	} else {
		fmt.Fprintf(&b, "Profit factor:  %.2f\n", s.ProfitFactor)
	}
	fmt.Fprintf(&b, "Net PnL:        %.2f (%.2f%%)\n", s.NetPnL, s.NetPnLPercent)
	fmt.Fprintf(&b, "Final balance:  %.2f\n", s.FinalBalance)
	return b.String()
}
