package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, price float64) []candle.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]candle.Candle, n)
	for i := range out {
		out[i] = candle.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Symbol:    "EUR-USD",
			Timeframe: "1m",
			Source:    "test",
		}
	}
	return out
}

func TestCalculateEMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	ema := CalculateEMA(values, 3)
	require.Len(t, ema, 5)

	assert.True(t, math.IsNaN(ema[0]))
	assert.True(t, math.IsNaN(ema[1]))
	// Seeded with SMA(1,2,3) = 2
	assert.InDelta(t, 2.0, ema[2], 1e-9)
	// k = 2/(3+1) = 0.5
	assert.InDelta(t, 3.0, ema[3], 1e-9) // 4*0.5 + 2*0.5
	assert.InDelta(t, 4.0, ema[4], 1e-9) // 5*0.5 + 3*0.5
}

func TestCalculateEMAInsufficientData(t *testing.T) {
	assert.Nil(t, CalculateEMA([]float64{1, 2}, 3))
	assert.Nil(t, CalculateEMA([]float64{1, 2, 3}, 0))
}

func TestCalculateEMAConstantInput(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 10
	}
	ema := CalculateEMA(values, 14)
	require.NotNil(t, ema)
	assert.InDelta(t, 10.0, ema[len(ema)-1], 1e-9)
}

func TestCalculateATRFlatSeries(t *testing.T) {
	// Zero-range bars have zero true range
	atr := CalculateATR(flatCandles(20, 100), 14)
	require.NotNil(t, atr)
	assert.True(t, math.IsNaN(atr[13]))
	assert.InDelta(t, 0.0, atr[14], 1e-9)
	assert.InDelta(t, 0.0, atr[19], 1e-9)
}

func TestCalculateATRConstantRange(t *testing.T) {
	candles := flatCandles(30, 100)
	for i := range candles {
		candles[i].High = 101
		candles[i].Low = 99
	}
	atr := CalculateATR(candles, 14)
	require.NotNil(t, atr)
	assert.InDelta(t, 2.0, atr[len(atr)-1], 1e-9)
}

func TestTrueRangeUsesPreviousClose(t *testing.T) {
	c := candle.Candle{High: 105, Low: 103}
	// Gap up from a close of 100: TR = 105-100
	assert.InDelta(t, 5.0, TrueRange(c, 100), 1e-9)
	// Gap down from a close of 110: TR = 110-103
	assert.InDelta(t, 7.0, TrueRange(c, 110), 1e-9)
}

func TestComputeSnapshot(t *testing.T) {
	cfg := SnapshotConfig{EMAFastPeriod: 9, EMASlowPeriod: 21, ATRPeriod: 14}
	require.NoError(t, cfg.Validate())

	candles := flatCandles(40, 100)
	snap, ok := Compute(candles, cfg)
	require.True(t, ok)
	assert.InDelta(t, 100.0, snap.EMAFast, 1e-9)
	assert.InDelta(t, 100.0, snap.EMASlow, 1e-9)
	assert.InDelta(t, 0.0, snap.ATR, 1e-9)
	assert.True(t, math.IsNaN(snap.EMALong))
	assert.True(t, math.IsNaN(snap.ADX))
}

func TestComputeSnapshotInsufficientWindow(t *testing.T) {
	cfg := SnapshotConfig{EMAFastPeriod: 9, EMASlowPeriod: 21, ATRPeriod: 14}
	_, ok := Compute(flatCandles(10, 100), cfg)
	assert.False(t, ok)
}

func TestSnapshotConfigValidate(t *testing.T) {
	bad := SnapshotConfig{EMAFastPeriod: 21, EMASlowPeriod: 9, ATRPeriod: 14}
	assert.Error(t, bad.Validate())

	bad = SnapshotConfig{EMAFastPeriod: 0, EMASlowPeriod: 9, ATRPeriod: 14}
	assert.Error(t, bad.Validate())
}

func TestSnapshotConfigMinBars(t *testing.T) {
	cfg := SnapshotConfig{EMAFastPeriod: 9, EMASlowPeriod: 21, ATRPeriod: 14}
	assert.Equal(t, 21, cfg.MinBars())

	cfg.EMALongPeriod = 200
	assert.Equal(t, 200, cfg.MinBars())

	cfg = SnapshotConfig{EMAFastPeriod: 3, EMASlowPeriod: 5, ATRPeriod: 14, ADXPeriod: 14}
	assert.Equal(t, 29, cfg.MinBars())
}
