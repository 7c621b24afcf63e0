package indicator

import (
	"math"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// TrueRange returns the true range of the current bar given the previous
// close: the greatest of high-low, |high-prevClose|, |low-prevClose|.
func TrueRange(c candle.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if hc := math.Abs(c.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(c.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// CalculateATR calculates the Average True Range as the period-length rolling
// mean of the true range. Entries before index period are NaN (the first bar
// has no previous close, so its true range is high-low).
func CalculateATR(candles []candle.Candle, period int) []float64 {
	if period <= 0 || len(candles) < period+1 {
		return nil
	}
	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		tr[i] = TrueRange(candles[i], candles[i-1].Close)
	}

	atr := make([]float64, len(candles))
	for i := 0; i < period; i++ {
		atr[i] = math.NaN()
	}
	var sum float64
	// Seed from the first bar that has a real previous close
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr[period] = sum / float64(period)
	for i := period + 1; i < len(candles); i++ {
		sum += tr[i] - tr[i-period]
		atr[i] = sum / float64(period)
	}
	return atr
}
