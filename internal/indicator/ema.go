// Package indicator provides technical analysis indicators for financial markets
package indicator

import "math"

// CalculateEMA calculates the Exponential Moving Average over the values with
// the conventional smoothing factor 2/(period+1). The first period-1 entries
// are NaN; the value at index period-1 is seeded with the simple average of
// the first period values.
func CalculateEMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	ema := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		ema[i] = math.NaN()
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema[i] = values[i]*k + ema[i-1]*(1-k)
	}
	return ema
}
