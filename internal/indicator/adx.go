package indicator

import (
	"math"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// CalculateADX calculates the Average Directional Index using Wilder's
// smoothing. Roughly 2*period bars are needed before values appear; earlier
// entries are NaN.
func CalculateADX(candles []candle.Candle, period int) []float64 {
	if period <= 0 || len(candles) < 2*period+1 {
		return nil
	}

	n := len(candles)
	adx := make([]float64, n)
	for i := range adx {
		adx[i] = math.NaN()
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
		tr[i] = TrueRange(candles[i], candles[i-1].Close)
	}

	// Wilder smoothing seeds
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := make([]float64, n)
	for i := range dx {
		dx[i] = math.NaN()
	}

	computeDX := func(i int) float64 {
		if smTR == 0 {
			return 0
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	dx[period] = computeDX(period)
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx[i] = computeDX(i)
	}

	// ADX is the Wilder-smoothed DX
	var sum float64
	for i := period; i < 2*period; i++ {
		sum += dx[i]
	}
	adx[2*period-1] = sum / float64(period)
	for i := 2 * period; i < n; i++ {
		adx[i] = (adx[i-1]*float64(period-1) + dx[i]) / float64(period)
	}
	return adx
}
