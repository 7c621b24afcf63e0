package strategy

import (
	"fmt"
	"math"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// EMADetector confirms an impulse when price stretches at least
// impulseATRMultiplier*ATR away from the fast EMA while trending, and
// confirms entry on the first bar that crosses back to touch the fast EMA
// after the previous bar held clear of it. The stop sits beyond the slow EMA
// by slATRMultiplier*ATR.
type EMADetector struct {
	impulseATRMultiplier float64
	slATRMultiplier      float64
}

// NewEMADetector validates the multipliers and builds the detector.
func NewEMADetector(impulseATRMultiplier, slATRMultiplier float64) (*EMADetector, error) {
	if impulseATRMultiplier <= 0 {
		return nil, fmt.Errorf("impulse atr multiplier must be positive, got %v", impulseATRMultiplier)
	}
	if slATRMultiplier < 0 {
		return nil, fmt.Errorf("sl atr multiplier cannot be negative, got %v", slATRMultiplier)
	}
	return &EMADetector{
		impulseATRMultiplier: impulseATRMultiplier,
		slATRMultiplier:      slATRMultiplier,
	}, nil
}

func (d *EMADetector) Name() string { return "ema-pullback" }

func (d *EMADetector) Warmup() int { return 0 }

// Trend follows the slow EMA: price above it allows longs, below it shorts.
func (d *EMADetector) Trend(last Frame) Direction {
	switch {
	case last.Bar.Close > last.Snap.EMASlow:
		return Long
	case last.Bar.Close < last.Snap.EMASlow:
		return Short
	default:
		return 0
	}
}

func (d *EMADetector) DetectImpulse(_ []candle.Candle, _, last Frame) (Direction, *Setup) {
	distance := d.impulseATRMultiplier * last.Snap.ATR
	switch d.Trend(last) {
	case Long:
		if last.Bar.High > last.Snap.EMAFast+distance {
			return Long, nil
		}
	case Short:
		if last.Bar.Low < last.Snap.EMAFast-distance {
			return Short, nil
		}
	}
	return 0, nil
}

// ConfirmEntry requires the previous bar clear of the fast EMA and the
// current bar touching it. Entry reference is the bar close.
func (d *EMADetector) ConfirmEntry(dir Direction, prev, last Frame) (float64, bool) {
	switch dir {
	case Long:
		if prev.Bar.Low > prev.Snap.EMAFast && last.Bar.Low <= last.Snap.EMAFast {
			return last.Bar.Close, true
		}
	case Short:
		if prev.Bar.High < prev.Snap.EMAFast && last.Bar.High >= last.Snap.EMAFast {
			return last.Bar.Close, true
		}
	}
	return 0, false
}

func (d *EMADetector) StopLoss(dir Direction, last Frame) float64 {
	offset := d.slATRMultiplier * last.Snap.ATR
	if dir == Long {
		return last.Snap.EMASlow - offset
	}
	if dir == Short {
		return last.Snap.EMASlow + offset
	}
	return math.NaN()
}
