package strategy

import (
	"fmt"
	"math"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// KeltnerDetector confirms an impulse when a bar's high/low touches the outer
// Keltner channel band, and confirms entry when a later bar touches the
// channel midline and closes back on the trend side of it. The midline is the
// fast EMA; the bands sit multiplier*ATR away.
type KeltnerDetector struct {
	multiplier float64
	slBuffer   float64
}

// NewKeltnerDetector validates the channel multiplier and stop buffer.
func NewKeltnerDetector(multiplier, slBuffer float64) (*KeltnerDetector, error) {
	if multiplier <= 0 {
		return nil, fmt.Errorf("channel multiplier must be positive, got %v", multiplier)
	}
	if slBuffer < 0 {
		return nil, fmt.Errorf("sl buffer cannot be negative, got %v", slBuffer)
	}
	return &KeltnerDetector{multiplier: multiplier, slBuffer: slBuffer}, nil
}

func (d *KeltnerDetector) Name() string { return "keltner-pullback" }

func (d *KeltnerDetector) Warmup() int { return 0 }

// Trend follows the long EMA when the snapshot carries one; without it the
// detector applies no trend constraint.
func (d *KeltnerDetector) Trend(last Frame) Direction {
	if math.IsNaN(last.Snap.EMALong) {
		return 0
	}
	switch {
	case last.Bar.Close > last.Snap.EMALong:
		return Long
	case last.Bar.Close < last.Snap.EMALong:
		return Short
	default:
		return 0
	}
}

func (d *KeltnerDetector) upper(f Frame) float64 { return f.Snap.EMAFast + d.multiplier*f.Snap.ATR }
func (d *KeltnerDetector) lower(f Frame) float64 { return f.Snap.EMAFast - d.multiplier*f.Snap.ATR }

func (d *KeltnerDetector) DetectImpulse(_ []candle.Candle, _, last Frame) (Direction, *Setup) {
	if last.Bar.High >= d.upper(last) {
		return Long, nil
	}
	if last.Bar.Low <= d.lower(last) {
		return Short, nil
	}
	return 0, nil
}

// ConfirmEntry requires a midline touch and a close back on the trend side.
func (d *KeltnerDetector) ConfirmEntry(dir Direction, _, last Frame) (float64, bool) {
	middle := last.Snap.EMAFast
	switch dir {
	case Long:
		if last.Bar.Low <= middle && last.Bar.Close > middle {
			return last.Bar.Close, true
		}
	case Short:
		if last.Bar.High >= middle && last.Bar.Close < middle {
			return last.Bar.Close, true
		}
	}
	return 0, false
}

func (d *KeltnerDetector) StopLoss(dir Direction, last Frame) float64 {
	buffer := d.slBuffer * last.Snap.ATR
	if dir == Long {
		return d.lower(last) - buffer
	}
	if dir == Short {
		return d.upper(last) + buffer
	}
	return math.NaN()
}
