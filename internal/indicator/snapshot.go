package indicator

import (
	"fmt"
	"math"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// SnapshotConfig selects the indicator periods computed for a window.
// EMALongPeriod and ADXPeriod are optional; zero disables them.
type SnapshotConfig struct {
	EMAFastPeriod int
	EMASlowPeriod int
	ATRPeriod     int
	EMALongPeriod int
	ADXPeriod     int
}

// Validate checks the configured periods.
func (c SnapshotConfig) Validate() error {
	if c.EMAFastPeriod <= 0 || c.EMASlowPeriod <= 0 || c.ATRPeriod <= 0 {
		return fmt.Errorf("ema fast/slow and atr periods must be positive")
	}
	if c.EMAFastPeriod >= c.EMASlowPeriod {
		return fmt.Errorf("ema fast period %d must be shorter than slow period %d", c.EMAFastPeriod, c.EMASlowPeriod)
	}
	if c.EMALongPeriod < 0 || c.ADXPeriod < 0 {
		return fmt.Errorf("optional periods cannot be negative")
	}
	return nil
}

// MinBars returns the number of bars a window needs before Compute can
// produce a complete snapshot.
func (c SnapshotConfig) MinBars() int {
	min := c.EMASlowPeriod
	if c.ATRPeriod+1 > min {
		min = c.ATRPeriod + 1
	}
	if c.EMALongPeriod > min {
		min = c.EMALongPeriod
	}
	if c.ADXPeriod > 0 && 2*c.ADXPeriod+1 > min {
		min = 2*c.ADXPeriod + 1
	}
	return min
}

// Snapshot holds the derived values for the most recent bar of a window.
// A value is NaN when its trailing window was not yet full.
type Snapshot struct {
	EMAFast float64
	EMASlow float64
	EMALong float64 // NaN unless EMALongPeriod is configured
	ATR     float64
	ADX     float64 // NaN unless ADXPeriod is configured
}

// Ready reports whether every required value is defined.
func (s Snapshot) Ready() bool {
	return !math.IsNaN(s.EMAFast) && !math.IsNaN(s.EMASlow) && !math.IsNaN(s.ATR)
}

// Compute derives a Snapshot for the last bar of the window. It is a pure
// function: the window is only read, never modified. The second return is
// false when the window is shorter than the configured warm-up.
func Compute(window []candle.Candle, cfg SnapshotConfig) (Snapshot, bool) {
	snap := Snapshot{
		EMAFast: math.NaN(),
		EMASlow: math.NaN(),
		EMALong: math.NaN(),
		ATR:     math.NaN(),
		ADX:     math.NaN(),
	}
	if len(window) < cfg.MinBars() {
		return snap, false
	}

	closes := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
	}

	last := len(window) - 1
	if fast := CalculateEMA(closes, cfg.EMAFastPeriod); fast != nil {
		snap.EMAFast = fast[last]
	}
	if slow := CalculateEMA(closes, cfg.EMASlowPeriod); slow != nil {
		snap.EMASlow = slow[last]
	}
	if atr := CalculateATR(window, cfg.ATRPeriod); atr != nil {
		snap.ATR = atr[last]
	}
	if cfg.EMALongPeriod > 0 {
		if long := CalculateEMA(closes, cfg.EMALongPeriod); long != nil {
			snap.EMALong = long[last]
		}
	}
	if cfg.ADXPeriod > 0 {
		if adx := CalculateADX(window, cfg.ADXPeriod); adx != nil {
			snap.ADX = adx[last]
		}
	}
	return snap, snap.Ready()
}
