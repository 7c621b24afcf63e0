// Package strategy
package strategy

import (
	"time"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/indicator"
)

// Direction is the side of a trade.
type Direction int8

const (
	Long  Direction = 1
	Short Direction = -1
)

// String returns "long", "short" or "none".
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "none"
	}
}

// Signal is a fully priced trade request. Direction is never zero on an
// emitted signal.
type Signal struct {
	Time         time.Time `json:"time"`
	Direction    Direction `json:"direction"`
	EntryPrice   float64   `json:"entry_price"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	Limit        bool      `json:"limit"` // fill at EntryPrice instead of next bar open
	Reason       string    `json:"reason"`
	StrategyName string    `json:"strategy_name"`
}

// Strategy is the interface for all trading strategies. OnBar receives a
// read-only trailing window ending at the newest completed bar and returns a
// signal when a setup completes, or nil.
type Strategy interface {
	Name() string
	Symbol() string
	Timeframe() string
	WarmupPeriod() int
	OnBar(window []candle.Candle) (*Signal, error)
	// OnPositionClosed resets the internal setup search. The broker invokes
	// it exactly once per closed position.
	OnPositionClosed()
}

// Frame pairs a bar with the indicator snapshot computed for it.
type Frame struct {
	Bar  candle.Candle
	Snap indicator.Snapshot
}

// Setup is a pending limit-style entry produced at impulse time by
// structure-break detectors: entry at the fair-value-gap edge, stop at the
// structural pivot. Detectors that enter at market return a nil Setup.
type Setup struct {
	Entry float64
	Stop  float64
}

// SetupDetector supplies the variant-specific guards of the pullback state
// machine: how an impulse is confirmed, how the pullback entry is confirmed,
// and where the protective stop goes.
type SetupDetector interface {
	Name() string

	// Warmup returns the number of bars the detector needs to see before
	// its checks are meaningful, beyond the indicator warm-up.
	Warmup() int

	// Trend reports the direction the long-term filter currently allows,
	// or zero when the detector applies no trend constraint.
	Trend(last Frame) Direction

	// DetectImpulse inspects the window and reports a confirmed impulse.
	// A non-nil Setup switches the state machine to the pending-limit path.
	DetectImpulse(window []candle.Candle, prev, last Frame) (Direction, *Setup)

	// ConfirmEntry reports whether the current bar completes the pullback
	// entry for the confirmed direction, returning the entry reference
	// price. Unused by detectors that emit a Setup.
	ConfirmEntry(dir Direction, prev, last Frame) (float64, bool)

	// StopLoss returns the protective stop for a market entry in dir.
	// Unused by detectors that emit a Setup.
	StopLoss(dir Direction, last Frame) float64
}
