// Package broker owns position lifecycle and account bookkeeping for a single
// strategy instance: order acceptance, per-bar stop/target checks, and
// realized profit accounting.
package broker

import (
	"time"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/strategy"
)

// CloseReason records why a position left the book.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "stop-loss"
	CloseTakeProfit CloseReason = "take-profit"
	CloseEndOfData  CloseReason = "end-of-data"
)

// Position is a filled trade. The broker is the only writer; after the
// position closes it is immutable and lives in the trade history.
type Position struct {
	ID          string             `json:"id"`
	Direction   strategy.Direction `json:"direction"`
	Volume      float64            `json:"volume"`
	EntryPrice  float64            `json:"entry_price"`
	EntryTime   time.Time          `json:"entry_time"`
	StopLoss    float64            `json:"stop_loss"`
	TakeProfit  float64            `json:"take_profit"`
	ExitPrice   float64            `json:"exit_price,omitempty"`
	ExitTime    time.Time          `json:"exit_time,omitempty"`
	RealizedPnL float64            `json:"realized_pnl,omitempty"`
	CloseReason CloseReason        `json:"close_reason,omitempty"`
}

// Closed reports whether the position has left the book.
func (p *Position) Closed() bool { return p.CloseReason != "" }

// Account tracks the simulated balance. Only the broker mutates it, and only
// when a position closes.
type Account struct {
	InitialBalance float64 `json:"initial_balance"`
	Balance        float64 `json:"balance"`
}

// Ledger is the execution contract shared by the backtest broker and the
// live bridge, so strategies and the simulation driver run against either.
type Ledger interface {
	// Open submits an order for the signal. It is a logged no-op returning
	// false while a position or pending order exists, or when volume is not
	// positive. A malformed signal (non-finite prices, zero direction) is an
	// error: a precondition violation, not a trading outcome.
	Open(sig strategy.Signal, volume float64) (bool, error)

	// Check fills any pending order and evaluates stop/target levels
	// against the bar. Called once per bar, before signal evaluation.
	Check(bar candle.Candle)

	// CloseAll force-closes everything still open at the final bar's close.
	// Calling it again is a no-op.
	CloseAll(finalBar candle.Candle)

	// IsActive reports whether an open position or a pending fill exists.
	IsActive() bool

	// SetOnPositionClosed registers a callback fired exactly once per close.
	// The driver uses it to reset the strategy state machine.
	SetOnPositionClosed(fn func())

	History() []Position
	Account() Account
}
