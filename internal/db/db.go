// Package db persists candles and backtest runs.
package db

import (
	"context"
	"time"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// BacktestRun is the persisted record of one finished backtest.
type BacktestRun struct {
	ID           string    `json:"id"`
	Strategy     string    `json:"strategy"`
	Symbol       string    `json:"symbol"`
	Timeframe    string    `json:"timeframe"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	TotalTrades  int       `json:"total_trades"`
	WinRate      float64   `json:"win_rate"`
	ProfitFactor float64   `json:"profit_factor"`
	NetPnL       float64   `json:"net_pnl"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	FinalBalance float64   `json:"final_balance"`
	CreatedAt    time.Time `json:"created_at"`
}

// Storage is the persistence contract shared by the postgres and in-memory
// backends.
type Storage interface {
	SaveCandles(ctx context.Context, candles []candle.Candle) error
	// GetCandles returns candles in [from, to) in ascending timestamp order.
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error)
	// GetLatestCandle returns the newest stored candle, or nil when none exist.
	GetLatestCandle(ctx context.Context, symbol, timeframe string) (*candle.Candle, error)
	SaveBacktestRun(ctx context.Context, run BacktestRun) error
	GetBacktestRuns(ctx context.Context, strategy string) ([]BacktestRun, error)
}
