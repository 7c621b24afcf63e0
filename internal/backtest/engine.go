// Package backtest replays a candle series through a strategy against the
// simulated broker and collects the performance of the run.
package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/broker"
	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/report"
	"github.com/aliirezaaa/trade-bot/internal/risk"
	"github.com/aliirezaaa/trade-bot/internal/strategy"
)

// Result is the outcome of one run.
type Result struct {
	Summary     report.Summary
	Trades      []broker.Position
	EquityCurve []float64
	MaxDrawdown float64 // percent, peak to trough on the equity curve
}

// Engine drives the bar loop: broker first, then the strategy, so fills and
// exits for a bar always settle before new signals are evaluated on it.
type Engine struct {
	series *candle.Series
	ledger broker.Ledger
	strat  strategy.Strategy
	sizer  *risk.Sizer
	logger *zap.Logger
}

func New(series *candle.Series, ledger broker.Ledger, strat strategy.Strategy, sizer *risk.Sizer, logger *zap.Logger) (*Engine, error) {
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("candle series is empty")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if strat == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if sizer == nil {
		return nil, fmt.Errorf("sizer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		series: series,
		ledger: ledger,
		strat:  strat,
		sizer:  sizer,
		logger: logger,
	}, nil
}

// Run replays the series bar by bar. Anything still open after the last bar
// is force-closed at its close.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.ledger.SetOnPositionClosed(e.strat.OnPositionClosed)

	warmup := e.strat.WarmupPeriod()
	equity := make([]float64, 0, e.series.Len())

	e.logger.Info("backtest started",
		zap.String("strategy", e.strat.Name()),
		zap.String("symbol", e.strat.Symbol()),
		zap.String("timeframe", e.strat.Timeframe()),
		zap.Int("bars", e.series.Len()),
		zap.Int("warmup", warmup))

	for i := 0; i < e.series.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest canceled at bar %d: %w", i, err)
		}
		bar := e.series.At(i)
		e.ledger.Check(bar)

		if i+1 >= warmup && !e.ledger.IsActive() {
			sig, err := e.strat.OnBar(e.series.Window(i, i+1))
			if err != nil {
				return nil, fmt.Errorf("strategy error at bar %d (%s): %w", i, bar.Timestamp, err)
			}
			if sig != nil {
				volume := e.sizer.Size(sig.EntryPrice, sig.StopLoss)
				if volume > 0 {
					if _, err := e.ledger.Open(*sig, volume); err != nil {
						return nil, fmt.Errorf("open failed at bar %d (%s): %w", i, bar.Timestamp, err)
					}
				} else {
					e.logger.Debug("signal skipped, sizing returned zero volume",
						zap.Time("bar", bar.Timestamp),
						zap.Float64("entry", sig.EntryPrice),
						zap.Float64("stop_loss", sig.StopLoss))
				}
			}
		}
		equity = append(equity, e.ledger.Account().Balance)
	}

	e.ledger.CloseAll(e.series.Last())
	equity = append(equity, e.ledger.Account().Balance)

	trades := e.ledger.History()
	res := &Result{
		Summary:     report.Summarize(trades, e.ledger.Account()),
		Trades:      trades,
		EquityCurve: equity,
		MaxDrawdown: maxDrawdown(equity),
	}
	e.logger.Info("backtest finished",
		zap.Int("trades", res.Summary.TotalTrades),
		zap.Float64("net_pnl", res.Summary.NetPnL),
		zap.Float64("max_drawdown_pct", res.MaxDrawdown))
	return res, nil
}

// maxDrawdown returns the largest peak-to-trough decline in percent.
func maxDrawdown(equity []float64) float64 {
	var peak, worst float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := 100 * (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
