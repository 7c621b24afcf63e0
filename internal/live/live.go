// Package live runs the strategy against the market in real time: it keeps
// the candle window fresh from the exchange and drives the execution bridge
// the same way the backtester drives the simulated broker.
package live

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/broker"
	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/exchange"
	"github.com/aliirezaaa/trade-bot/internal/journal"
	"github.com/aliirezaaa/trade-bot/internal/notifier"
	"github.com/aliirezaaa/trade-bot/internal/risk"
	"github.com/aliirezaaa/trade-bot/internal/strategy"
	"github.com/aliirezaaa/trade-bot/internal/tfutils"
)

// fetchGrace delays each poll past the bar boundary so the venue has sealed
// the candle.
const fetchGrace = 5 * time.Second

// maxWindowBars caps the trailing evaluation window.
const maxWindowBars = 500

// Trader owns one live symbol/timeframe session.
type Trader struct {
	backfiller *exchange.Backfiller
	ledger     broker.Ledger
	strat      strategy.Strategy
	sizer      *risk.Sizer
	notify     notifier.Notifier
	journal    *journal.FileJournal
	logger     *zap.Logger

	window []candle.Candle
	logged int // closed trades already journaled
}

func NewTrader(
	backfiller *exchange.Backfiller,
	ledger broker.Ledger,
	strat strategy.Strategy,
	sizer *risk.Sizer,
	notify notifier.Notifier,
	jrnl *journal.FileJournal,
	logger *zap.Logger,
) (*Trader, error) {
	if backfiller == nil || ledger == nil || strat == nil || sizer == nil {
		return nil, fmt.Errorf("backfiller, ledger, strategy and sizer are required")
	}
	if notify == nil {
		notify = notifier.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trader{
		backfiller: backfiller,
		ledger:     ledger,
		strat:      strat,
		sizer:      sizer,
		notify:     notify,
		journal:    jrnl,
		logger:     logger,
	}, nil
}

// Run blocks until the context is canceled, then flattens the book.
func (t *Trader) Run(ctx context.Context) error {
	symbol := t.strat.Symbol()
	timeframe := t.strat.Timeframe()
	tfDur, err := tfutils.ParseTimeframe(timeframe)
	if err != nil {
		return fmt.Errorf("live run: %w", err)
	}

	t.ledger.SetOnPositionClosed(t.strat.OnPositionClosed)

	if err := t.warmup(ctx, symbol, timeframe, tfDur); err != nil {
		return err
	}
	t.logger.Info("live trading started",
		zap.String("strategy", t.strat.Name()),
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("window", len(t.window)))

	for {
		select {
		case <-ctx.Done():
			t.shutdown()
			return ctx.Err()
		case <-time.After(untilNextBar(time.Now().UTC(), tfDur)):
		}

		if err := t.poll(ctx, symbol, timeframe, tfDur); err != nil {
			t.logger.Error("poll failed", zap.Error(err))
			t.journalError("poll", err)
		}
	}
}

// warmup seeds the window with enough history for the strategy.
func (t *Trader) warmup(ctx context.Context, symbol, timeframe string, tfDur time.Duration) error {
	need := t.strat.WarmupPeriod()
	from := time.Now().UTC().Add(-time.Duration(need*4) * tfDur)
	series, err := t.backfiller.LoadSeries(ctx, symbol, timeframe, from, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("warmup history: %w", err)
	}
	t.window = series.Window(series.Len()-1, maxWindowBars)
	if len(t.window) < need {
		return fmt.Errorf("warmup history too short: have %d bars, need %d", len(t.window), need)
	}
	return nil
}

// poll ingests bars completed since the last one seen and advances the
// trading state machine for each.
func (t *Trader) poll(ctx context.Context, symbol, timeframe string, tfDur time.Duration) error {
	lastSeen := t.window[len(t.window)-1].Timestamp
	from := lastSeen.Add(tfDur)
	// Bars up to the last completed boundary only; the forming bar stays out.
	to := time.Now().UTC().Truncate(tfDur)
	if !from.Before(to) {
		return nil
	}

	series, err := t.backfiller.LoadSeries(ctx, symbol, timeframe, from, to)
	if err != nil {
		return err
	}
	for i := 0; i < series.Len(); i++ {
		t.step(series.At(i))
	}
	return nil
}

// step processes one completed bar: exits first, then signal evaluation.
func (t *Trader) step(bar candle.Candle) {
	t.window = append(t.window, bar)
	if len(t.window) > maxWindowBars {
		t.window = t.window[len(t.window)-maxWindowBars:]
	}

	t.ledger.Check(bar)
	t.journalClosedTrades()

	if t.ledger.IsActive() {
		return
	}
	sig, err := t.strat.OnBar(t.window)
	if err != nil {
		t.logger.Error("strategy error", zap.Time("bar", bar.Timestamp), zap.Error(err))
		t.journalError("strategy", err)
		return
	}
	if sig == nil {
		return
	}

	if t.journal != nil {
		if err := t.journal.LogSignal(*sig); err != nil {
			t.logger.Warn("journal signal failed", zap.Error(err))
		}
	}
	volume := t.sizer.Size(sig.EntryPrice, sig.StopLoss)
	if volume <= 0 {
		t.logger.Info("signal skipped, sizing returned zero volume",
			zap.Float64("entry", sig.EntryPrice),
			zap.Float64("stop_loss", sig.StopLoss))
		return
	}
	opened, err := t.ledger.Open(*sig, volume)
	if err != nil {
		t.logger.Error("order submission failed", zap.Error(err))
		t.journalError("order", err)
		t.notify.SendWithRetry(fmt.Sprintf("order submission failed: %v", err))
		return
	}
	if opened {
		t.notify.SendWithRetry(fmt.Sprintf("%s %s %s: entry %.5f sl %.5f tp %.5f vol %.2f",
			t.strat.Name(), sig.Direction, t.strat.Symbol(),
			sig.EntryPrice, sig.StopLoss, sig.TakeProfit, volume))
	}
}

// journalClosedTrades records positions closed since the last check.
func (t *Trader) journalClosedTrades() {
	history := t.ledger.History()
	for ; t.logged < len(history); t.logged++ {
		p := history[t.logged]
		if t.journal != nil {
			if err := t.journal.LogTrade(p); err != nil {
				t.logger.Warn("journal trade failed", zap.Error(err))
			}
		}
		t.notify.SendWithRetry(fmt.Sprintf("closed %s: pnl %.2f (%s)",
			p.ID, p.RealizedPnL, p.CloseReason))
	}
}

func (t *Trader) journalError(context string, err error) {
	if t.journal == nil {
		return
	}
	if jErr := t.journal.LogError(context, err); jErr != nil {
		t.logger.Warn("journal error failed", zap.Error(jErr))
	}
}

func (t *Trader) shutdown() {
	if len(t.window) > 0 {
		t.ledger.CloseAll(t.window[len(t.window)-1])
		t.journalClosedTrades()
	}
	t.logger.Info("live trading stopped",
		zap.Int("trades", len(t.ledger.History())),
		zap.Float64("balance", t.ledger.Account().Balance))
}

// untilNextBar returns the wait until just after the next bar boundary.
func untilNextBar(now time.Time, tfDur time.Duration) time.Duration {
	next := now.Truncate(tfDur).Add(tfDur).Add(fetchGrace)
	return next.Sub(now)
}
