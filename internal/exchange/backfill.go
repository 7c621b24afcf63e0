package exchange

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/db"
	"github.com/aliirezaaa/trade-bot/internal/tfutils"
)

// fetchChunkBars bounds a single history request.
const fetchChunkBars = 1000

// Backfiller fills gaps in stored candle history from the exchange.
type Backfiller struct {
	ex      Exchange
	storage db.Storage
	logger  *zap.Logger
}

func NewBackfiller(ex Exchange, storage db.Storage, logger *zap.Logger) *Backfiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backfiller{ex: ex, storage: storage, logger: logger}
}

// Backfill fetches and stores every candle missing in [from, to). It resumes
// after the newest candle already stored and returns the number saved.
func (b *Backfiller) Backfill(ctx context.Context, symbol, timeframe string, from, to time.Time) (int, error) {
	tfDur, err := tfutils.ParseTimeframe(timeframe)
	if err != nil {
		return 0, fmt.Errorf("backfill %s: %w", symbol, err)
	}

	latest, err := b.storage.GetLatestCandle(ctx, symbol, timeframe)
	if err != nil {
		return 0, fmt.Errorf("query latest candle: %w", err)
	}
	if latest != nil && latest.Timestamp.Add(tfDur).After(from) {
		from = latest.Timestamp.Add(tfDur)
	}
	if !from.Before(to) {
		return 0, nil
	}

	chunk := tfDur * fetchChunkBars
	saved := 0
	for cur := from; cur.Before(to); cur = cur.Add(chunk) {
		end := cur.Add(chunk)
		if end.After(to) {
			end = to
		}
		fetched, err := b.ex.FetchCandles(ctx, symbol, timeframe, cur, end)
		if err != nil {
			return saved, fmt.Errorf("fetch candles %s..%s: %w", cur, end, err)
		}
		processed := candle.ProcessCandles(fetched, timeframe, cur, end)
		if len(processed) == 0 {
			continue
		}
		if err := b.storage.SaveCandles(ctx, processed); err != nil {
			return saved, fmt.Errorf("save candles: %w", err)
		}
		saved += len(processed)
		b.logger.Debug("backfilled chunk",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Time("from", cur),
			zap.Time("to", end),
			zap.Int("candles", len(processed)))
	}

	b.logger.Info("backfill complete",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("saved", saved))
	return saved, nil
}

// LoadSeries backfills the range and returns it as an ordered series.
func (b *Backfiller) LoadSeries(ctx context.Context, symbol, timeframe string, from, to time.Time) (*candle.Series, error) {
	if _, err := b.Backfill(ctx, symbol, timeframe, from, to); err != nil {
		return nil, err
	}
	stored, err := b.storage.GetCandles(ctx, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("no candles for %s %s in %s..%s", symbol, timeframe, from, to)
	}
	series, err := candle.NewSeries(stored)
	if err != nil {
		return nil, fmt.Errorf("build series: %w", err)
	}
	return series, nil
}
