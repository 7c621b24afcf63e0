package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

func memCandle(ts time.Time, close float64) candle.Candle {
	return candle.Candle{
		Timestamp: ts,
		Open:      close - 0.5,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    10,
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Source:    "wallex",
	}
}

func TestMemorySaveAndGetCandles(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Saved out of order; reads come back sorted.
	require.NoError(t, m.SaveCandles(ctx, []candle.Candle{
		memCandle(t0.Add(2*time.Hour), 102),
		memCandle(t0, 100),
		memCandle(t0.Add(time.Hour), 101),
	}))

	got, err := m.GetCandles(ctx, "BTCUSDT", "1h", t0, t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 100.0, got[0].Close)
	assert.Equal(t, 102.0, got[2].Close)

	// Upper bound is exclusive.
	got, err = m.GetCandles(ctx, "BTCUSDT", "1h", t0, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemoryUpsertOverwrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.SaveCandles(ctx, []candle.Candle{memCandle(t0, 100)}))
	updated := memCandle(t0, 100)
	updated.Volume = 42
	require.NoError(t, m.SaveCandles(ctx, []candle.Candle{updated}))

	got, err := m.GetCandles(ctx, "BTCUSDT", "1h", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 42.0, got[0].Volume)
}

func TestMemoryRejectsInvalidCandle(t *testing.T) {
	m := NewMemory()
	bad := memCandle(time.Now(), 100)
	bad.High = bad.Low - 1
	assert.Error(t, m.SaveCandles(context.Background(), []candle.Candle{bad}))
}

func TestMemoryGetLatestCandle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	latest, err := m.GetLatestCandle(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, m.SaveCandles(ctx, []candle.Candle{
		memCandle(t0, 100),
		memCandle(t0.Add(time.Hour), 101),
	}))
	latest, err = m.GetLatestCandle(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 101.0, latest.Close)
}

func TestMemoryBacktestRuns(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run := BacktestRun{
		ID:        uuid.NewString(),
		Strategy:  "ema-pullback",
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		CreatedAt: time.Now(),
	}
	require.NoError(t, m.SaveBacktestRun(ctx, run))
	require.NoError(t, m.SaveBacktestRun(ctx, BacktestRun{
		ID:        uuid.NewString(),
		Strategy:  "keltner-pullback",
		CreatedAt: time.Now().Add(time.Second),
	}))

	got, err := m.GetBacktestRuns(ctx, "ema-pullback")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, run.ID, got[0].ID)

	all, err := m.GetBacktestRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "keltner-pullback", all[0].Strategy)
}
