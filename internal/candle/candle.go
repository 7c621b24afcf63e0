// Package candle
package candle

import (
	"errors"
	"sort"
	"time"

	"github.com/aliirezaaa/trade-bot/internal/tfutils"
)

// Candle is a single OHLCV bar. Candles are value types and are never
// mutated after they enter a Series.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Source    string    `json:"source"`
}

// Validate checks if a candle has valid data.
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	if c.Symbol == "" {
		return errors.New("candle symbol cannot be empty")
	}
	if c.Timeframe == "" {
		return errors.New("candle timeframe cannot be empty")
	}
	return nil
}

// ProcessCandles sorts candles by timestamp, eliminates duplicates, and trims
// to the requested range (exclusive upper bound). Timestamps are truncated to
// the timeframe boundary before deduplication.
func ProcessCandles(candles []Candle, timeframe string, from, to time.Time) []Candle {
	if len(candles) == 0 {
		return candles
	}

	duration := tfutils.GetTimeframeDuration(timeframe)
	seen := make(map[time.Time]Candle, len(candles))
	for _, c := range candles {
		if duration > 0 {
			c.Timestamp = c.Timestamp.Truncate(duration)
		}
		// Keep the first occurrence of each timestamp
		if _, exists := seen[c.Timestamp]; !exists {
			seen[c.Timestamp] = c
		}
	}

	var trimmed []Candle
	for ts, c := range seen {
		if !ts.Before(from) && ts.Before(to) {
			trimmed = append(trimmed, c)
		}
	}

	sort.Slice(trimmed, func(i, j int) bool {
		return trimmed[i].Timestamp.Before(trimmed[j].Timestamp)
	})

	return trimmed
}
