package candle

import (
	"errors"
	"fmt"
)

// Series is an ordered, immutable sequence of candles. Construction validates
// every bar and enforces strictly increasing timestamps; irregular intervals
// (gaps) are allowed.
type Series struct {
	candles []Candle
}

// NewSeries validates the candles and wraps them in a Series. The slice is
// copied so later mutation of the argument cannot leak into the series.
func NewSeries(candles []Candle) (*Series, error) {
	if len(candles) == 0 {
		return nil, errors.New("series requires at least one candle")
	}
	owned := make([]Candle, len(candles))
	copy(owned, candles)
	for i := range owned {
		if err := owned[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid candle at index %d: %w", i, err)
		}
		if i > 0 && !owned[i].Timestamp.After(owned[i-1].Timestamp) {
			return nil, fmt.Errorf("candle at index %d is not after its predecessor", i)
		}
	}
	return &Series{candles: owned}, nil
}

// Len returns the number of candles in the series.
func (s *Series) Len() int { return len(s.candles) }

// At returns the candle at index i. It panics on an out-of-range index,
// matching slice semantics.
func (s *Series) At(i int) Candle { return s.candles[i] }

// Last returns the final candle of the series.
func (s *Series) Last() Candle { return s.candles[len(s.candles)-1] }

// Window returns the trailing window of up to n candles ending at index end
// (inclusive). When fewer than n candles precede end, the window is shorter.
// The returned slice must be treated as read-only.
func (s *Series) Window(end, n int) []Candle {
	if end < 0 || end >= len(s.candles) || n <= 0 {
		return nil
	}
	start := end - n + 1
	if start < 0 {
		start = 0
	}
	return s.candles[start : end+1]
}

// Truncate returns a view over the first n candles. A caller can use it to
// stop a simulation early without copying data.
func (s *Series) Truncate(n int) *Series {
	if n >= len(s.candles) {
		return s
	}
	if n < 1 {
		n = 1
	}
	return &Series{candles: s.candles[:n]}
}
