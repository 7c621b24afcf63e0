package strategy

import (
	"fmt"
	"math"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// swingPoint is a confirmed pivot high or low.
type swingPoint struct {
	index  int
	price  float64
	isHigh bool
}

// fvg is a three-candle price imbalance inside a breakout leg.
type fvg struct {
	high float64
	low  float64
}

// StructureDetector substitutes the EMA-distance impulse test with a
// market-structure break: a Change of Character (new pivot beyond the prior
// opposing structural level) or a Break of Structure (continuation beyond the
// last pivot), refined by a Fair Value Gap inside the breakout leg. It emits
// a pending Setup — entry at the FVG edge, stop at the structural pivot — so
// the state machine runs the limit-entry path.
type StructureDetector struct {
	lookback int
}

// NewStructureDetector validates the pivot lookback and builds the detector.
func NewStructureDetector(lookback int) (*StructureDetector, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("swing lookback must be positive, got %d", lookback)
	}
	return &StructureDetector{lookback: lookback}, nil
}

func (d *StructureDetector) Name() string { return "structure-break" }

// Warmup leaves room for at least three confirmed pivots plus their
// confirmation bars.
func (d *StructureDetector) Warmup() int { return 6 * d.lookback }

// Trend applies no long-term filter; structure itself carries the bias.
func (d *StructureDetector) Trend(_ Frame) Direction { return 0 }

func (d *StructureDetector) DetectImpulse(window []candle.Candle, _, last Frame) (Direction, *Setup) {
	swings := d.swings(window)
	if len(swings) < 3 {
		return 0, nil
	}
	p3, p2, p1 := swings[len(swings)-3], swings[len(swings)-2], swings[len(swings)-1]

	if dir, setup := d.checkCHoCH(window, p3, p2, p1); dir != 0 {
		return dir, setup
	}
	return d.checkBOS(window, p3, p2, p1, last.Bar.Close)
}

// ConfirmEntry is unused: the detector always emits a pending Setup.
func (d *StructureDetector) ConfirmEntry(Direction, Frame, Frame) (float64, bool) { return 0, false }

// StopLoss is unused: the stop is part of the pending Setup.
func (d *StructureDetector) StopLoss(Direction, Frame) float64 { return math.NaN() }

// swings scans the window for pivot highs/lows with lookback bars strictly
// lower (higher) on both sides, skipping consecutive pivots of the same type.
func (d *StructureDetector) swings(window []candle.Candle) []swingPoint {
	var points []swingPoint
	for i := d.lookback; i < len(window)-d.lookback; i++ {
		if d.isPivotHigh(window, i) {
			if len(points) == 0 || !points[len(points)-1].isHigh {
				points = append(points, swingPoint{index: i, price: window[i].High, isHigh: true})
			}
			continue
		}
		if d.isPivotLow(window, i) {
			if len(points) == 0 || points[len(points)-1].isHigh {
				points = append(points, swingPoint{index: i, price: window[i].Low, isHigh: false})
			}
		}
	}
	return points
}

func (d *StructureDetector) isPivotHigh(window []candle.Candle, i int) bool {
	for j := 1; j <= d.lookback; j++ {
		if window[i].High <= window[i-j].High || window[i].High <= window[i+j].High {
			return false
		}
	}
	return true
}

func (d *StructureDetector) isPivotLow(window []candle.Candle, i int) bool {
	for j := 1; j <= d.lookback; j++ {
		if window[i].Low >= window[i-j].Low || window[i].Low >= window[i+j].Low {
			return false
		}
	}
	return true
}

// checkCHoCH looks for a reversal: the latest pivot breaks the prior
// structural level on the opposite side of the trend.
func (d *StructureDetector) checkCHoCH(window []candle.Candle, p3, p2, p1 swingPoint) (Direction, *Setup) {
	// Bullish: high (p3) -> low (p2) -> new high breaking p3
	if p3.isHigh && !p2.isHigh && p1.isHigh && p1.price > p3.price {
		if gap := d.findFVG(window, p2.index, p1.index, Long); gap != nil {
			if setup := makeSetup(Long, gap.high, p2.price); setup != nil {
				return Long, setup
			}
		}
	}
	// Bearish: low (p3) -> high (p2) -> new low breaking p3
	if !p3.isHigh && p2.isHigh && !p1.isHigh && p1.price < p3.price {
		if gap := d.findFVG(window, p2.index, p1.index, Short); gap != nil {
			if setup := makeSetup(Short, gap.low, p2.price); setup != nil {
				return Short, setup
			}
		}
	}
	return 0, nil
}

// checkBOS looks for a continuation: price closes beyond the last pivot in
// the direction of the standing structure.
func (d *StructureDetector) checkBOS(window []candle.Candle, p3, p2, p1 swingPoint, lastClose float64) (Direction, *Setup) {
	end := len(window) - 1

	// Bullish: low (p3) -> high (p2) -> higher low (p1), close above p2
	if !p3.isHigh && p2.isHigh && !p1.isHigh && p1.price > p3.price && lastClose > p2.price {
		if gap := d.findFVG(window, p1.index, end, Long); gap != nil {
			if setup := makeSetup(Long, gap.high, p1.price); setup != nil {
				return Long, setup
			}
		}
	}
	// Bearish: high (p3) -> low (p2) -> lower high (p1), close below p2
	if p3.isHigh && !p2.isHigh && p1.isHigh && p1.price < p3.price && lastClose < p2.price {
		if gap := d.findFVG(window, p1.index, end, Short); gap != nil {
			if setup := makeSetup(Short, gap.low, p1.price); setup != nil {
				return Short, setup
			}
		}
	}
	return 0, nil
}

// findFVG walks the breakout leg backwards and returns the most recent
// imbalance: for longs, a candle triple whose first high sits below the third
// low; mirrored for shorts.
func (d *StructureDetector) findFVG(window []candle.Candle, start, end int, dir Direction) *fvg {
	if start < 0 {
		start = 0
	}
	if end > len(window)-1 {
		end = len(window) - 1
	}
	for i := end - 1; i > start; i-- {
		c1 := window[i-1]
		c3 := window[i+1]
		if dir == Long && c1.High < c3.Low {
			return &fvg{high: c3.Low, low: c1.High}
		}
		if dir == Short && c1.Low > c3.High {
			return &fvg{high: c1.Low, low: c3.High}
		}
	}
	return nil
}

// makeSetup rejects degenerate geometry before the pending setup is armed.
func makeSetup(dir Direction, entry, stop float64) *Setup {
	if dir == Long && entry <= stop {
		return nil
	}
	if dir == Short && entry >= stop {
		return nil
	}
	return &Setup{Entry: entry, Stop: stop}
}
