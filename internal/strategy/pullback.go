package strategy

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/indicator"
)

// phase is the top-level state of the pullback search.
type phase int8

const (
	phaseSearching phase = iota
	phaseImpulseConfirmed
)

// PullbackOptions configures a PullbackStrategy.
type PullbackOptions struct {
	Symbol       string
	Timeframe    string
	Snapshot     indicator.SnapshotConfig
	RiskToReward float64

	// ADXThreshold > 0 enables the ADX filter: impulses are only confirmed
	// while ADX is at or above the threshold. Requires Snapshot.ADXPeriod.
	ADXThreshold float64

	Logger *zap.Logger
}

// PullbackStrategy is the impulse → pullback → entry state machine shared by
// every variant. The variant-specific guards live in the SetupDetector; the
// machine owns phase tracking, trend invalidation, the flip-flop guard, and
// signal geometry.
type PullbackStrategy struct {
	symbol       string
	timeframe    string
	detector     SetupDetector
	snapCfg      indicator.SnapshotConfig
	riskToReward float64
	adxThreshold float64
	logger       *zap.Logger

	phase   phase
	dir     Direction
	pending *Setup
}

// NewPullbackStrategy builds the state machine around the given detector.
// A non-positive risk-to-reward is a configuration error.
func NewPullbackStrategy(detector SetupDetector, opts PullbackOptions) (*PullbackStrategy, error) {
	if detector == nil {
		return nil, fmt.Errorf("setup detector is required")
	}
	if opts.RiskToReward <= 0 {
		return nil, fmt.Errorf("risk to reward must be positive, got %v", opts.RiskToReward)
	}
	if err := opts.Snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot config: %w", err)
	}
	if opts.ADXThreshold > 0 && opts.Snapshot.ADXPeriod <= 0 {
		return nil, fmt.Errorf("adx filter requires an adx period")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PullbackStrategy{
		symbol:       opts.Symbol,
		timeframe:    opts.Timeframe,
		detector:     detector,
		snapCfg:      opts.Snapshot,
		riskToReward: opts.RiskToReward,
		adxThreshold: opts.ADXThreshold,
		logger:       logger,
		phase:        phaseSearching,
	}, nil
}

func (s *PullbackStrategy) Name() string      { return s.detector.Name() }
func (s *PullbackStrategy) Symbol() string    { return s.symbol }
func (s *PullbackStrategy) Timeframe() string { return s.timeframe }

// WarmupPeriod returns the bars needed before OnBar can evaluate setups.
// The extra bar covers the previous-frame snapshot.
func (s *PullbackStrategy) WarmupPeriod() int {
	warmup := s.snapCfg.MinBars() + 1
	if d := s.detector.Warmup(); d > warmup {
		warmup = d
	}
	return warmup
}

// OnPositionClosed resets the machine to Searching so each closed trade
// starts a clean setup search regardless of outcome.
func (s *PullbackStrategy) OnPositionClosed() {
	s.reset("position closed")
}

func (s *PullbackStrategy) reset(why string) {
	if s.phase != phaseSearching || s.pending != nil {
		s.logger.Debug("pullback state reset",
			zap.String("strategy", s.Name()),
			zap.String("reason", why))
	}
	s.phase = phaseSearching
	s.dir = 0
	s.pending = nil
}

// OnBar advances the state machine by one completed bar. The window is only
// read. A nil signal with nil error is the ordinary no-setup outcome.
func (s *PullbackStrategy) OnBar(window []candle.Candle) (*Signal, error) {
	if len(window) < 2 {
		return nil, nil
	}
	lastSnap, ok := indicator.Compute(window, s.snapCfg)
	if !ok {
		return nil, nil // insufficient lookback, normal while warming up
	}
	prevSnap, ok := indicator.Compute(window[:len(window)-1], s.snapCfg)
	if !ok {
		return nil, nil
	}
	prev := Frame{Bar: window[len(window)-2], Snap: prevSnap}
	last := Frame{Bar: window[len(window)-1], Snap: lastSnap}

	trend := s.detector.Trend(last)

	switch s.phase {
	case phaseSearching:
		s.search(trend, window, prev, last)
		return nil, nil // impulse confirmation never emits a signal

	case phaseImpulseConfirmed:
		// Trend filter flipped against the confirmed impulse
		if trend != 0 && trend != s.dir {
			s.reset("trend flip")
			return nil, nil
		}
		// Opposite impulse while confirmed one-sided: reset, never emit
		if d, _ := s.detector.DetectImpulse(window, prev, last); d != 0 && d != s.dir {
			s.reset("opposite impulse")
			return nil, nil
		}
		if s.pending != nil {
			return s.evaluatePending(last), nil
		}
		entry, confirmed := s.detector.ConfirmEntry(s.dir, prev, last)
		if !confirmed {
			return nil, nil
		}
		stop := s.detector.StopLoss(s.dir, last)
		return s.emit(last, entry, stop, false), nil
	}
	return nil, nil
}

// search runs the impulse detection guards while in Searching.
func (s *PullbackStrategy) search(trend Direction, window []candle.Candle, prev, last Frame) {
	if s.adxThreshold > 0 && (math.IsNaN(last.Snap.ADX) || last.Snap.ADX < s.adxThreshold) {
		return
	}
	dir, setup := s.detector.DetectImpulse(window, prev, last)
	if dir == 0 {
		return
	}
	if trend != 0 && trend != dir {
		return
	}
	s.phase = phaseImpulseConfirmed
	s.dir = dir
	s.pending = setup
	s.logger.Debug("impulse confirmed",
		zap.String("strategy", s.Name()),
		zap.String("direction", dir.String()),
		zap.Time("bar", last.Bar.Timestamp),
		zap.Bool("pending_setup", setup != nil))
}

// evaluatePending handles the limit-style path: the setup is invalidated when
// the stop level trades before the entry, and triggers when the entry price
// trades. The stop check runs first, the conservative order for bars that
// sweep both levels.
func (s *PullbackStrategy) evaluatePending(last Frame) *Signal {
	p := s.pending
	switch s.dir {
	case Long:
		if last.Bar.Low <= p.Stop {
			s.reset("pending setup invalidated")
			return nil
		}
		if last.Bar.Low <= p.Entry {
			return s.emit(last, p.Entry, p.Stop, true)
		}
	case Short:
		if last.Bar.High >= p.Stop {
			s.reset("pending setup invalidated")
			return nil
		}
		if last.Bar.High >= p.Entry {
			return s.emit(last, p.Entry, p.Stop, true)
		}
	}
	return nil
}

// emit finalizes a signal, guarding against degenerate risk geometry.
func (s *PullbackStrategy) emit(last Frame, entry, stop float64, limit bool) *Signal {
	dir := s.dir
	s.reset("signal emitted")

	if math.IsNaN(entry) || math.IsNaN(stop) {
		return nil
	}
	// Entry on the wrong side of the stop is an invalid setup, not an error
	if dir == Long && entry <= stop {
		return nil
	}
	if dir == Short && entry >= stop {
		return nil
	}

	riskDistance := math.Abs(entry - stop)
	takeProfit := entry + riskDistance*s.riskToReward
	if dir == Short {
		takeProfit = entry - riskDistance*s.riskToReward
	}

	sig := &Signal{
		Time:         last.Bar.Timestamp,
		Direction:    dir,
		EntryPrice:   entry,
		StopLoss:     stop,
		TakeProfit:   takeProfit,
		Limit:        limit,
		Reason:       "pullback entry",
		StrategyName: s.Name(),
	}
	s.logger.Info("signal emitted",
		zap.String("strategy", sig.StrategyName),
		zap.String("direction", dir.String()),
		zap.Float64("entry", entry),
		zap.Float64("stop_loss", stop),
		zap.Float64("take_profit", takeProfit))
	return sig
}
