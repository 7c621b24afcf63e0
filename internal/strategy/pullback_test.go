package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/indicator"
)

// stubDetector scripts the variant guards so the state machine can be
// driven through every transition deterministically.
type stubDetector struct {
	trend   Direction
	impulse Direction
	setup   *Setup
	confirm bool
	entry   float64
	stop    float64
}

func (d *stubDetector) Name() string            { return "stub" }
func (d *stubDetector) Warmup() int             { return 0 }
func (d *stubDetector) Trend(_ Frame) Direction { return d.trend }

func (d *stubDetector) DetectImpulse(_ []candle.Candle, _, _ Frame) (Direction, *Setup) {
	return d.impulse, d.setup
}

func (d *stubDetector) ConfirmEntry(_ Direction, _, _ Frame) (float64, bool) {
	return d.entry, d.confirm
}

func (d *stubDetector) StopLoss(_ Direction, _ Frame) float64 { return d.stop }

func stubConfig() indicator.SnapshotConfig {
	return indicator.SnapshotConfig{EMAFastPeriod: 2, EMASlowPeriod: 3, ATRPeriod: 3}
}

func newStubStrategy(t *testing.T, det *stubDetector) *PullbackStrategy {
	t.Helper()
	s, err := NewPullbackStrategy(det, PullbackOptions{
		Symbol:       "EURUSD",
		Timeframe:    "1h",
		Snapshot:     stubConfig(),
		RiskToReward: 2.0,
	})
	require.NoError(t, err)
	return s
}

func seriesBar(i int, open, high, low, close float64) candle.Candle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return candle.Candle{
		Timestamp: start.Add(time.Duration(i) * time.Hour),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    100,
		Symbol:    "EURUSD",
		Timeframe: "1h",
	}
}

// driftWindow returns n mildly rising bars, enough for the stub snapshot
// config to warm up.
func driftWindow(n int) []candle.Candle {
	out := make([]candle.Candle, n)
	for i := range out {
		c := 100 + 0.1*float64(i)
		out[i] = seriesBar(i, c-0.05, c+0.1, c-0.1, c)
	}
	return out
}

func TestNewPullbackStrategyValidation(t *testing.T) {
	_, err := NewPullbackStrategy(nil, PullbackOptions{Snapshot: stubConfig(), RiskToReward: 2})
	assert.Error(t, err)

	_, err = NewPullbackStrategy(&stubDetector{}, PullbackOptions{Snapshot: stubConfig()})
	assert.Error(t, err)

	_, err = NewPullbackStrategy(&stubDetector{}, PullbackOptions{
		Snapshot: stubConfig(), RiskToReward: 2, ADXThreshold: 25,
	})
	assert.Error(t, err, "adx filter without an adx period")
}

func TestImpulseBarNeverEmits(t *testing.T) {
	det := &stubDetector{trend: Long, impulse: Long, confirm: true, entry: 100.5, stop: 99.5}
	s := newStubStrategy(t, det)

	// Impulse and entry confirm both hold on the same bar: impulse
	// confirmation must still consume the bar without a signal.
	sig, err := s.OnBar(driftWindow(6))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestImpulseThenEntryEmitsOnce(t *testing.T) {
	det := &stubDetector{trend: Long, impulse: Long, confirm: false}
	s := newStubStrategy(t, det)

	sig, err := s.OnBar(driftWindow(6))
	require.NoError(t, err)
	require.Nil(t, sig)

	det.confirm = true
	det.entry = 100.5
	det.stop = 99.5
	sig, err = s.OnBar(driftWindow(7))
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, Long, sig.Direction)
	assert.Equal(t, 100.5, sig.EntryPrice)
	assert.Equal(t, 99.5, sig.StopLoss)
	assert.InDelta(t, 102.5, sig.TakeProfit, 1e-9) // entry + 2.0 * risk distance
	assert.False(t, sig.Limit)
	assert.Equal(t, "stub", sig.StrategyName)

	// Machine reset on emit: no second signal without a fresh impulse.
	det.impulse = 0
	sig, err = s.OnBar(driftWindow(8))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestShortTakeProfitBelowEntry(t *testing.T) {
	det := &stubDetector{trend: Short, impulse: Short, confirm: false}
	s := newStubStrategy(t, det)

	_, err := s.OnBar(driftWindow(6))
	require.NoError(t, err)

	det.confirm = true
	det.entry = 100.0
	det.stop = 100.8
	sig, err := s.OnBar(driftWindow(7))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, Short, sig.Direction)
	assert.InDelta(t, 98.4, sig.TakeProfit, 1e-9)
}

func TestOppositeImpulseResetsWithoutEmitting(t *testing.T) {
	det := &stubDetector{trend: 0, impulse: Long}
	s := newStubStrategy(t, det)

	_, err := s.OnBar(driftWindow(6))
	require.NoError(t, err)

	det.impulse = Short
	det.confirm = true
	det.entry = 100.5
	det.stop = 99.5
	sig, err := s.OnBar(driftWindow(7))
	require.NoError(t, err)
	assert.Nil(t, sig)

	// Back to searching: the short impulse confirms on the next bar.
	sig, err = s.OnBar(driftWindow(8))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestTrendFlipResets(t *testing.T) {
	det := &stubDetector{trend: Long, impulse: Long}
	s := newStubStrategy(t, det)

	_, err := s.OnBar(driftWindow(6))
	require.NoError(t, err)

	det.trend = Short
	det.impulse = 0
	det.confirm = true
	det.entry = 100.5
	det.stop = 99.5
	sig, err := s.OnBar(driftWindow(7))
	require.NoError(t, err)
	assert.Nil(t, sig)

	// Reset happened: entry confirm alone cannot emit from searching.
	det.trend = Long
	sig, err = s.OnBar(driftWindow(8))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestOnPositionClosedResetsSearch(t *testing.T) {
	det := &stubDetector{trend: Long, impulse: Long}
	s := newStubStrategy(t, det)

	_, err := s.OnBar(driftWindow(6))
	require.NoError(t, err)

	s.OnPositionClosed()

	det.impulse = 0
	det.confirm = true
	det.entry = 100.5
	det.stop = 99.5
	sig, err := s.OnBar(driftWindow(7))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestInvalidStopGeometryEmitsNothing(t *testing.T) {
	det := &stubDetector{trend: Long, impulse: Long}
	s := newStubStrategy(t, det)

	_, err := s.OnBar(driftWindow(6))
	require.NoError(t, err)

	// Stop above entry on a long is a broken setup.
	det.impulse = 0
	det.confirm = true
	det.entry = 100.0
	det.stop = 100.5
	sig, err := s.OnBar(driftWindow(7))
	require.NoError(t, err)
	assert.Nil(t, sig)

	// The broken setup also reset the machine.
	det.entry = 100.5
	det.stop = 99.5
	sig, err = s.OnBar(driftWindow(8))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestADXFilterBlocksImpulse(t *testing.T) {
	det := &stubDetector{trend: Long, impulse: Long, confirm: true, entry: 100.5, stop: 99.5}
	cfg := stubConfig()
	cfg.ADXPeriod = 2
	s, err := NewPullbackStrategy(det, PullbackOptions{
		Symbol:       "EURUSD",
		Timeframe:    "1h",
		Snapshot:     cfg,
		RiskToReward: 2.0,
		ADXThreshold: 90, // a gently drifting series never trends this hard
	})
	require.NoError(t, err)

	for n := 6; n <= 10; n++ {
		sig, err := s.OnBar(driftWindow(n))
		require.NoError(t, err)
		assert.Nil(t, sig)
	}
}

func pendingWindow(n int, lastLow float64) []candle.Candle {
	out := driftWindow(n)
	last := &out[n-1]
	last.Low = lastLow
	if last.Open < lastLow {
		last.Open = lastLow
	}
	if last.Close < lastLow {
		last.Close = lastLow
	}
	return out
}

func TestPendingSetupTriggersLimitSignal(t *testing.T) {
	det := &stubDetector{trend: 0, impulse: Long, setup: &Setup{Entry: 99.0, Stop: 98.5}}
	s := newStubStrategy(t, det)

	sig, err := s.OnBar(pendingWindow(6, 99.8))
	require.NoError(t, err)
	require.Nil(t, sig)

	// Price holds above the entry: still pending.
	sig, err = s.OnBar(pendingWindow(7, 99.3))
	require.NoError(t, err)
	require.Nil(t, sig)

	// Entry trades without the stop trading first.
	sig, err = s.OnBar(pendingWindow(8, 98.9))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.Limit)
	assert.Equal(t, 99.0, sig.EntryPrice)
	assert.Equal(t, 98.5, sig.StopLoss)
	assert.InDelta(t, 100.0, sig.TakeProfit, 1e-9)
}

func TestPendingSetupInvalidatedWhenStopTradesFirst(t *testing.T) {
	det := &stubDetector{trend: 0, impulse: Long, setup: &Setup{Entry: 99.0, Stop: 98.5}}
	s := newStubStrategy(t, det)

	_, err := s.OnBar(pendingWindow(6, 99.8))
	require.NoError(t, err)

	// One bar sweeps both levels: invalidation wins over the fill.
	det.impulse = 0
	det.setup = nil
	sig, err := s.OnBar(pendingWindow(7, 98.3))
	require.NoError(t, err)
	assert.Nil(t, sig)

	// Invalidation reset the machine: a clean trigger bar emits nothing.
	sig, err = s.OnBar(pendingWindow(8, 98.9))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestEMAPullbackEndToEnd(t *testing.T) {
	det, err := NewEMADetector(1.0, 0.5)
	require.NoError(t, err)

	snapCfg := indicator.SnapshotConfig{EMAFastPeriod: 3, EMASlowPeriod: 5, ATRPeriod: 3}
	s, err := NewPullbackStrategy(det, PullbackOptions{
		Symbol:       "EURUSD",
		Timeframe:    "1h",
		Snapshot:     snapCfg,
		RiskToReward: 2.0,
	})
	require.NoError(t, err)

	bars := make([]candle.Candle, 0, 9)
	for i := 0; i < 7; i++ {
		c := 100 + 0.2*float64(i)
		bars = append(bars, seriesBar(i, c-0.2, c+0.1, c-0.3, c))
	}
	// Breakaway bar stretches well past the fast EMA plus one ATR.
	bars = append(bars, seriesBar(7, 104.2, 105.5, 104.0, 105.0))
	// Pullback bar tags the fast EMA from above.
	bars = append(bars, seriesBar(8, 103.8, 103.9, 103.0, 103.4))

	var signals []*Signal
	for n := s.WarmupPeriod(); n <= len(bars); n++ {
		sig, err := s.OnBar(bars[:n])
		require.NoError(t, err)
		if sig != nil {
			signals = append(signals, sig)
		}
	}

	require.Len(t, signals, 1)
	sig := signals[0]
	assert.Equal(t, Long, sig.Direction)
	assert.Equal(t, bars[8].Close, sig.EntryPrice)
	assert.Equal(t, bars[8].Timestamp, sig.Time)

	snap, ok := indicator.Compute(bars, snapCfg)
	require.True(t, ok)
	assert.InDelta(t, snap.EMASlow-0.5*snap.ATR, sig.StopLoss, 1e-9)
	risk := sig.EntryPrice - sig.StopLoss
	assert.InDelta(t, sig.EntryPrice+2.0*risk, sig.TakeProfit, 1e-9)
}

func TestFlatSeriesEmitsNothing(t *testing.T) {
	det, err := NewEMADetector(1.5, 0.5)
	require.NoError(t, err)

	s, err := NewPullbackStrategy(det, PullbackOptions{
		Symbol:       "EURUSD",
		Timeframe:    "1h",
		Snapshot:     indicator.SnapshotConfig{EMAFastPeriod: 3, EMASlowPeriod: 5, ATRPeriod: 3},
		RiskToReward: 2.0,
	})
	require.NoError(t, err)

	bars := make([]candle.Candle, 10)
	for i := range bars {
		bars[i] = seriesBar(i, 100, 100, 100, 100)
	}
	for n := s.WarmupPeriod(); n <= len(bars); n++ {
		sig, err := s.OnBar(bars[:n])
		require.NoError(t, err)
		assert.Nil(t, sig)
	}
}
