package broker

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/strategy"
)

// SimConfig parametrizes the simulated broker.
type SimConfig struct {
	InitialBalance float64
	PipSize        float64
	PipValuePerLot float64
	FeePerTrade    float64
}

// Validate checks the config before a simulation starts.
func (c SimConfig) Validate() error {
	if c.InitialBalance <= 0 || !isFinite(c.InitialBalance) {
		return fmt.Errorf("initial balance must be positive, got %v", c.InitialBalance)
	}
	if c.PipSize <= 0 || !isFinite(c.PipSize) {
		return fmt.Errorf("pip size must be positive, got %v", c.PipSize)
	}
	if c.PipValuePerLot <= 0 || !isFinite(c.PipValuePerLot) {
		return fmt.Errorf("pip value per lot must be positive, got %v", c.PipValuePerLot)
	}
	if c.FeePerTrade < 0 || !isFinite(c.FeePerTrade) {
		return fmt.Errorf("fee per trade must not be negative, got %v", c.FeePerTrade)
	}
	return nil
}

type pendingOrder struct {
	sig    strategy.Signal
	volume float64
}

// SimBroker replays fills against historical bars. Orders accepted on one bar
// fill on the next bar seen by Check: market orders at that bar's open, limit
// orders at the signal's entry price. Stops and targets are checked against
// each bar's full range, stop first when both are inside the bar.
type SimBroker struct {
	cfg     SimConfig
	logger  *zap.Logger
	account Account
	pending *pendingOrder
	open    *Position
	history []Position
	closed  bool
	onClose func()
}

// NewSimBroker builds a broker with the given starting balance.
func NewSimBroker(cfg SimConfig, logger *zap.Logger) (*SimBroker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid broker config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimBroker{
		cfg:    cfg,
		logger: logger,
		account: Account{
			InitialBalance: cfg.InitialBalance,
			Balance:        cfg.InitialBalance,
		},
	}, nil
}

// Open queues an order for the next bar. While a position or pending order
// exists the call is a logged no-op.
func (b *SimBroker) Open(sig strategy.Signal, volume float64) (bool, error) {
	if sig.Direction != strategy.Long && sig.Direction != strategy.Short {
		return false, fmt.Errorf("signal has no direction: %d", sig.Direction)
	}
	if !isFinite(sig.EntryPrice) || !isFinite(sig.StopLoss) || !isFinite(sig.TakeProfit) {
		return false, fmt.Errorf("signal has non-finite prices: entry=%v sl=%v tp=%v",
			sig.EntryPrice, sig.StopLoss, sig.TakeProfit)
	}
	if b.IsActive() {
		b.logger.Debug("order rejected, position already active",
			zap.String("strategy", sig.StrategyName))
		return false, nil
	}
	if volume <= 0 || !isFinite(volume) {
		b.logger.Debug("order rejected, volume not positive",
			zap.Float64("volume", volume),
			zap.String("strategy", sig.StrategyName))
		return false, nil
	}
	b.pending = &pendingOrder{sig: sig, volume: volume}
	b.logger.Info("order accepted",
		zap.String("direction", sig.Direction.String()),
		zap.Float64("volume", volume),
		zap.Float64("stop_loss", sig.StopLoss),
		zap.Float64("take_profit", sig.TakeProfit))
	return true, nil
}

// Check fills the pending order, if any, then evaluates exit levels against
// the bar. A fill and its stop-out may happen on the same bar.
func (b *SimBroker) Check(bar candle.Candle) {
	if b.pending != nil {
		b.fill(bar)
	}
	if b.open != nil {
		b.checkExits(bar)
	}
}

func (b *SimBroker) fill(bar candle.Candle) {
	ord := b.pending
	b.pending = nil

	entry := bar.Open
	if ord.sig.Limit {
		entry = ord.sig.EntryPrice
	}
	b.open = &Position{
		ID:         uuid.NewString(),
		Direction:  ord.sig.Direction,
		Volume:     ord.volume,
		EntryPrice: entry,
		EntryTime:  bar.Timestamp,
		StopLoss:   ord.sig.StopLoss,
		TakeProfit: ord.sig.TakeProfit,
	}
	b.logger.Info("position opened",
		zap.String("id", b.open.ID),
		zap.String("direction", b.open.Direction.String()),
		zap.Float64("entry", entry),
		zap.Time("time", bar.Timestamp))
}

func (b *SimBroker) checkExits(bar candle.Candle) {
	p := b.open
	switch p.Direction {
	case strategy.Long:
		if bar.Low <= p.StopLoss {
			b.close(p.StopLoss, bar, CloseStopLoss)
		} else if bar.High >= p.TakeProfit {
			b.close(p.TakeProfit, bar, CloseTakeProfit)
		}
	case strategy.Short:
		if bar.High >= p.StopLoss {
			b.close(p.StopLoss, bar, CloseStopLoss)
		} else if bar.Low <= p.TakeProfit {
			b.close(p.TakeProfit, bar, CloseTakeProfit)
		}
	}
}

func (b *SimBroker) close(exit float64, bar candle.Candle, reason CloseReason) {
	p := b.open
	b.open = nil

	pips := (exit - p.EntryPrice) / b.cfg.PipSize
	if p.Direction == strategy.Short {
		pips = -pips
	}
	p.ExitPrice = exit
	p.ExitTime = bar.Timestamp
	p.RealizedPnL = pips*b.cfg.PipValuePerLot*p.Volume - b.cfg.FeePerTrade
	p.CloseReason = reason

	b.account.Balance += p.RealizedPnL
	b.history = append(b.history, *p)

	b.logger.Info("position closed",
		zap.String("id", p.ID),
		zap.String("reason", string(reason)),
		zap.Float64("exit", exit),
		zap.Float64("pnl", p.RealizedPnL),
		zap.Float64("balance", b.account.Balance))

	if b.onClose != nil {
		b.onClose()
	}
}

// CloseAll drops any pending order and closes the open position at the final
// bar's close. Safe to call more than once.
func (b *SimBroker) CloseAll(finalBar candle.Candle) {
	if b.closed {
		return
	}
	b.closed = true
	b.pending = nil
	if b.open != nil {
		b.close(finalBar.Close, finalBar, CloseEndOfData)
	}
}

// IsActive reports whether an open position or a pending fill exists.
func (b *SimBroker) IsActive() bool { return b.open != nil || b.pending != nil }

// SetOnPositionClosed registers the close callback.
func (b *SimBroker) SetOnPositionClosed(fn func()) { b.onClose = fn }

// History returns a copy of all closed positions, oldest first.
func (b *SimBroker) History() []Position {
	out := make([]Position, len(b.history))
	copy(out, b.history)
	return out
}

// Account returns a snapshot of the account.
func (b *SimBroker) Account() Account { return b.account }

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
