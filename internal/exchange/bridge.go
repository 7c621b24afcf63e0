package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/broker"
	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/strategy"
)

// BridgeConfig parametrizes the live execution bridge.
type BridgeConfig struct {
	Symbol         string
	InitialBalance float64
	PipSize        float64
	PipValuePerLot float64
	OrderRetries   int
	OrderDelay     time.Duration
}

// LiveBridge adapts an Exchange to the broker ledger contract, so the trading
// loop drives live execution the same way it drives the simulation. Stops and
// targets are enforced bot-side: each completed bar is checked and breaches
// are closed with a market order.
type LiveBridge struct {
	ex      Exchange
	cfg     BridgeConfig
	logger  *zap.Logger
	account broker.Account
	open    *broker.Position
	history []broker.Position
	closed  bool
	onClose func()
}

func NewLiveBridge(ex Exchange, cfg BridgeConfig, logger *zap.Logger) *LiveBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OrderRetries <= 0 {
		cfg.OrderRetries = 3
	}
	if cfg.OrderDelay <= 0 {
		cfg.OrderDelay = 2 * time.Second
	}
	return &LiveBridge{
		ex:     ex,
		cfg:    cfg,
		logger: logger,
		account: broker.Account{
			InitialBalance: cfg.InitialBalance,
			Balance:        cfg.InitialBalance,
		},
	}
}

func (b *LiveBridge) submit(req OrderRequest) (Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if r, ok := b.ex.(*WallexExchange); ok {
		return r.SubmitOrderWithRetry(ctx, req, b.cfg.OrderRetries, b.cfg.OrderDelay)
	}
	return b.ex.SubmitOrder(ctx, req)
}

// Open submits an entry order for the signal. Limit signals are priced at
// the signal entry, market signals at the venue.
func (b *LiveBridge) Open(sig strategy.Signal, volume float64) (bool, error) {
	if b.IsActive() {
		b.logger.Debug("order skipped, position already active")
		return false, nil
	}
	if volume <= 0 {
		b.logger.Debug("order skipped, volume not positive", zap.Float64("volume", volume))
		return false, nil
	}

	side := "buy"
	if sig.Direction == strategy.Short {
		side = "sell"
	}
	ordType := "market"
	if sig.Limit {
		ordType = "limit"
	}
	ord, err := b.submit(OrderRequest{
		Symbol:   b.cfg.Symbol,
		Side:     side,
		Type:     ordType,
		Price:    sig.EntryPrice,
		Quantity: volume,
	})
	if err != nil {
		return false, err
	}

	entry := ord.AvgPrice
	if entry == 0 {
		entry = sig.EntryPrice
	}
	b.open = &broker.Position{
		ID:         uuid.NewString(),
		Direction:  sig.Direction,
		Volume:     volume,
		EntryPrice: entry,
		EntryTime:  time.Now().UTC(),
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	}
	b.logger.Info("live position opened",
		zap.String("id", b.open.ID),
		zap.String("order_id", ord.OrderID),
		zap.String("side", side),
		zap.Float64("entry", entry),
		zap.Float64("volume", volume))
	return true, nil
}

// Check enforces the stop and target against the completed bar.
func (b *LiveBridge) Check(bar candle.Candle) {
	if b.open == nil {
		return
	}
	p := b.open
	switch p.Direction {
	case strategy.Long:
		if bar.Low <= p.StopLoss {
			b.close(p.StopLoss, bar.Timestamp, broker.CloseStopLoss)
		} else if bar.High >= p.TakeProfit {
			b.close(p.TakeProfit, bar.Timestamp, broker.CloseTakeProfit)
		}
	case strategy.Short:
		if bar.High >= p.StopLoss {
			b.close(p.StopLoss, bar.Timestamp, broker.CloseStopLoss)
		} else if bar.Low <= p.TakeProfit {
			b.close(p.TakeProfit, bar.Timestamp, broker.CloseTakeProfit)
		}
	}
}

func (b *LiveBridge) close(exit float64, at time.Time, reason broker.CloseReason) {
	p := b.open

	side := "sell"
	if p.Direction == strategy.Short {
		side = "buy"
	}
	ord, err := b.submit(OrderRequest{
		Symbol:   b.cfg.Symbol,
		Side:     side,
		Type:     "market",
		Quantity: p.Volume,
	})
	if err != nil {
		// Keep the position on the book and retry on the next bar.
		b.logger.Error("failed to close live position",
			zap.String("id", p.ID),
			zap.Error(err))
		return
	}
	if ord.AvgPrice > 0 {
		exit = ord.AvgPrice
	}

	b.open = nil
	pips := (exit - p.EntryPrice) / b.cfg.PipSize
	if p.Direction == strategy.Short {
		pips = -pips
	}
	p.ExitPrice = exit
	p.ExitTime = at
	p.RealizedPnL = pips * b.cfg.PipValuePerLot * p.Volume
	p.CloseReason = reason

	b.account.Balance += p.RealizedPnL
	b.history = append(b.history, *p)

	b.logger.Info("live position closed",
		zap.String("id", p.ID),
		zap.String("reason", string(reason)),
		zap.Float64("exit", exit),
		zap.Float64("pnl", p.RealizedPnL))

	if b.onClose != nil {
		b.onClose()
	}
}

// CloseAll flattens the book, used on shutdown.
func (b *LiveBridge) CloseAll(finalBar candle.Candle) {
	if b.closed {
		return
	}
	b.closed = true
	if b.open != nil {
		b.close(finalBar.Close, finalBar.Timestamp, broker.CloseEndOfData)
	}
}

func (b *LiveBridge) IsActive() bool { return b.open != nil }

func (b *LiveBridge) SetOnPositionClosed(fn func()) { b.onClose = fn }

func (b *LiveBridge) History() []broker.Position {
	out := make([]broker.Position, len(b.history))
	copy(out, b.history)
	return out
}

func (b *LiveBridge) Account() broker.Account { return b.account }
