package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	wallex "github.com/wallexchange/wallex-go"
	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/candle"
	"github.com/aliirezaaa/trade-bot/internal/tfutils"
)

// WallexExchange talks to the Wallex REST API.
type WallexExchange struct {
	client wallexAPI
	logger *zap.Logger
}

func NewWallexExchange(apiKey string, logger *zap.Logger) *WallexExchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WallexExchange{
		client: wallex.New(wallex.ClientOptions{APIKey: apiKey}),
		logger: logger,
	}
}

// newWallexWithClient is the test seam.
func newWallexWithClient(client wallexAPI, logger *zap.Logger) *WallexExchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WallexExchange{client: client, logger: logger}
}

func (w *WallexExchange) Name() string { return "wallex" }

// retry wraps a function with retry logic for transient errors, using
// exponential backoff capped at 5 minutes.
func (w *WallexExchange) retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	backoff := delay
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		w.logger.Warn("wallex call failed",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Error(lastErr),
			zap.Duration("backoff", backoff))
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Minute {
			backoff *= 2
			if backoff > 5*time.Minute {
				backoff = 5 * time.Minute
			}
		}
	}
	return fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// FetchCandles pulls [start, end] candles and drops any malformed rows.
func (w *WallexExchange) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	if !tfutils.IsValidTimeframe(timeframe) {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}

	var wallexCandles []*wallex.Candle
	err := w.retry(ctx, 3, 2*time.Second, func() error {
		var err error
		wallexCandles, err = w.client.Candles(NormalizeSymbol(symbol), NormalizedTimeframe(timeframe), start, end)
		if err != nil {
			return fmt.Errorf("fetching candles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("FetchCandles failed: %w", err)
	}

	var candles []candle.Candle
	for _, wc := range wallexCandles {
		c := candle.Candle{
			Timestamp: wc.Timestamp.UTC().Truncate(time.Minute),
			Open:      number(wc.Open),
			High:      number(wc.High),
			Low:       number(wc.Low),
			Close:     number(wc.Close),
			Volume:    number(wc.Volume),
			Symbol:    symbol,
			Timeframe: timeframe,
			Source:    w.Name(),
		}
		if err := c.Validate(); err != nil {
			w.logger.Debug("skipping invalid candle",
				zap.Time("timestamp", c.Timestamp),
				zap.Error(err))
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (w *WallexExchange) SubmitOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	params := &wallex.OrderParams{
		Symbol:   NormalizeSymbol(req.Symbol),
		Type:     strings.ToUpper(req.Type),
		Side:     strings.ToUpper(req.Side),
		Price:    wallex.Number(strconv.FormatFloat(req.Price, 'f', 8, 64)),
		Quantity: wallex.Number(strconv.FormatFloat(req.Quantity, 'f', 8, 64)),
	}
	resp, err := w.client.PlaceOrder(params)
	if err != nil {
		return Order{}, fmt.Errorf("place order: %w", err)
	}

	return Order{
		OrderID:   resp.ClientOrderID,
		Status:    strings.ToUpper(resp.Status),
		FilledQty: numberPtr(resp.ExecutedQty),
		AvgPrice:  numberPtr(resp.ExecutedPrice),
		Timestamp: resp.CreatedAt.UTC(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		Quantity:  req.Quantity,
	}, nil
}

// SubmitOrderWithRetry retries transient submission failures.
func (w *WallexExchange) SubmitOrderWithRetry(ctx context.Context, req OrderRequest, maxAttempts int, delay time.Duration) (Order, error) {
	var ord Order
	err := w.retry(ctx, maxAttempts, delay, func() error {
		var err error
		ord, err = w.SubmitOrder(ctx, req)
		return err
	})
	return ord, err
}

func (w *WallexExchange) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.client.CancelOrder(orderID)
}

func number(n wallex.Number) float64 {
	out, _ := strconv.ParseFloat(string(n), 64)
	return out
}

func numberPtr(n *wallex.Number) float64 {
	if n == nil {
		return 0
	}
	return number(*n)
}
