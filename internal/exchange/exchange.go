// Package exchange
package exchange

import (
	"context"
	"strings"
	"time"

	wallex "github.com/wallexchange/wallex-go"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

// OrderRequest is a broker-agnostic order submission.
type OrderRequest struct {
	Symbol   string
	Side     string // "buy" or "sell"
	Type     string // "market" or "limit"
	Price    float64
	Quantity float64
}

// Order is the exchange's view of a submitted order.
type Order struct {
	OrderID   string
	Status    string
	FilledQty float64
	AvgPrice  float64
	Timestamp time.Time
	Symbol    string
	Side      string
	Type      string
	Price     float64
	Quantity  float64
}

// Exchange is the surface the bot needs from a venue: history for backfill
// and order entry for the live bridge.
type Exchange interface {
	Name() string
	FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// wallexAPI is the slice of the wallex client used here, an interface so
// tests can substitute a scripted client.
type wallexAPI interface {
	Candles(symbol, resolution string, from, to time.Time) ([]*wallex.Candle, error)
	PlaceOrder(params *wallex.OrderParams) (*wallex.Order, error)
	CancelOrder(clientOrderID string) error
}

// NormalizeSymbol converts e.g. btc-usdt to BTCUSDT for the Wallex API.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
}

// NormalizedTimeframe maps e.g. 15m to the Wallex resolution 15.
func NormalizedTimeframe(timeframe string) string {
	return strings.TrimSuffix(timeframe, "m")
}
