package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wallex "github.com/wallexchange/wallex-go"
)

// mockWallex scripts the wallex client for tests.
type mockWallex struct {
	candles      []*wallex.Candle
	candlesErr   []error // one per call, nil-padded
	candleCalls  int
	placedParams *wallex.OrderParams
	placeResp    *wallex.Order
	placeErr     error
	canceledID   string
}

func (m *mockWallex) Candles(symbol, resolution string, from, to time.Time) ([]*wallex.Candle, error) {
	call := m.candleCalls
	m.candleCalls++
	if call < len(m.candlesErr) && m.candlesErr[call] != nil {
		return nil, m.candlesErr[call]
	}
	return m.candles, nil
}

func (m *mockWallex) PlaceOrder(params *wallex.OrderParams) (*wallex.Order, error) {
	m.placedParams = params
	return m.placeResp, m.placeErr
}

func (m *mockWallex) CancelOrder(clientOrderID string) error {
	m.canceledID = clientOrderID
	return nil
}

func wallexCandle(ts time.Time, o, h, l, c string) *wallex.Candle {
	return &wallex.Candle{
		Timestamp: ts,
		Open:      wallex.Number(o),
		High:      wallex.Number(h),
		Low:       wallex.Number(l),
		Close:     wallex.Number(c),
		Volume:    wallex.Number("12.5"),
	}
}

func TestFetchCandlesParsesAndValidates(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock := &mockWallex{
		candles: []*wallex.Candle{
			wallexCandle(t0, "100", "101", "99", "100.5"),
			// High below low: dropped during validation.
			wallexCandle(t0.Add(time.Minute), "100", "98", "99", "100"),
			wallexCandle(t0.Add(2*time.Minute), "100.5", "102", "100", "101.5"),
		},
	}
	ex := newWallexWithClient(mock, nil)

	got, err := ex.FetchCandles(context.Background(), "btc-usdt", "1m", t0, t0.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.5, got[0].Close)
	assert.Equal(t, "wallex", got[0].Source)
	assert.Equal(t, "btc-usdt", got[0].Symbol)
	assert.Equal(t, "1m", got[0].Timeframe)
}

func TestFetchCandlesRejectsUnknownTimeframe(t *testing.T) {
	ex := newWallexWithClient(&mockWallex{}, nil)
	_, err := ex.FetchCandles(context.Background(), "BTCUSDT", "7m", time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
}

func TestFetchCandlesRetriesTransientErrors(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock := &mockWallex{
		candles:    []*wallex.Candle{wallexCandle(t0, "100", "101", "99", "100.5")},
		candlesErr: []error{errors.New("rate limited")},
	}
	ex := newWallexWithClient(mock, nil)

	got, err := ex.FetchCandles(context.Background(), "BTCUSDT", "1m", t0, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, mock.candleCalls)
}

func TestSubmitOrderMapsRequestAndResponse(t *testing.T) {
	qty := wallex.Number("0.5")
	price := wallex.Number("101.25")
	mock := &mockWallex{
		placeResp: &wallex.Order{
			ClientOrderID: "abc-123",
			Status:        "filled",
			ExecutedQty:   &qty,
			ExecutedPrice: &price,
			CreatedAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	ex := newWallexWithClient(mock, nil)

	ord, err := ex.SubmitOrder(context.Background(), OrderRequest{
		Symbol:   "btc-usdt",
		Side:     "buy",
		Type:     "limit",
		Price:    101.25,
		Quantity: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", mock.placedParams.Symbol)
	assert.Equal(t, "LIMIT", mock.placedParams.Type)
	assert.Equal(t, "BUY", mock.placedParams.Side)
	assert.Equal(t, "abc-123", ord.OrderID)
	assert.Equal(t, "FILLED", ord.Status)
	assert.Equal(t, 0.5, ord.FilledQty)
	assert.Equal(t, 101.25, ord.AvgPrice)
}

func TestNormalizeHelpers(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("btc-usdt"))
	assert.Equal(t, "ETHIRT", NormalizeSymbol("ETHIRT"))
	assert.Equal(t, "15", NormalizedTimeframe("15m"))
	assert.Equal(t, "1h", NormalizedTimeframe("1h"))
}

func TestCancelOrderForwardsID(t *testing.T) {
	mock := &mockWallex{}
	ex := newWallexWithClient(mock, nil)
	require.NoError(t, ex.CancelOrder(context.Background(), "xyz"))
	assert.Equal(t, "xyz", mock.canceledID)
}
