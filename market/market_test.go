package market

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceStore(t *testing.T) {
	t.Parallel()

	ps := NewPriceStore()
	ps.Set(Quote{Symbol: "aapl", Price: decimal.NewFromInt(190)})

	q, err := ps.LatestPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(190)))

	_, err = ps.LatestPrice(context.Background(), "MSFT")
	assert.ErrorIs(t, err, ErrNoQuote)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ps.LatestPrice(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadPriceFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("AAPL: 189.25\nmsft: \"411.10\"\n"), 0o644))

	ps, err := LoadPriceFile(path)
	require.NoError(t, err)

	q, ok := ps.Get("MSFT")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("411.1")))
	assert.False(t, q.Time.IsZero())

	q, ok = ps.Get("AAPL")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("189.25")))
}

func TestLoadPriceFileBadPrice(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("AAPL: soon\n"), 0o644))

	_, err := LoadPriceFile(path)
	assert.Error(t, err)
}

type fakeTrader struct {
	trade *marketdata.Trade
	err   error
	delay time.Duration
}

func (f fakeTrader) GetLatestTrade(symbol string, _ marketdata.GetLatestTradeRequest) (*marketdata.Trade, error) {
	time.Sleep(f.delay)
	return f.trade, f.err
}

func TestAlpacaLatestPrice(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 1, 15, 59, 59, 0, time.UTC)
	a := NewAlpacaWithClient(fakeTrader{trade: &marketdata.Trade{Price: 101.5, Timestamp: ts}})

	q, err := a.LatestPrice(context.Background(), "nvda")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", q.Symbol)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("101.5")))
	assert.Equal(t, ts, q.Time)
}

func TestAlpacaLatestPriceFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := NewAlpacaWithClient(fakeTrader{err: boom}).LatestPrice(context.Background(), "X")
	assert.ErrorIs(t, err, boom)

	_, err = NewAlpacaWithClient(fakeTrader{}).LatestPrice(context.Background(), "X")
	assert.ErrorIs(t, err, ErrNoQuote)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	slow := NewAlpacaWithClient(fakeTrader{delay: time.Second, trade: &marketdata.Trade{Price: 1}})
	_, err = slow.LatestPrice(ctx, "X")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPriceFunc(t *testing.T) {
	t.Parallel()

	var src PriceSource = PriceFunc(func(_ context.Context, s string) (Quote, error) {
		return Quote{Symbol: s, Price: decimal.NewFromInt(1)}, nil
	})
	q, err := src.LatestPrice(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", q.Symbol)
}
