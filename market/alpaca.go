package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// LatestTrader is the slice of the Alpaca market-data client we use.
type LatestTrader interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// Alpaca reads last trade prices from the Alpaca data API. Credentials come
// from APCA_API_KEY_ID and APCA_API_SECRET_KEY.
type Alpaca struct {
	client LatestTrader
}

func NewAlpaca() *Alpaca {
	return &Alpaca{client: marketdata.NewClient(marketdata.ClientOpts{})}
}

func NewAlpacaWithClient(c LatestTrader) *Alpaca {
	return &Alpaca{client: c}
}

// LatestPrice honours ctx even though the SDK call does not take one: a
// call that outlives ctx is abandoned and its result dropped.
func (a *Alpaca) LatestPrice(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(symbol)

	type result struct {
		t   *marketdata.Trade
		err error
	}
	ch := make(chan result, 1)
	go func() {
		t, err := a.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		ch <- result{t, err}
	}()

	select {
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return Quote{}, fmt.Errorf("latest trade %s: %w", symbol, r.err)
		}
		if r.t == nil || r.t.Price <= 0 {
			return Quote{}, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
		}
		return Quote{
			Symbol: symbol,
			Price:  decimal.NewFromFloat(r.t.Price),
			Time:   r.t.Timestamp,
		}, nil
	}
}
