// Package market is the market-data collaborator: something that can
// answer "what did this symbol last trade at".
package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when a source has no price for a symbol.
var ErrNoQuote = errors.New("no quote")

type Quote struct {
	Symbol string          `json:"symbol" yaml:"symbol"`
	Price  decimal.Decimal `json:"price" yaml:"price"`
	Time   time.Time       `json:"time" yaml:"time"`
}

type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (Quote, error)
}

// PriceFunc adapts a function to PriceSource.
type PriceFunc func(ctx context.Context, symbol string) (Quote, error)

func (f PriceFunc) LatestPrice(ctx context.Context, symbol string) (Quote, error) {
	return f(ctx, symbol)
}
