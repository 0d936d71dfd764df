package position

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/lots"
	"github.com/rustyeddy/tradelog/trade"
)

// Dust is the open quantity below which a position counts as closed.
// Fractional share brokers leave rounding residue after a full exit.
var Dust = decimal.New(1, -4)

// OpenPosition aggregates the remaining lots of one symbol.
type OpenPosition struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avgEntryPrice"`
	CostBasis     decimal.Decimal `json:"costBasis"`
	OpenedAt      time.Time       `json:"openedAt"`
	LastActivity  time.Time       `json:"lastActivity"`
	Lots          []trade.Lot     `json:"lots"`
}

// FromLots builds the open position left after matching. ok is false when
// nothing above Dust remains.
func FromLots(res lots.Result) (OpenPosition, bool) {
	p := OpenPosition{
		Symbol:    res.Symbol,
		Quantity:  decimal.Zero,
		CostBasis: decimal.Zero,
		Lots:      res.Lots,
	}
	for _, l := range res.Lots {
		p.Quantity = p.Quantity.Add(l.RemainingQuantity)
		p.CostBasis = p.CostBasis.Add(l.RemainingQuantity.Mul(l.EntryPrice))
		if p.OpenedAt.IsZero() || l.EntryDate.Before(p.OpenedAt) {
			p.OpenedAt = l.EntryDate
		}
	}
	if p.Quantity.LessThanOrEqual(Dust) {
		return OpenPosition{}, false
	}
	p.AvgEntryPrice = p.CostBasis.Div(p.Quantity)
	for _, t := range res.Trades {
		if t.Date.After(p.LastActivity) {
			p.LastActivity = t.Date
		}
	}
	return p, true
}

// OpenPositions returns every symbol with a non-dust open quantity, sorted
// by symbol.
func OpenPositions(results map[string]lots.Result) []OpenPosition {
	var out []OpenPosition
	for _, res := range results {
		if p, ok := FromLots(res); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// UnrealizedPL marks the position to price.
func (p OpenPosition) UnrealizedPL(price decimal.Decimal) decimal.Decimal {
	return price.Mul(p.Quantity).Sub(p.CostBasis)
}
