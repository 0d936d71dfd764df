// Package lots matches BUY and SELL executions per symbol using FIFO lot
// consumption. Matching is always a full recompute over a symbol's trades,
// so running it twice on the same input gives the same result.
package lots

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/trade"
)

// RoundTrip is the part of a SELL matched against one lot.
type RoundTrip struct {
	Symbol      string
	BuyTradeID  string
	SellTradeID string
	Quantity    decimal.Decimal
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	EntryDate   time.Time
	ExitDate    time.Time
	Fees        decimal.Decimal
	ProfitLoss  decimal.Decimal
}

// Result is the matcher state for one symbol after replaying its trades.
type Result struct {
	Symbol string
	// Trades in matching order with ProfitLoss, IsOpen, PositionOpenedAt
	// and Unmatched recomputed.
	Trades     []trade.Trade
	Lots       []trade.Lot
	RoundTrips []RoundTrip
	Unmatched  []*trade.UnmatchedSellError
}

// OpenQuantity is the sum of remaining lot quantities.
func (r Result) OpenQuantity() decimal.Decimal {
	q := decimal.Zero
	for _, l := range r.Lots {
		q = q.Add(l.RemainingQuantity)
	}
	return q
}

// Order sorts trades into matching order: date, then BUY before SELL at
// the same instant, then id.
func Order(trades []trade.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Type != b.Type {
			return a.Type == trade.Buy
		}
		return a.ID < b.ID
	})
}

// Match replays the trades of a single symbol. The input slice is not
// modified. Journal and deadline fields pass through untouched.
func Match(symbol string, trades []trade.Trade) Result {
	ordered := make([]trade.Trade, len(trades))
	copy(ordered, trades)
	Order(ordered)

	res := Result{Symbol: symbol, Trades: ordered}

	var queue []*trade.Lot
	buyIndex := make(map[string]int, len(ordered))
	buyFees := map[string]decimal.Decimal{}

	for i := range ordered {
		t := &ordered[i]
		t.ProfitLoss = nil
		t.IsOpen = true
		t.Unmatched = false
		t.PositionOpenedAt = t.Date

		switch t.Type {
		case trade.Buy:
			buyIndex[t.ID] = i
			queue = append(queue, &trade.Lot{
				Symbol:             symbol,
				RemainingQuantity:  t.Quantity,
				EntryPrice:         t.Price,
				EntryDate:          t.Date,
				OriginatingTradeID: t.ID,
				OriginalQuantity:   t.Quantity,
				Fees:               t.Fees,
			})

		case trade.Sell:
			available := decimal.Zero
			for _, l := range queue {
				available = available.Add(l.RemainingQuantity)
			}
			if t.Quantity.GreaterThan(available) {
				t.Unmatched = true
				res.Unmatched = append(res.Unmatched, &trade.UnmatchedSellError{
					TradeID:   t.ID,
					Symbol:    symbol,
					Requested: t.Quantity,
					Available: available,
				})
				continue
			}

			var trips []RoundTrip
			trips, queue = consume(symbol, *t, queue, buyFees)

			pl := decimal.Zero
			for _, rt := range trips {
				pl = pl.Add(rt.ProfitLoss)
			}
			t.ProfitLoss = &pl
			t.IsOpen = false
			t.PositionOpenedAt = trips[0].EntryDate
			res.RoundTrips = append(res.RoundTrips, trips...)

			for _, rt := range trips {
				if stillOpen(queue, rt.BuyTradeID) {
					continue
				}
				b := &ordered[buyIndex[rt.BuyTradeID]]
				if b.IsOpen {
					zero := decimal.Zero
					b.IsOpen = false
					b.ProfitLoss = &zero
				}
			}
		}
	}

	for _, l := range queue {
		res.Lots = append(res.Lots, *l)
	}
	return res
}

// consume takes sell.Quantity from the head of the queue. The caller has
// already checked that enough quantity is open. Fees are prorated by
// quantity; the match that exhausts the sell or the lot takes the remainder,
// so allocations always sum to the recorded fee. buyFees holds the fees
// already charged against each lot.
func consume(symbol string, sell trade.Trade, queue []*trade.Lot, buyFees map[string]decimal.Decimal) ([]RoundTrip, []*trade.Lot) {
	var trips []RoundTrip
	q := sell.Quantity
	sellFees := decimal.Zero

	for q.IsPositive() && len(queue) > 0 {
		lot := queue[0]
		m := decimal.Min(q, lot.RemainingQuantity)

		sf := sell.Fees.Sub(sellFees)
		if m.LessThan(q) {
			sf = sell.Fees.Mul(m).Div(sell.Quantity)
		}
		sellFees = sellFees.Add(sf)

		bf := decimal.Zero
		if lot.OriginalQuantity.IsPositive() {
			charged := buyFees[lot.OriginatingTradeID]
			bf = lot.Fees.Sub(charged)
			if m.LessThan(lot.RemainingQuantity) {
				bf = lot.Fees.Mul(m).Div(lot.OriginalQuantity)
			}
			buyFees[lot.OriginatingTradeID] = charged.Add(bf)
		}
		fees := sf.Add(bf)
		pl := m.Mul(sell.Price.Sub(lot.EntryPrice)).Sub(fees)

		trips = append(trips, RoundTrip{
			Symbol:      symbol,
			BuyTradeID:  lot.OriginatingTradeID,
			SellTradeID: sell.ID,
			Quantity:    m,
			EntryPrice:  lot.EntryPrice,
			ExitPrice:   sell.Price,
			EntryDate:   lot.EntryDate,
			ExitDate:    sell.Date,
			Fees:        fees,
			ProfitLoss:  pl,
		})

		lot.RemainingQuantity = lot.RemainingQuantity.Sub(m)
		q = q.Sub(m)
		if !lot.RemainingQuantity.IsPositive() {
			queue = queue[1:]
		}
	}
	return trips, queue
}

func stillOpen(queue []*trade.Lot, buyID string) bool {
	for _, l := range queue {
		if l.OriginatingTradeID == buyID {
			return true
		}
	}
	return false
}

// MatchAll groups trades by symbol and matches each group.
func MatchAll(trades []trade.Trade) map[string]Result {
	bySymbol := map[string][]trade.Trade{}
	for _, t := range trades {
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}
	out := make(map[string]Result, len(bySymbol))
	for sym, ts := range bySymbol {
		out[sym] = Match(sym, ts)
	}
	return out
}
