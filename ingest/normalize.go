// Package ingest turns heterogeneous raw execution records into canonical
// ledger entries. It validates, computes totals and fingerprints; it never
// touches storage.
package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/pkg/id"
	"github.com/rustyeddy/tradelog/trade"
)

// Layouts tried in order when parsing a raw timestamp. Layouts without a
// zone are read in the normalizer's location.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

type Normalizer struct {
	loc   *time.Location
	newID func() string
}

// NewNormalizer reads zone-less timestamps in loc (UTC when nil). newID
// defaults to id.New.
func NewNormalizer(loc *time.Location, newID func() string) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if newID == nil {
		newID = id.New
	}
	return &Normalizer{loc: loc, newID: newID}
}

// Normalize validates every record independently. Bad rows are collected,
// never fatal to the rest of the batch.
func (n *Normalizer) Normalize(records []trade.Raw) ([]trade.Trade, []*trade.ValidationError) {
	var (
		valid    []trade.Trade
		rejected []*trade.ValidationError
	)
	for i, r := range records {
		if r.Row == 0 {
			r.Row = i + 1
		}
		t, verr := n.NormalizeOne(r)
		if verr != nil {
			rejected = append(rejected, verr)
			continue
		}
		valid = append(valid, t)
	}
	return valid, rejected
}

func (n *Normalizer) NormalizeOne(r trade.Raw) (trade.Trade, *trade.ValidationError) {
	bad := func(field, value, reason string) (trade.Trade, *trade.ValidationError) {
		return trade.Trade{}, &trade.ValidationError{Row: r.Row, Field: field, Value: value, Reason: reason}
	}

	symbol := trade.NormalizeSymbol(r.Symbol)
	if symbol == "" {
		return bad("symbol", "", "is required")
	}

	side, ok := ParseSide(r.Side)
	if !ok {
		if strings.TrimSpace(r.Side) == "" {
			return bad("side", "", "is required")
		}
		return bad("side", r.Side, "is not BUY or SELL")
	}

	if strings.TrimSpace(r.Quantity) == "" {
		return bad("quantity", "", "is required")
	}
	qty, err := ParseAmount(r.Quantity)
	if err != nil {
		return bad("quantity", r.Quantity, "is not a number")
	}
	if !qty.IsPositive() {
		return bad("quantity", r.Quantity, "must be positive")
	}

	if strings.TrimSpace(r.Price) == "" {
		return bad("price", "", "is required")
	}
	price, err := ParseAmount(r.Price)
	if err != nil {
		return bad("price", r.Price, "is not a number")
	}
	if price.IsNegative() {
		return bad("price", r.Price, "must not be negative")
	}

	fees := decimal.Zero
	if strings.TrimSpace(r.Fees) != "" {
		fees, err = ParseAmount(r.Fees)
		if err != nil {
			return bad("fees", r.Fees, "is not a number")
		}
		if fees.IsNegative() {
			fees = fees.Neg()
		}
	}

	if strings.TrimSpace(r.Timestamp) == "" {
		return bad("timestamp", "", "is required")
	}
	ts, err := ParseTime(r.Timestamp, n.loc)
	if err != nil {
		return bad("timestamp", r.Timestamp, "is not a recognised date")
	}

	source := r.Source
	if source == "" {
		source = trade.SourceCSV
	}

	t := trade.Trade{
		ID:               n.newID(),
		Date:             ts,
		Symbol:           symbol,
		Type:             side,
		Price:            price,
		Quantity:         qty,
		Total:            price.Mul(qty),
		Fees:             fees,
		IsOpen:           true,
		PositionOpenedAt: ts,
		Source:           source,
		SourceID:         strings.TrimSpace(r.SourceID),
	}
	t.Fingerprint = Fingerprint(t)
	return t, nil
}

// ParseSide understands plain BUY/SELL as well as broker wording such as
// "Market buy", "Limit sell" or "sell_short".
func ParseSide(s string) (trade.Side, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "b" || strings.Contains(v, "buy"):
		return trade.Buy, true
	case v == "s" || strings.Contains(v, "sell"):
		return trade.Sell, true
	}
	return "", false
}

// ParseAmount accepts thousands separators, a leading currency sign and
// surrounding whitespace.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, " ", "")
	return decimal.NewFromString(v)
}

// ParseTime tries the known layouts, then unix seconds or milliseconds.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
		if n > 1e12 {
			return time.UnixMilli(n).In(loc), nil
		}
		return time.Unix(n, 0).In(loc), nil
	}
	return time.Time{}, firstErr
}
