// Package trade holds the ledger data model shared by every other package:
// raw execution records as they arrive from files or brokers, canonical
// ledger entries, and the open lots the matcher works on.
package trade

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type Source string

const (
	SourceCSV Source = "CSV"
	SourceAPI Source = "API"
)

// ParseSource accepts "csv"/"api" in any case. Unknown values map to CSV.
func ParseSource(s string) Source {
	if strings.EqualFold(strings.TrimSpace(s), string(SourceAPI)) {
		return SourceAPI
	}
	return SourceCSV
}

// Raw is a single execution as delivered by a file export or broker sync,
// before any validation. Fields are kept as text because every upstream
// dialect formats numbers and times differently.
type Raw struct {
	Row       int // 1-based position in the batch, used in error reports
	Symbol    string
	Side      string
	Quantity  string
	Price     string
	Timestamp string
	Fees      string
	Source    Source
	SourceID  string

	// ProfitLoss is whatever the broker reported. The matcher recomputes
	// P&L, so this is never copied onto a Trade.
	ProfitLoss string
}

// Journal is the free-form review data a trader attaches to a ledger entry.
type Journal struct {
	Notes     string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Tags      []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Emotion   string     `json:"emotion,omitempty" yaml:"emotion,omitempty"`
	Rating    int        `json:"rating,omitempty" yaml:"rating,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
}

// Trade is one ledger entry. Matching fields (ProfitLoss, IsOpen,
// PositionOpenedAt, Unmatched) are owned by the lot matcher; deadline
// fields are owned by the position lifecycle tracker.
type Trade struct {
	ID       string
	Date     time.Time
	Symbol   string
	Type     Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Total    decimal.Decimal
	Fees     decimal.Decimal

	// nil while the trade is open
	ProfitLoss       *decimal.Decimal
	IsOpen           bool
	PositionOpenedAt time.Time
	ExitDeadline     *time.Time
	ExitReason       string

	// Unmatched marks a SELL that exceeded the known open quantity.
	Unmatched bool

	Journal     Journal
	Source      Source
	SourceID    string
	Fingerprint string
}

// Closed reports whether t carries realized P&L.
func (t Trade) Closed() bool {
	return !t.IsOpen && t.ProfitLoss != nil
}

// Realized reports whether t is a closed exit leg. Realized P&L lives on
// SELL trades; a fully consumed BUY closes with zero P&L.
func (t Trade) Realized() bool {
	return t.Type == Sell && t.Closed()
}

// PL returns the realized profit or loss, zero while open.
func (t Trade) PL() decimal.Decimal {
	if t.ProfitLoss == nil {
		return decimal.Zero
	}
	return *t.ProfitLoss
}

// Lot is the unconsumed remainder of a single BUY.
type Lot struct {
	Symbol             string
	RemainingQuantity  decimal.Decimal
	EntryPrice         decimal.Decimal
	EntryDate          time.Time
	OriginatingTradeID string

	// Used to prorate the buy's fees across partial matches.
	OriginalQuantity decimal.Decimal
	Fees             decimal.Decimal
}

// NormalizeSymbol upper-cases and strips exchange prefixes such as
// "NASDAQ:AAPL".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
