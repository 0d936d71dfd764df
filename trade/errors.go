package trade

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("trade not found")
	ErrNotOpen  = errors.New("trade is not open")
)

// ValidationError rejects a single raw row. It never aborts a batch.
// Row is zero for input that did not come from a batch.
type ValidationError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := e.Field + " " + e.Reason
	if e.Value != "" {
		msg = fmt.Sprintf("%s %q %s", e.Field, e.Value, e.Reason)
	}
	if e.Row == 0 {
		return msg
	}
	return fmt.Sprintf("row %d: %s", e.Row, msg)
}

// UnmatchedSellError reports a SELL whose quantity exceeds every known open
// lot for its symbol. The SELL stays in the ledger, flagged and open.
type UnmatchedSellError struct {
	TradeID   string
	Symbol    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *UnmatchedSellError) Error() string {
	return fmt.Sprintf("unmatched sell %s on %s: sells %s, only %s open",
		e.TradeID, e.Symbol, e.Requested, e.Available)
}

// PersistenceError wraps a storage failure. The caller decides whether to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persist wraps err in a PersistenceError, nil stays nil.
func Persist(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// PriceUnavailableError means the market-data collaborator failed, timed
// out or had no quote for a symbol.
type PriceUnavailableError struct {
	Symbol string
	Err    error
}

func (e *PriceUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("price unavailable for %s", e.Symbol)
	}
	return fmt.Sprintf("price unavailable for %s: %v", e.Symbol, e.Err)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Err }
