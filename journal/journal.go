// Package journal persists the trade ledger. Repository is the contract the
// ledger service works against; SQLite is the durable implementation and
// Memory backs tests and dry runs.
package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/tradelog/trade"
)

// InsertResult reports the outcome of an insert-if-absent batch.
// Inserted holds the trades actually written; anything else was a
// fingerprint already present and is only counted.
type InsertResult struct {
	Inserted []trade.Trade
	Skipped  int
}

type Repository interface {
	// InsertIfAbsent writes every trade whose fingerprint is not yet
	// stored. The check and the insert are one atomic unit per batch.
	InsertIfAbsent(ctx context.Context, trades []trade.Trade) (InsertResult, error)

	List(ctx context.Context) ([]trade.Trade, error)
	ListBySymbol(ctx context.Context, symbol string) ([]trade.Trade, error)
	Get(ctx context.Context, id string) (trade.Trade, error)

	// SaveMatches stores the matcher-owned fields of each trade.
	SaveMatches(ctx context.Context, trades []trade.Trade) error

	UpdateDeadline(ctx context.Context, id string, deadline *time.Time, reason string) error
	UpdateJournal(ctx context.Context, id string, j trade.Journal) error
	Delete(ctx context.Context, id string) error
	Close() error
}
