// Package ledger is the service that owns trade state. It orchestrates
// ingestion, deduplication and matching over a journal.Repository and
// serves the read views derived from it.
//
// Locking: mu is a batch barrier. Imports and full rematches hold it
// exclusively, so readers never observe a half-applied batch. Every other
// operation holds it shared and then takes the per-symbol lock of the
// symbol it mutates, which keeps the matcher single-writer per symbol while
// different symbols proceed in parallel.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradelog/ingest"
	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/lots"
	"github.com/rustyeddy/tradelog/position"
	"github.com/rustyeddy/tradelog/trade"
)

type Ledger struct {
	repo journal.Repository
	loc  *time.Location
	log  zerolog.Logger
	norm *ingest.Normalizer
	now  func() time.Time

	mu sync.RWMutex

	symMu   sync.Mutex
	symbols map[string]*sync.Mutex
}

type Option func(*Ledger)

// WithClock replaces time.Now, used for overdue checks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDs replaces the trade id generator.
func WithIDs(newID func() string) Option {
	return func(l *Ledger) { l.norm = ingest.NewNormalizer(l.loc, newID) }
}

// New returns a ledger over repo. loc is the ledger timezone used for
// zone-less timestamps and calendar grouping; nil means UTC.
func New(repo journal.Repository, loc *time.Location, log zerolog.Logger, opts ...Option) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	l := &Ledger{
		repo:    repo,
		loc:     loc,
		log:     log.With().Str("component", "ledger").Logger(),
		norm:    ingest.NewNormalizer(loc, nil),
		now:     time.Now,
		symbols: map[string]*sync.Mutex{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) Location() *time.Location { return l.loc }

func (l *Ledger) Close() error { return l.repo.Close() }

func (l *Ledger) lockSymbol(symbol string) func() {
	l.symMu.Lock()
	m, ok := l.symbols[symbol]
	if !ok {
		m = &sync.Mutex{}
		l.symbols[symbol] = m
	}
	l.symMu.Unlock()

	m.Lock()
	return m.Unlock
}

// Rematch rebuilds the matcher state of one symbol from scratch.
func (l *Ledger) Rematch(ctx context.Context, symbol string) (lots.Result, error) {
	symbol = trade.NormalizeSymbol(symbol)

	l.mu.RLock()
	defer l.mu.RUnlock()
	unlock := l.lockSymbol(symbol)
	defer unlock()

	return l.rematch(ctx, symbol)
}

// RematchAll rebuilds every symbol. It excludes all other writers and
// readers for its duration.
func (l *Ledger) RematchAll(ctx context.Context) ([]*trade.UnmatchedSellError, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var symbols []string
	for _, t := range all {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	return l.rematchSymbols(ctx, symbols)
}

// rematchSymbols runs one matcher per symbol concurrently. The caller holds
// mu exclusively.
func (l *Ledger) rematchSymbols(ctx context.Context, symbols []string) ([]*trade.UnmatchedSellError, error) {
	sort.Strings(symbols)
	results := make([]lots.Result, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, sym := range symbols {
		g.Go(func() error {
			res, err := l.rematch(gctx, sym)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var unmatched []*trade.UnmatchedSellError
	for _, r := range results {
		unmatched = append(unmatched, r.Unmatched...)
	}
	return unmatched, nil
}

// rematch recomputes symbol and stores the trades whose matcher fields
// changed. The caller holds the symbol exclusively.
func (l *Ledger) rematch(ctx context.Context, symbol string) (lots.Result, error) {
	stored, err := l.repo.ListBySymbol(ctx, symbol)
	if err != nil {
		return lots.Result{}, err
	}
	res := lots.Match(symbol, stored)

	before := make(map[string]trade.Trade, len(stored))
	for _, t := range stored {
		before[t.ID] = t
	}
	var changed []trade.Trade
	for _, t := range res.Trades {
		if matchChanged(before[t.ID], t) {
			changed = append(changed, t)
		}
	}
	if len(changed) > 0 {
		if err := l.repo.SaveMatches(ctx, changed); err != nil {
			l.log.Error().Err(err).Str("symbol", symbol).Msg("save matches failed")
			return lots.Result{}, err
		}
	}

	for _, u := range res.Unmatched {
		l.log.Warn().
			Str("symbol", symbol).
			Str("trade", u.TradeID).
			Str("requested", u.Requested.String()).
			Str("available", u.Available.String()).
			Msg("unmatched sell")
	}
	l.log.Debug().
		Str("symbol", symbol).
		Int("trades", len(res.Trades)).
		Int("changed", len(changed)).
		Int("round_trips", len(res.RoundTrips)).
		Int("open_lots", len(res.Lots)).
		Msg("rematched")
	return res, nil
}

func matchChanged(a, b trade.Trade) bool {
	if a.IsOpen != b.IsOpen || a.Unmatched != b.Unmatched || !a.PositionOpenedAt.Equal(b.PositionOpenedAt) {
		return true
	}
	if (a.ProfitLoss == nil) != (b.ProfitLoss == nil) {
		return true
	}
	return a.ProfitLoss != nil && !a.ProfitLoss.Equal(*b.ProfitLoss)
}

// SetDeadline attaches an exit plan to an open trade.
func (l *Ledger) SetDeadline(ctx context.Context, id string, deadline time.Time, reason string) (trade.Trade, error) {
	return l.mutate(ctx, id, func(t *trade.Trade) error {
		if err := position.SetDeadline(t, deadline.In(l.loc), reason); err != nil {
			return err
		}
		return l.repo.UpdateDeadline(ctx, t.ID, t.ExitDeadline, t.ExitReason)
	})
}

// ClearDeadline removes an exit plan. It is legal on closed trades.
func (l *Ledger) ClearDeadline(ctx context.Context, id string) (trade.Trade, error) {
	return l.mutate(ctx, id, func(t *trade.Trade) error {
		position.ClearDeadline(t)
		return l.repo.UpdateDeadline(ctx, t.ID, nil, "")
	})
}

// MaxRating bounds journal ratings.
const MaxRating = 5

// UpdateJournal replaces the review metadata of a trade. CreatedAt is set
// on first write and kept afterwards.
func (l *Ledger) UpdateJournal(ctx context.Context, id string, j trade.Journal) (trade.Trade, error) {
	if j.Rating < 0 || j.Rating > MaxRating {
		return trade.Trade{}, &trade.ValidationError{
			Field:  "rating",
			Value:  fmt.Sprint(j.Rating),
			Reason: fmt.Sprintf("must be between 0 and %d", MaxRating),
		}
	}
	return l.mutate(ctx, id, func(t *trade.Trade) error {
		if j.CreatedAt == nil {
			j.CreatedAt = t.Journal.CreatedAt
		}
		if j.CreatedAt == nil {
			now := l.now()
			j.CreatedAt = &now
		}
		t.Journal = j
		return l.repo.UpdateJournal(ctx, t.ID, j)
	})
}

// DeleteTrade is the correction path: it removes a trade and rematches its
// symbol so the remaining trades are consistent again.
func (l *Ledger) DeleteTrade(ctx context.Context, id string) (lots.Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, err := l.repo.Get(ctx, id)
	if err != nil {
		return lots.Result{}, err
	}
	unlock := l.lockSymbol(t.Symbol)
	defer unlock()

	if err := l.repo.Delete(ctx, id); err != nil {
		return lots.Result{}, err
	}
	l.log.Info().Str("trade", id).Str("symbol", t.Symbol).Msg("trade deleted")
	return l.rematch(ctx, t.Symbol)
}

// mutate loads a trade under its symbol lock and applies fn.
func (l *Ledger) mutate(ctx context.Context, id string, fn func(*trade.Trade) error) (trade.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, err := l.repo.Get(ctx, id)
	if err != nil {
		return trade.Trade{}, err
	}
	unlock := l.lockSymbol(t.Symbol)
	defer unlock()

	// reload: the matcher may have closed it while we waited
	if t, err = l.repo.Get(ctx, id); err != nil {
		return trade.Trade{}, err
	}
	if err := fn(&t); err != nil {
		return trade.Trade{}, err
	}
	one := []trade.Trade{t}
	l.localize(one)
	return one[0], nil
}

// OpenQuantity reports the remaining lot quantity for symbol.
func (l *Ledger) OpenQuantity(ctx context.Context, symbol string) (decimal.Decimal, error) {
	trades, err := l.FindBySymbol(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return lots.Match(trade.NormalizeSymbol(symbol), trades).OpenQuantity(), nil
}
