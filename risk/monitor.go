package risk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradelog/market"
	"github.com/rustyeddy/tradelog/pkg/id"
	"github.com/rustyeddy/tradelog/position"
	"github.com/rustyeddy/tradelog/trade"
)

var ErrAlertNotFound = errors.New("alert not found")

// Positions supplies the open positions to evaluate on each tick.
type Positions interface {
	OpenPositions(ctx context.Context) ([]position.OpenPosition, error)
}

type Alert struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Severity         Severity        `json:"severity"`
	LossPercent      decimal.Decimal `json:"lossPercent"`
	Bucket           int64           `json:"bucket"`
	Price            decimal.Decimal `json:"price"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	StopLossPrice    decimal.Decimal `json:"stopLossPrice"`
	Acknowledged     bool            `json:"acknowledged"`
	FirstTriggeredAt time.Time       `json:"firstTriggeredAt"`
	LastSeenAt       time.Time       `json:"lastSeenAt"`
}

// Status is the latest evaluation of one symbol. When Unavailable is set
// the monitor reports no severity rather than a stale one.
type Status struct {
	Symbol      string          `json:"symbol"`
	Severity    Severity        `json:"severity"`
	LossPercent decimal.Decimal `json:"lossPercent"`
	Price       decimal.Decimal `json:"price"`
	Unavailable bool            `json:"unavailable"`
	Err         string          `json:"error,omitempty"`
	CheckedAt   time.Time       `json:"checkedAt"`
}

type Config struct {
	Thresholds Thresholds
	// PriceTimeout bounds each price lookup.
	PriceTimeout time.Duration
	// MaxConcurrent bounds simultaneous lookups.
	MaxConcurrent int
}

type alertKey struct {
	symbol string
	bucket int64
}

// Monitor evaluates open positions against live prices. One Monitor is one
// monitoring session: a notification fires once per (symbol, bucket) for
// the life of the Monitor.
type Monitor struct {
	positions Positions
	prices    market.PriceSource
	notifier  Notifier
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string

	mu       sync.Mutex
	alerts   map[alertKey]*Alert
	byID     map[string]*Alert
	notified map[alertKey]bool
	status   map[string]Status
}

func NewMonitor(positions Positions, prices market.PriceSource, notifier Notifier, cfg Config, log zerolog.Logger) *Monitor {
	if cfg.PriceTimeout <= 0 {
		cfg.PriceTimeout = 5 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Monitor{
		positions: positions,
		prices:    prices,
		notifier:  notifier,
		cfg:       cfg,
		log:       log.With().Str("component", "risk").Logger(),
		now:       time.Now,
		newID:     id.New,
		alerts:    map[alertKey]*Alert{},
		byID:      map[string]*Alert{},
		notified:  map[alertKey]bool{},
		status:    map[string]Status{},
	}
}

func (m *Monitor) Name() string { return "risk-monitor" }

type evaluation struct {
	pos   position.OpenPosition
	quote market.Quote
	err   error
}

// Run is one monitoring tick. Price failures degrade the affected symbol
// only; the returned error is reserved for failing to list positions.
func (m *Monitor) Run(ctx context.Context) error {
	positions, err := m.positions.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}

	evals := make([]evaluation, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.MaxConcurrent)
	for i, p := range positions {
		evals[i].pos = p
		g.Go(func() error {
			evals[i].quote, evals[i].err = m.fetch(gctx, p.Symbol)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	var fire []Alert
	m.mu.Lock()
	now := m.now()
	m.status = make(map[string]Status, len(evals))
	for _, e := range evals {
		if a, ok := m.apply(e, now); ok {
			fire = append(fire, a)
		}
	}
	m.mu.Unlock()

	for _, a := range fire {
		if err := m.notifier.Notify(ctx, a); err != nil {
			m.log.Warn().Err(err).Str("symbol", a.Symbol).Msg("notify failed")
		}
	}
	return nil
}

func (m *Monitor) fetch(ctx context.Context, symbol string) (market.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.PriceTimeout)
	defer cancel()

	q, err := m.prices.LatestPrice(ctx, symbol)
	if err != nil {
		return market.Quote{}, &trade.PriceUnavailableError{Symbol: symbol, Err: err}
	}
	if !q.Price.IsPositive() {
		return market.Quote{}, &trade.PriceUnavailableError{Symbol: symbol, Err: market.ErrNoQuote}
	}
	return q, nil
}

// apply records one evaluation under m.mu and reports an alert that needs
// a notification.
func (m *Monitor) apply(e evaluation, now time.Time) (Alert, bool) {
	sym := e.pos.Symbol
	st := Status{Symbol: sym, CheckedAt: now}

	if e.err != nil {
		st.Unavailable = true
		st.Err = e.err.Error()
		m.status[sym] = st
		m.log.Warn().Err(e.err).Str("symbol", sym).Msg("price unavailable")
		return Alert{}, false
	}

	loss, ok := LossPercent(e.pos.AvgEntryPrice, e.quote.Price)
	if !ok {
		st.Unavailable = true
		st.Err = "no entry price"
		m.status[sym] = st
		return Alert{}, false
	}
	st.Price = e.quote.Price
	st.LossPercent = loss
	st.Severity = m.cfg.Thresholds.Classify(loss)
	m.status[sym] = st

	if st.Severity == None {
		return Alert{}, false
	}

	key := alertKey{symbol: sym, bucket: Bucket(loss)}
	a, exists := m.alerts[key]
	if !exists {
		a = &Alert{
			ID:               m.newID(),
			Symbol:           sym,
			Bucket:           key.bucket,
			EntryPrice:       e.pos.AvgEntryPrice,
			StopLossPrice:    m.cfg.Thresholds.StopLossPrice(e.pos.AvgEntryPrice),
			FirstTriggeredAt: now,
		}
		m.alerts[key] = a
		m.byID[a.ID] = a
	}
	a.Severity = st.Severity
	a.LossPercent = loss
	a.Price = e.quote.Price
	a.LastSeenAt = now

	// a bucket that straddles the critical threshold updates its severity
	// in place without notifying again
	if m.notified[key] {
		return Alert{}, false
	}
	m.notified[key] = true
	m.log.Info().
		Str("symbol", sym).
		Str("severity", string(a.Severity)).
		Str("loss_percent", loss.StringFixed(2)).
		Msg("risk alert")
	return *a, true
}

// Acknowledge marks an alert handled. It is terminal and idempotent. A later
// loss in a worse bucket raises a new alert.
func (m *Monitor) Acknowledge(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrAlertNotFound)
	}
	a.Acknowledged = true
	return nil
}

// Alerts returns every alert raised this session, oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Alert, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstTriggeredAt.Equal(out[j].FirstTriggeredAt) {
			return out[i].FirstTriggeredAt.Before(out[j].FirstTriggeredAt)
		}
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Bucket > out[j].Bucket
	})
	return out
}

// Active returns the unacknowledged alerts matching each symbol's latest
// evaluation. Symbols whose price is unavailable have none.
func (m *Monitor) Active() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Alert
	for sym, st := range m.status {
		if st.Unavailable || st.Severity == None {
			continue
		}
		a, ok := m.alerts[alertKey{symbol: sym, bucket: Bucket(st.LossPercent)}]
		if ok && !a.Acknowledged {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Statuses returns the latest per-symbol evaluation, sorted by symbol.
func (m *Monitor) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.status))
	for _, s := range m.status {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
