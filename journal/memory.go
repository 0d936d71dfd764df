package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/tradelog/trade"
)

// Memory is a Repository held in process memory.
type Memory struct {
	mu           sync.Mutex
	byID         map[string]trade.Trade
	fingerprints map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:         map[string]trade.Trade{},
		fingerprints: map[string]string{},
	}
}

func (m *Memory) InsertIfAbsent(ctx context.Context, trades []trade.Trade) (InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return InsertResult{}, trade.Persist("insert", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var res InsertResult
	seen := map[string]bool{}
	for _, t := range trades {
		if _, ok := m.fingerprints[t.Fingerprint]; ok || seen[t.Fingerprint] {
			res.Skipped++
			continue
		}
		if _, ok := m.byID[t.ID]; ok {
			return InsertResult{}, trade.Persist("insert", fmt.Errorf("duplicate id %s", t.ID))
		}
		seen[t.Fingerprint] = true
		res.Inserted = append(res.Inserted, t)
	}
	for _, t := range res.Inserted {
		m.byID[t.ID] = clone(t)
		m.fingerprints[t.Fingerprint] = t.ID
	}
	return res, nil
}

func (m *Memory) List(ctx context.Context) ([]trade.Trade, error) {
	return m.filter(func(trade.Trade) bool { return true }), nil
}

func (m *Memory) ListBySymbol(ctx context.Context, symbol string) ([]trade.Trade, error) {
	return m.filter(func(t trade.Trade) bool { return t.Symbol == symbol }), nil
}

func (m *Memory) Get(ctx context.Context, id string) (trade.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byID[id]
	if !ok {
		return trade.Trade{}, fmt.Errorf("trade %q: %w", id, trade.ErrNotFound)
	}
	return clone(t), nil
}

func (m *Memory) SaveMatches(ctx context.Context, trades []trade.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range trades {
		cur, ok := m.byID[t.ID]
		if !ok {
			continue
		}
		cur.ProfitLoss = nil
		if t.ProfitLoss != nil {
			pl := *t.ProfitLoss
			cur.ProfitLoss = &pl
		}
		cur.IsOpen = t.IsOpen
		cur.PositionOpenedAt = t.PositionOpenedAt
		cur.Unmatched = t.Unmatched
		m.byID[t.ID] = cur
	}
	return nil
}

func (m *Memory) UpdateDeadline(ctx context.Context, id string, deadline *time.Time, reason string) error {
	return m.update(id, func(t *trade.Trade) {
		t.ExitDeadline = copyTime(deadline)
		t.ExitReason = reason
	})
}

func (m *Memory) UpdateJournal(ctx context.Context, id string, j trade.Journal) error {
	return m.update(id, func(t *trade.Trade) {
		t.Journal = j
		t.Journal.Tags = append([]string(nil), j.Tags...)
		t.Journal.CreatedAt = copyTime(j.CreatedAt)
	})
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("trade %q: %w", id, trade.ErrNotFound)
	}
	delete(m.byID, id)
	delete(m.fingerprints, t.Fingerprint)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) update(id string, fn func(*trade.Trade)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("trade %q: %w", id, trade.ErrNotFound)
	}
	fn(&t)
	m.byID[id] = t
	return nil
}

func (m *Memory) filter(keep func(trade.Trade) bool) []trade.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []trade.Trade
	for _, t := range m.byID {
		if keep(t) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clone(t trade.Trade) trade.Trade {
	if t.ProfitLoss != nil {
		pl := *t.ProfitLoss
		t.ProfitLoss = &pl
	}
	t.ExitDeadline = copyTime(t.ExitDeadline)
	t.Journal.CreatedAt = copyTime(t.Journal.CreatedAt)
	t.Journal.Tags = append([]string(nil), t.Journal.Tags...)
	return t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
