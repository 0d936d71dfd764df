package market

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PriceStore is an in-memory PriceSource. It backs tests and offline runs
// where prices come from a file instead of a broker feed.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]Quote
}

func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]Quote)}
}

func (ps *PriceStore) Set(q Quote) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	q.Symbol = strings.ToUpper(q.Symbol)
	ps.prices[q.Symbol] = q
}

func (ps *PriceStore) Get(symbol string) (Quote, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	q, ok := ps.prices[strings.ToUpper(symbol)]
	return q, ok
}

func (ps *PriceStore) LatestPrice(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	q, ok := ps.Get(symbol)
	if !ok {
		return Quote{}, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}
	return q, nil
}

// LoadPriceFile reads a YAML map of symbol to price, for example
//
//	AAPL: 189.25
//	MSFT: "411.10"
//
// Every quote is stamped with the file's modification time.
func LoadPriceFile(path string) (*PriceStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	stamp := time.Now()
	if fi, err := os.Stat(path); err == nil {
		stamp = fi.ModTime()
	}

	ps := NewPriceStore()
	for sym, v := range raw {
		p, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("price of %s: %w", sym, err)
		}
		ps.Set(Quote{Symbol: sym, Price: p, Time: stamp})
	}
	return ps, nil
}
