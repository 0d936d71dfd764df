package ledger

import (
	"context"
	"time"

	"github.com/rustyeddy/tradelog/analytics"
	"github.com/rustyeddy/tradelog/lots"
	"github.com/rustyeddy/tradelog/position"
	"github.com/rustyeddy/tradelog/trade"
)

// snapshot reads the whole ledger under the batch barrier.
func (l *Ledger) snapshot(ctx context.Context) ([]trade.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trades, err := l.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	l.localize(trades)
	return trades, nil
}

// localize moves exit deadlines into the ledger timezone. Repositories may
// hand them back in UTC, which shifts the calendar date east of Greenwich.
func (l *Ledger) localize(trades []trade.Trade) {
	for i := range trades {
		if dl := trades[i].ExitDeadline; dl != nil {
			v := dl.In(l.loc)
			trades[i].ExitDeadline = &v
		}
	}
}

func (l *Ledger) ListTrades(ctx context.Context) ([]trade.Trade, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	lots.Order(trades)
	return trades, nil
}

func (l *Ledger) FindBySymbol(ctx context.Context, symbol string) ([]trade.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trades, err := l.repo.ListBySymbol(ctx, trade.NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	l.localize(trades)
	lots.Order(trades)
	return trades, nil
}

func (l *Ledger) GetTrade(ctx context.Context, id string) (trade.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, err := l.repo.Get(ctx, id)
	if err != nil {
		return trade.Trade{}, err
	}
	one := []trade.Trade{t}
	l.localize(one)
	return one[0], nil
}

func (l *Ledger) GetStats(ctx context.Context) (analytics.Stats, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return analytics.Stats{}, err
	}
	return analytics.ComputeStats(trades), nil
}

func (l *Ledger) GetMonthlyPnL(ctx context.Context, month time.Month, year int) (analytics.MonthlyPnL, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return analytics.MonthlyPnL{}, err
	}
	return analytics.Monthly(trades, year, month, l.loc), nil
}

func (l *Ledger) GetYearlyPnL(ctx context.Context, year int) (analytics.YearlyPnL, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return analytics.YearlyPnL{}, err
	}
	return analytics.Yearly(trades, year, l.loc), nil
}

func (l *Ledger) GetCalendar(ctx context.Context, year int, month time.Month) ([]analytics.DayPnL, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.Calendar(trades, year, month, l.loc), nil
}

func (l *Ledger) GetSummary(ctx context.Context) (analytics.Summary, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.ComputeSummary(trades, l.loc), nil
}

func (l *Ledger) GetTimeRange(ctx context.Context) (analytics.TimeRange, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return analytics.TimeRange{}, err
	}
	return analytics.ComputeTimeRange(trades), nil
}

// OpenPositions replays the matcher over the snapshot and aggregates the
// remaining lots per symbol.
func (l *Ledger) OpenPositions(ctx context.Context) ([]position.OpenPosition, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return position.OpenPositions(lots.MatchAll(trades)), nil
}

// Overdue lists open trades whose exit deadline has passed as of now.
func (l *Ledger) Overdue(ctx context.Context, now time.Time) ([]trade.Trade, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return position.FilterOverdue(trades, now, l.loc), nil
}

// OverdueNow uses the ledger clock.
func (l *Ledger) OverdueNow(ctx context.Context) ([]trade.Trade, error) {
	return l.Overdue(ctx, l.now())
}
