package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/trade"
)

// MonthlyPnL is the realized result for one calendar month.
type MonthlyPnL struct {
	Year             int             `json:"year"`
	Month            time.Month      `json:"month"`
	TotalPnL         decimal.Decimal `json:"totalPnL"`
	TotalTrades      int             `json:"totalTrades"`
	WinRate          float64         `json:"winRate"`
	ProfitableTrades int             `json:"profitableTrades"`
	LosingTrades     int             `json:"losingTrades"`
}

// YearlyPnL holds all twelve months of a year. NetProfit always equals the
// sum of the monthly totals.
type YearlyPnL struct {
	Year      int             `json:"year"`
	Months    [12]MonthlyPnL  `json:"months"`
	NetProfit decimal.Decimal `json:"netProfit"`
}

// DayPnL is one cell of the calendar view.
type DayPnL struct {
	Date             time.Time       `json:"date"`
	TotalPnL         decimal.Decimal `json:"totalPnL"`
	TradeCount       int             `json:"tradeCount"`
	WinRate          float64         `json:"winRate"`
	ProfitableTrades int             `json:"profitableTrades"`
	LosingTrades     int             `json:"losingTrades"`
}

func localDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// Monthly computes the realized P&L of closed trades dated in the given
// month, as seen from loc.
func Monthly(trades []trade.Trade, year int, month time.Month, loc *time.Location) MonthlyPnL {
	loc = orUTC(loc)
	var t tally
	for _, tr := range Closed(trades) {
		y, m, _ := tr.Date.In(loc).Date()
		if y == year && m == month {
			t.add(tr.PL())
		}
	}
	return MonthlyPnL{
		Year:             year,
		Month:            month,
		TotalPnL:         t.pnl,
		TotalTrades:      t.trades,
		WinRate:          t.winRate(),
		ProfitableTrades: t.profitable,
		LosingTrades:     t.losing,
	}
}

// Yearly computes every month of year.
func Yearly(trades []trade.Trade, year int, loc *time.Location) YearlyPnL {
	y := YearlyPnL{Year: year, NetProfit: decimal.Zero}
	for m := time.January; m <= time.December; m++ {
		mp := Monthly(trades, year, m, loc)
		y.Months[m-1] = mp
		y.NetProfit = y.NetProfit.Add(mp.TotalPnL)
	}
	return y
}

// Calendar returns one entry per day of the month, including days without
// closed trades.
func Calendar(trades []trade.Trade, year int, month time.Month, loc *time.Location) []DayPnL {
	loc = orUTC(loc)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()

	tallies := make([]tally, days)
	for _, tr := range Closed(trades) {
		y, m, d := tr.Date.In(loc).Date()
		if y == year && m == month {
			tallies[d-1].add(tr.PL())
		}
	}

	out := make([]DayPnL, days)
	for i, t := range tallies {
		out[i] = DayPnL{
			Date:             first.AddDate(0, 0, i),
			TotalPnL:         t.pnl,
			TradeCount:       t.trades,
			WinRate:          t.winRate(),
			ProfitableTrades: t.profitable,
			LosingTrades:     t.losing,
		}
	}
	return out
}

// TimeRange spans every trade in the ledger, open or closed.
type TimeRange struct {
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
	Count int       `json:"count"`
}

// Days is the number of calendar days covered, inclusive.
func (r TimeRange) Days() int {
	if r.Count == 0 {
		return 0
	}
	loc := r.Last.Location()
	span := localDate(r.Last, loc).Sub(localDate(r.First, loc)).Hours() / 24
	return int(math.Round(span)) + 1
}

func ComputeTimeRange(trades []trade.Trade) TimeRange {
	var r TimeRange
	for _, t := range trades {
		if r.Count == 0 || t.Date.Before(r.First) {
			r.First = t.Date
		}
		if r.Count == 0 || t.Date.After(r.Last) {
			r.Last = t.Date
		}
		r.Count++
	}
	return r
}
