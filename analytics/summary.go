package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/tradelog/trade"
)

type StockPerformance struct {
	Symbol     string          `json:"symbol"`
	TotalPnL   decimal.Decimal `json:"totalPnL"`
	WinRate    float64         `json:"winRate"`
	TradeCount int             `json:"tradeCount"`
	BestTrade  decimal.Decimal `json:"bestTrade"`
	WorstTrade decimal.Decimal `json:"worstTrade"`
}

type DayPerformance struct {
	Date       time.Time       `json:"date"`
	TotalPnL   decimal.Decimal `json:"totalPnL"`
	WinRate    float64         `json:"winRate"`
	TradeCount int             `json:"tradeCount"`
}

// Summary ranks symbols and days by aggregate realized P&L. Best and
// worst pointers are nil when there are no closed trades.
type Summary struct {
	BestStock  *StockPerformance `json:"bestStock"`
	WorstStock *StockPerformance `json:"worstStock"`
	BestDay    *DayPerformance   `json:"bestDay"`
	WorstDay   *DayPerformance   `json:"worstDay"`

	// AvgHoldTime is in days, measured from the earliest consumed lot to
	// the exit.
	AvgHoldTime float64 `json:"avgHoldTime"`
	WinRate     float64 `json:"winRate"`
	TradeCount  int     `json:"tradeCount"`
}

func ComputeSummary(trades []trade.Trade, loc *time.Location) Summary {
	loc = orUTC(loc)
	closed := Closed(trades)

	var sum Summary
	sum.TradeCount = len(closed)
	if len(closed) == 0 {
		return sum
	}

	stocks := map[string]*StockPerformance{}
	stockTally := map[string]*tally{}
	days := map[time.Time]*tally{}
	holds := make([]float64, 0, len(closed))
	var all tally

	for _, t := range closed {
		pl := t.PL()
		all.add(pl)

		sp, ok := stocks[t.Symbol]
		if !ok {
			sp = &StockPerformance{Symbol: t.Symbol, BestTrade: pl, WorstTrade: pl}
			stocks[t.Symbol] = sp
			stockTally[t.Symbol] = &tally{}
		}
		stockTally[t.Symbol].add(pl)
		if pl.GreaterThan(sp.BestTrade) {
			sp.BestTrade = pl
		}
		if pl.LessThan(sp.WorstTrade) {
			sp.WorstTrade = pl
		}

		day := localDate(t.Date, loc)
		if days[day] == nil {
			days[day] = &tally{}
		}
		days[day].add(pl)

		if !t.PositionOpenedAt.IsZero() {
			holds = append(holds, t.Date.Sub(t.PositionOpenedAt).Hours()/24)
		}
	}

	ranked := make([]StockPerformance, 0, len(stocks))
	for sym, sp := range stocks {
		st := stockTally[sym]
		sp.TotalPnL = st.pnl
		sp.TradeCount = st.trades
		sp.WinRate = st.winRate()
		ranked = append(ranked, *sp)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].TotalPnL.Equal(ranked[j].TotalPnL) {
			return ranked[i].TotalPnL.GreaterThan(ranked[j].TotalPnL)
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	best, worst := ranked[0], ranked[len(ranked)-1]
	sum.BestStock, sum.WorstStock = &best, &worst

	dayRank := make([]DayPerformance, 0, len(days))
	for d, t := range days {
		dayRank = append(dayRank, DayPerformance{Date: d, TotalPnL: t.pnl, WinRate: t.winRate(), TradeCount: t.trades})
	}
	sort.Slice(dayRank, func(i, j int) bool {
		if !dayRank[i].TotalPnL.Equal(dayRank[j].TotalPnL) {
			return dayRank[i].TotalPnL.GreaterThan(dayRank[j].TotalPnL)
		}
		return dayRank[i].Date.Before(dayRank[j].Date)
	})
	bestDay, worstDay := dayRank[0], dayRank[len(dayRank)-1]
	sum.BestDay, sum.WorstDay = &bestDay, &worstDay

	if len(holds) > 0 {
		sum.AvgHoldTime = stat.Mean(holds, nil)
	}
	sum.WinRate = all.winRate()
	return sum
}
