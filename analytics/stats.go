// Package analytics derives portfolio statistics from a ledger snapshot.
// Every function here is pure: it reads a slice of trades and returns a
// freshly computed view. Only realized exit legs (closed SELLs) count as
// closed trades, so realized P&L is never counted twice.
package analytics

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/trade"
)

// Stats is the portfolio-wide scorecard.
type Stats struct {
	TotalTrades      int             `json:"totalTrades"`
	ProfitableTrades int             `json:"profitableTrades"`
	LosingTrades     int             `json:"losingTrades"`
	WinRate          float64         `json:"winRate"`
	NetProfit        decimal.Decimal `json:"netProfit"`
	ProfitFactor     float64         `json:"profitFactor"`
	AverageWin       decimal.Decimal `json:"averageWin"`
	AverageLoss      decimal.Decimal `json:"averageLoss"`
	LargestWin       decimal.Decimal `json:"largestWin"`
	LargestLoss      decimal.Decimal `json:"largestLoss"`
}

// MarshalJSON writes an infinite profit factor as the string "Infinity",
// which encoding/json cannot represent as a number.
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	out := struct {
		plain
		ProfitFactor any `json:"profitFactor"`
	}{plain: plain(s), ProfitFactor: s.ProfitFactor}
	if math.IsInf(s.ProfitFactor, 1) {
		out.ProfitFactor = "Infinity"
	}
	return json.Marshal(out)
}

// Closed filters trades down to realized exit legs.
func Closed(trades []trade.Trade) []trade.Trade {
	var out []trade.Trade
	for _, t := range trades {
		if t.Realized() {
			out = append(out, t)
		}
	}
	return out
}

// ComputeStats builds Stats over the closed trades in trades.
//
// ProfitFactor is +Inf when there are wins and no losses, and 0 when there
// are no wins or no closed trades at all. AverageLoss and LargestLoss keep
// their negative sign. Breakeven trades count toward TotalTrades only.
func ComputeStats(trades []trade.Trade) Stats {
	s := Stats{
		NetProfit:   decimal.Zero,
		AverageWin:  decimal.Zero,
		AverageLoss: decimal.Zero,
		LargestWin:  decimal.Zero,
		LargestLoss: decimal.Zero,
	}
	grossWin, grossLoss := decimal.Zero, decimal.Zero

	for _, t := range Closed(trades) {
		pl := t.PL()
		s.TotalTrades++
		s.NetProfit = s.NetProfit.Add(pl)

		switch {
		case pl.IsPositive():
			s.ProfitableTrades++
			grossWin = grossWin.Add(pl)
			if pl.GreaterThan(s.LargestWin) {
				s.LargestWin = pl
			}
		case pl.IsNegative():
			s.LosingTrades++
			grossLoss = grossLoss.Add(pl)
			if pl.LessThan(s.LargestLoss) {
				s.LargestLoss = pl
			}
		}
	}

	s.WinRate = winRate(s.ProfitableTrades, s.TotalTrades)
	if s.ProfitableTrades > 0 {
		s.AverageWin = grossWin.Div(decimal.NewFromInt(int64(s.ProfitableTrades)))
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(s.LosingTrades)))
	}
	s.ProfitFactor = profitFactor(grossWin, grossLoss)
	return s
}

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

func profitFactor(grossWin, grossLoss decimal.Decimal) float64 {
	if grossLoss.IsZero() {
		if grossWin.IsPositive() {
			return math.Inf(1)
		}
		return 0
	}
	f, _ := grossWin.Div(grossLoss.Abs()).Float64()
	return f
}

// tally accumulates the counts shared by the period and group views.
type tally struct {
	pnl        decimal.Decimal
	trades     int
	profitable int
	losing     int
}

func (t *tally) add(pl decimal.Decimal) {
	t.pnl = t.pnl.Add(pl)
	t.trades++
	if pl.IsPositive() {
		t.profitable++
	} else if pl.IsNegative() {
		t.losing++
	}
}

func (t tally) winRate() float64 { return winRate(t.profitable, t.trades) }
