package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/position"
	"github.com/rustyeddy/tradelog/trade"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printTrades renders trades with states and deadline dates taken in loc.
func printTrades(w io.Writer, trades []trade.Trade, loc *time.Location) error {
	if jsonOutput {
		return printJSON(w, trades)
	}
	if len(trades) == 0 {
		fmt.Fprintln(w, "No trades.")
		return nil
	}

	now := time.Now()
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tSYMBOL\tSIDE\tQTY\tPRICE\tFEES\tP&L\tSTATE\tDEADLINE")
	for _, t := range trades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Date.In(loc).Format("2006-01-02 15:04"),
			t.Symbol,
			t.Type,
			t.Quantity.String(),
			t.Price.StringFixed(2),
			t.Fees.StringFixed(2),
			plString(t.ProfitLoss),
			tradeState(t, now, loc),
			deadlineString(t, loc),
		)
	}
	return tw.Flush()
}

func plString(pl *decimal.Decimal) string {
	if pl == nil {
		return "-"
	}
	return pl.StringFixed(2)
}

func tradeState(t trade.Trade, now time.Time, loc *time.Location) string {
	if t.Unmatched {
		return "unmatched"
	}
	return strings.ToLower(string(position.StateOf(t, now, loc)))
}

func deadlineString(t trade.Trade, loc *time.Location) string {
	if t.ExitDeadline == nil {
		return "-"
	}
	return t.ExitDeadline.In(loc).Format("2006-01-02")
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
