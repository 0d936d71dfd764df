package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradelog/trade"
)

// FormatTradeOrg renders a ledger entry as an Org-mode block suitable for
// pasting into a trading diary. Structured facts live in the PROPERTIES
// drawer; journal notes fill the narrative sections.
func FormatTradeOrg(t trade.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s (%s)", t.Type, t.Symbol, shortID(t.ID))
	if len(t.Journal.Tags) > 0 {
		fmt.Fprintf(&b, " :%s:", strings.Join(t.Journal.Tags, ":"))
	}
	b.WriteString("\n")

	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":TYPE: %s\n", t.Type)
	fmt.Fprintf(&b, ":DATE: %s\n", t.Date.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":QUANTITY: %s\n", t.Quantity)
	fmt.Fprintf(&b, ":PRICE: %s\n", t.Price.StringFixed(4))
	fmt.Fprintf(&b, ":TOTAL: %s\n", t.Total.StringFixed(2))
	fmt.Fprintf(&b, ":FEES: %s\n", t.Fees.StringFixed(2))
	if t.ProfitLoss != nil {
		fmt.Fprintf(&b, ":PROFIT_LOSS: %s\n", t.ProfitLoss.StringFixed(2))
	}
	fmt.Fprintf(&b, ":OPEN: %t\n", t.IsOpen)
	if !t.PositionOpenedAt.IsZero() {
		fmt.Fprintf(&b, ":OPENED_AT: %s\n", t.PositionOpenedAt.UTC().Format(time.RFC3339))
	}
	if t.ExitDeadline != nil {
		fmt.Fprintf(&b, ":EXIT_DEADLINE: <%s>\n", t.ExitDeadline.Format("2006-01-02 Mon"))
	}
	if t.ExitReason != "" {
		fmt.Fprintf(&b, ":EXIT_REASON: %s\n", t.ExitReason)
	}
	if t.Unmatched {
		b.WriteString(":UNMATCHED: t\n")
	}
	fmt.Fprintf(&b, ":SOURCE: %s\n", t.Source)
	if t.SourceID != "" {
		fmt.Fprintf(&b, ":SOURCE_ID: %s\n", t.SourceID)
	}
	if t.Journal.Emotion != "" {
		fmt.Fprintf(&b, ":EMOTION: %s\n", t.Journal.Emotion)
	}
	if t.Journal.Rating > 0 {
		fmt.Fprintf(&b, ":RATING: %d\n", t.Journal.Rating)
	}
	b.WriteString(":END:\n\n")

	b.WriteString("*** Notes\n")
	if t.Journal.Notes != "" {
		for _, line := range strings.Split(strings.TrimSpace(t.Journal.Notes), "\n") {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	} else {
		b.WriteString("- \n")
	}
	b.WriteString("\n*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []trade.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
