package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/trade"
)

// column aliases across the generic, Trading212 and IB-style exports
var columnAliases = map[string][]string{
	"symbol":      {"symbol", "ticker"},
	"side":        {"side", "action", "type"},
	"quantity":    {"quantity", "qty", "no. of shares", "shares"},
	"price":       {"price", "fill price", "price / share"},
	"timestamp":   {"timestamp", "time", "closing time", "date"},
	"source_id":   {"source_id", "id", "trade id", "order id"},
	"profit_loss": {"profit_loss", "result"},
}

// every matching column is summed into the row's fees
var feeColumns = []string{"fees", "fee", "commission", "charge amount", "currency conversion fee", "stamp duty"}

// Parsed is the outcome of reading one export file.
type Parsed struct {
	Records []trade.Raw
	// rows that are valid export lines but not executions (deposits,
	// dividends, interest)
	Ignored int
}

// ReadCSV maps an export onto raw records by header name. Unknown columns
// are ignored. Field values are passed through untouched for the Normalizer
// to validate.
func ReadCSV(r io.Reader, source trade.Source) (Parsed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Parsed{}, nil
	}
	if err != nil {
		return Parsed{}, fmt.Errorf("read header: %w", err)
	}

	cols, fees := mapHeader(header)
	for _, required := range []string{"symbol", "side", "quantity", "price", "timestamp"} {
		if _, ok := cols[required]; !ok {
			return Parsed{}, fmt.Errorf("csv header has no %s column (got %s)", required, strings.Join(header, ","))
		}
	}
	sideIsAction := strings.EqualFold(strings.TrimSpace(header[cols["side"]]), "action")

	var out Parsed
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(row) {
			continue
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		side := get("side")
		if _, ok := ParseSide(side); !ok && (sideIsAction || nonTrade(side)) {
			out.Ignored++
			continue
		}

		out.Records = append(out.Records, trade.Raw{
			Row:        line,
			Symbol:     get("symbol"),
			Side:       side,
			Quantity:   get("quantity"),
			Price:      get("price"),
			Timestamp:  get("timestamp"),
			Fees:       sumFees(row, fees),
			Source:     source,
			SourceID:   get("source_id"),
			ProfitLoss: get("profit_loss"),
		})
	}
	return out, nil
}

func mapHeader(header []string) (map[string]int, []int) {
	cols := map[string]int{}
	var fees []int
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for canon, aliases := range columnAliases {
			if _, taken := cols[canon]; taken {
				continue
			}
			for _, a := range aliases {
				if name == a {
					cols[canon] = i
				}
			}
		}
		for _, f := range feeColumns {
			if name == f || strings.HasPrefix(name, f+" (") {
				fees = append(fees, i)
			}
		}
	}
	return cols, fees
}

// sumFees adds every fee column. Unparseable cells are passed on verbatim so
// the Normalizer reports them.
func sumFees(row []string, idx []int) string {
	total := decimal.Zero
	seen := false
	for _, i := range idx {
		if i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		d, err := ParseAmount(v)
		if err != nil {
			return v
		}
		total = total.Add(d.Abs())
		seen = true
	}
	if !seen {
		return ""
	}
	return total.String()
}

var nonTradeActivities = []string{"deposit", "withdrawal", "dividend", "interest", "split", "transfer", "fee"}

// nonTrade recognises cash and corporate-action rows that share a side
// column with executions in IB-style exports.
func nonTrade(side string) bool {
	v := strings.ToLower(side)
	for _, a := range nonTradeActivities {
		if strings.Contains(v, a) {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
