package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradelog/position"
	"github.com/rustyeddy/tradelog/trade"
)

var tradeHeader = []string{
	"id", "date", "symbol", "type", "price", "quantity", "total", "fees",
	"profit_loss", "is_open", "position_opened_at", "exit_deadline", "exit_reason",
	"source", "source_id", "notes", "tags", "emotion", "rating",
}

// CSVJournal streams ledger entries to a CSV file.
type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	j := &CSVJournal{w: csv.NewWriter(f), f: f}
	if err := j.w.Write(tradeHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordTrade(t trade.Trade) error {
	return j.w.Write(tradeRow(t))
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		_ = j.f.Close()
		return err
	}
	return j.f.Close()
}

// WriteCSV writes trades with a header row to w.
func WriteCSV(w io.Writer, trades []trade.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(tradeRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func tradeRow(t trade.Trade) []string {
	pl := ""
	if t.ProfitLoss != nil {
		pl = t.ProfitLoss.StringFixed(2)
	}
	deadline := ""
	if t.ExitDeadline != nil {
		deadline = t.ExitDeadline.Format("2006-01-02")
	}
	return []string{
		t.ID,
		t.Date.Format(time.RFC3339),
		t.Symbol,
		string(t.Type),
		t.Price.String(),
		t.Quantity.String(),
		t.Total.String(),
		t.Fees.String(),
		pl,
		strconv.FormatBool(t.IsOpen),
		t.PositionOpenedAt.Format(time.RFC3339),
		deadline,
		t.ExitReason,
		string(t.Source),
		t.SourceID,
		t.Journal.Notes,
		strings.Join(t.Journal.Tags, ";"),
		t.Journal.Emotion,
		strconv.Itoa(t.Journal.Rating),
	}
}

var ibHeader = []string{"Symbol", "Side", "Qty", "Fill Price", "Commission", "Closing Time"}

const ibTime = "2006-01-02 15:04:05"

func ibSymbol(sym, exchange string) string {
	if exchange == "" {
		return sym
	}
	return exchange + ":" + sym
}

// WriteIBCSV writes every execution in the Interactive Brokers layout.
// Closing times are wall-clock in loc (UTC when nil), which is how
// ingest.ReadCSV reads them back.
func WriteIBCSV(w io.Writer, trades []trade.Trade, exchange string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ibHeader); err != nil {
		return err
	}
	for _, t := range trades {
		side := "Buy"
		if t.Type == trade.Sell {
			side = "Sell"
		}
		row := []string{
			ibSymbol(t.Symbol, exchange),
			side,
			t.Quantity.String(),
			t.Price.String(),
			t.Fees.String(),
			t.Date.In(loc).Format(ibTime),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOpenPositionsCSV writes open positions in the column layout used by
// Interactive Brokers and TradingView portfolio imports. The result reads
// back through ingest.ReadCSV as one BUY per symbol.
func WriteOpenPositionsCSV(w io.Writer, positions []position.OpenPosition, exchange string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ibHeader); err != nil {
		return err
	}
	for _, p := range positions {
		row := []string{
			ibSymbol(p.Symbol, exchange),
			"Buy",
			p.Quantity.String(),
			p.AvgEntryPrice.StringFixed(4),
			"0",
			p.LastActivity.Format(ibTime),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
