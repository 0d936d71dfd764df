package journal

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/ingest"
	"github.com/rustyeddy/tradelog/position"
	"github.com/rustyeddy/tradelog/trade"
)

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	pl := decimal.RequireFromString("-12.5")
	tr := sample("T1", "fp", 2)
	tr.IsOpen = false
	tr.ProfitLoss = &pl
	tr.Journal.Tags = []string{"a", "b"}
	require.NoError(t, j.RecordTrade(tr))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, tradeHeader, rows[0])
	row := rows[1]
	assert.Equal(t, "T1", row[0])
	assert.Equal(t, "2024-01-02T14:30:05Z", row[1])
	assert.Equal(t, "BUY", row[3])
	assert.Equal(t, "-12.50", row[8])
	assert.Equal(t, "false", row[9])
	assert.Equal(t, "a;b", row[16])
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []trade.Trade{sample("A", "fp-a", 2), sample("B", "fp-b", 3)}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "", rows[1][8], "open trades have no P&L")
}

func TestWriteOpenPositionsCSV(t *testing.T) {
	t.Parallel()

	positions := []position.OpenPosition{{
		Symbol:        "AAPL",
		Quantity:      decimal.RequireFromString("12.5"),
		AvgEntryPrice: decimal.RequireFromString("11.25"),
		LastActivity:  time.Date(2024, 5, 4, 14, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteOpenPositionsCSV(&buf, positions, "NASDAQ"))

	want := "Symbol,Side,Qty,Fill Price,Commission,Closing Time\n" +
		"NASDAQ:AAPL,Buy,12.5,11.2500,0,2024-05-04 14:00:00\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteIBCSVReadsBack(t *testing.T) {
	t.Parallel()

	ny := time.FixedZone("EST", -5*3600)

	buy := sample("A", "fp-a", 2)
	buy.Date = time.Date(2024, 1, 2, 14, 30, 5, 0, time.UTC)
	sell := sample("B", "fp-b", 3)
	sell.Type = trade.Sell
	sell.Symbol = "MSFT"
	sell.Date = time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC)
	sell.Fees = decimal.Zero

	var buf bytes.Buffer
	require.NoError(t, WriteIBCSV(&buf, []trade.Trade{buy, sell}, "NASDAQ", ny))
	assert.True(t, strings.HasPrefix(buf.String(),
		"Symbol,Side,Qty,Fill Price,Commission,Closing Time\n"+
			"NASDAQ:AAPL,Buy,2.5,185.2,0.69,2024-01-02 09:30:05\n"), buf.String())

	parsed, err := ingest.ReadCSV(&buf, trade.SourceCSV)
	require.NoError(t, err)
	got, rejected := ingest.NewNormalizer(ny, nil).Normalize(parsed.Records)
	require.Empty(t, rejected)
	require.Len(t, got, 2)

	for i, want := range []trade.Trade{buy, sell} {
		assert.Equal(t, want.Symbol, got[i].Symbol)
		assert.Equal(t, want.Type, got[i].Type)
		assert.True(t, want.Quantity.Equal(got[i].Quantity))
		assert.True(t, want.Price.Equal(got[i].Price))
		assert.True(t, want.Fees.Equal(got[i].Fees))
		assert.True(t, want.Date.Equal(got[i].Date), "%s != %s", want.Date, got[i].Date)
	}
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	pl := decimal.RequireFromString("250")
	deadline := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	tr := sample("01HRZ8V6Q4T8Y3J2K1M0N9P8Q7", "fp", 2)
	tr.Type = trade.Sell
	tr.IsOpen = false
	tr.ProfitLoss = &pl
	tr.ExitDeadline = &deadline
	tr.ExitReason = "earnings"
	tr.Journal = trade.Journal{Notes: "took profit\ntoo early", Tags: []string{"swing"}, Rating: 4}

	out := FormatTradeOrg(tr)

	assert.Contains(t, out, "** SELL AAPL (01HRZ8V6) :swing:")
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":ID: 01HRZ8V6Q4T8Y3J2K1M0N9P8Q7")
	assert.Contains(t, out, ":PRICE: 185.2000")
	assert.Contains(t, out, ":TOTAL: 463.00")
	assert.Contains(t, out, ":PROFIT_LOSS: 250.00")
	assert.Contains(t, out, ":OPEN: false")
	assert.Contains(t, out, ":EXIT_DEADLINE: <2024-03-20 Wed>")
	assert.Contains(t, out, ":EXIT_REASON: earnings")
	assert.Contains(t, out, ":RATING: 4")
	assert.Contains(t, out, ":END:")
	assert.Contains(t, out, "- took profit\n- too early\n")
	assert.Contains(t, out, "*** Review")
}

func TestFormatTradeOrgOpenTrade(t *testing.T) {
	t.Parallel()

	out := FormatTradeOrg(sample("short", "fp", 2))
	assert.Contains(t, out, "** BUY AAPL (short)\n")
	assert.NotContains(t, out, ":PROFIT_LOSS:")
	assert.NotContains(t, out, ":EXIT_DEADLINE:")
	assert.Contains(t, out, ":OPEN: true")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	out := FormatTradesOrg([]trade.Trade{sample("A", "fp-a", 2), sample("B", "fp-b", 3)})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, "\n\n\n** BUY AAPL (B)")
}
