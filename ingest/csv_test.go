package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/trade"
)

const trading212Export = `Action,Time,ISIN,Ticker,Name,ID,No. of shares,Price / share,Currency (Price / share),Result,Total,Charge amount,Currency conversion fee (EUR)
Deposit,2024-01-02 09:00:00,,,,,,,,,1000.00,,
Market buy,2024-01-02 14:30:05,US0378331005,AAPL,Apple,EOF1,2.5,185.20,USD,,463.00,,0.69
Limit sell,2024-01-09 15:00:00,US0378331005,AAPL,Apple,EOF2,1,190.00,USD,4.80,190.00,0.10,0.29
Dividend (Ordinary),2024-01-10 10:00:00,US0378331005,AAPL,Apple,,0.5,0.24,USD,0.12,0.12,,
Lending interest,2024-01-11 10:00:00,,,,,,,,0.05,0.05,,
`

func TestReadCSVTrading212(t *testing.T) {
	t.Parallel()

	p, err := ReadCSV(strings.NewReader(trading212Export), trade.SourceCSV)
	require.NoError(t, err)

	assert.Equal(t, 3, p.Ignored)
	require.Len(t, p.Records, 2)

	buy := p.Records[0]
	assert.Equal(t, 3, buy.Row)
	assert.Equal(t, "AAPL", buy.Symbol)
	assert.Equal(t, "Market buy", buy.Side)
	assert.Equal(t, "2.5", buy.Quantity)
	assert.Equal(t, "185.20", buy.Price)
	assert.Equal(t, "2024-01-02 14:30:05", buy.Timestamp)
	assert.Equal(t, "0.69", buy.Fees)
	assert.Equal(t, "EOF1", buy.SourceID)

	sell := p.Records[1]
	assert.Equal(t, "0.39", sell.Fees)
	assert.Equal(t, "4.80", sell.ProfitLoss)
}

const ibExport = `Symbol,Side,Qty,Fill Price,Commission,Closing Time
NASDAQ:AAPL,Buy,10,150.25,0,2024-02-01 10:00:00
NASDAQ:AAPL,Sell,4,155.00,,2024-02-05 11:00:00
$CASH,Deposit,500,0,0,2024-02-01 09:00:00
NASDAQ:MSFT,Dividend,1.2,,,2024-02-06 09:00:00
`

func TestReadCSVIBStyle(t *testing.T) {
	t.Parallel()

	p, err := ReadCSV(strings.NewReader(ibExport), trade.SourceCSV)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Ignored)
	require.Len(t, p.Records, 2)
	assert.Equal(t, "NASDAQ:AAPL", p.Records[0].Symbol)
	assert.Equal(t, "0", p.Records[0].Fees)
	assert.Equal(t, "", p.Records[1].Fees)
	assert.Equal(t, "", p.Records[1].SourceID)

	valid, rejected := NewNormalizer(time.UTC, seqIDs()).Normalize(p.Records)
	assert.Empty(t, rejected)
	require.Len(t, valid, 2)
	assert.Equal(t, "AAPL", valid[0].Symbol)
	assert.Equal(t, trade.Sell, valid[1].Type)
}

func TestReadCSVGenericKeepsBadRowsForValidation(t *testing.T) {
	t.Parallel()

	in := "symbol,side,quantity,price,timestamp,fees,source_id\n" +
		"TSLA,BUY,5,200,2024-03-01T10:00:00Z,1,A1\n" +
		",BUY,5,200,2024-03-01T10:00:00Z,1,A2\n" +
		"\n" +
		"TSLA,SELL,abc,210,2024-03-02T10:00:00Z,,A3\n"

	p, err := ReadCSV(strings.NewReader(in), trade.SourceAPI)
	require.NoError(t, err)
	require.Len(t, p.Records, 3)
	assert.Equal(t, trade.SourceAPI, p.Records[0].Source)

	valid, rejected := NewNormalizer(time.UTC, seqIDs()).Normalize(p.Records)
	assert.Len(t, valid, 1)
	require.Len(t, rejected, 2)
	assert.Equal(t, "symbol", rejected[0].Field)
	assert.Equal(t, 3, rejected[0].Row)
	assert.Equal(t, "quantity", rejected[1].Field)
	assert.Equal(t, 5, rejected[1].Row)
}

func TestReadCSVMissingColumns(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(strings.NewReader("symbol,quantity\nAAPL,1\n"), trade.SourceCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no side column")
}

func TestReadCSVEmpty(t *testing.T) {
	t.Parallel()

	p, err := ReadCSV(strings.NewReader(""), trade.SourceCSV)
	require.NoError(t, err)
	assert.Empty(t, p.Records)
}
