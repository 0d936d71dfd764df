package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/lots"
	"github.com/rustyeddy/tradelog/trade"
)

func exec(id, sym string, side trade.Side, qty, price string, day int) trade.Trade {
	q, p := decimal.RequireFromString(qty), decimal.RequireFromString(price)
	return trade.Trade{
		ID:       id,
		Symbol:   sym,
		Type:     side,
		Date:     time.Date(2024, 5, day, 14, 0, 0, 0, time.UTC),
		Quantity: q,
		Price:    p,
		Total:    q.Mul(p),
		IsOpen:   true,
	}
}

func TestOpenPositionsWeightedAverage(t *testing.T) {
	t.Parallel()

	results := lots.MatchAll([]trade.Trade{
		exec("B1", "AAPL", trade.Buy, "100", "10", 1),
		exec("B2", "AAPL", trade.Buy, "50", "12", 2),
		exec("S1", "AAPL", trade.Sell, "120", "15", 3),
		exec("B3", "AAPL", trade.Buy, "10", "9", 4),
		exec("B4", "MSFT", trade.Buy, "2", "300", 1),
		exec("S2", "MSFT", trade.Sell, "2", "310", 2),
	})

	got := OpenPositions(results)
	require.Len(t, got, 1, "MSFT is flat")

	p := got[0]
	assert.Equal(t, "AAPL", p.Symbol)
	assert.True(t, p.Quantity.Equal(decimal.NewFromInt(40)))
	// (30*12 + 10*9) / 40
	assert.True(t, p.AvgEntryPrice.Equal(decimal.RequireFromString("11.25")), p.AvgEntryPrice.String())
	assert.Equal(t, 2, p.OpenedAt.Day())
	assert.Equal(t, 4, p.LastActivity.Day())
	assert.Len(t, p.Lots, 2)

	assert.True(t, p.UnrealizedPL(decimal.NewFromInt(10)).Equal(decimal.NewFromInt(-50)))
}

func TestOpenPositionsIgnoresDust(t *testing.T) {
	t.Parallel()

	results := lots.MatchAll([]trade.Trade{
		exec("B1", "PLTR", trade.Buy, "1.00005", "20", 1),
		exec("S1", "PLTR", trade.Sell, "1", "21", 2),
	})
	assert.Empty(t, OpenPositions(results))
}
