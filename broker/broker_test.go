package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/trade"
)

type fakeLister struct {
	fills []alpaca.AccountActivity
	reqs  []alpaca.GetAccountActivitiesRequest
	err   error
}

func (f *fakeLister) GetAccountActivities(req alpaca.GetAccountActivitiesRequest) ([]alpaca.AccountActivity, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	start := 0
	if req.PageToken != "" {
		for i, a := range f.fills {
			if a.ID == req.PageToken {
				start = i + 1
			}
		}
	}
	end := min(start+req.PageSize, len(f.fills))
	return f.fills[start:end], nil
}

func fill(n int, side string) alpaca.AccountActivity {
	return alpaca.AccountActivity{
		ID:              fmt.Sprintf("2024050%d::fill-%d", n%9+1, n),
		ActivityType:    "FILL",
		Symbol:          "AAPL",
		Side:            side,
		Qty:             decimal.NewFromInt(int64(n + 1)),
		Price:           decimal.RequireFromString("190.25"),
		TransactionTime: time.Date(2024, 5, 1, 14, n, 0, 0, time.UTC),
	}
}

func TestAlpacaExportPages(t *testing.T) {
	t.Parallel()

	f := &fakeLister{}
	for i := range 5 {
		f.fills = append(f.fills, fill(i, "buy"))
	}
	a := NewAlpacaWithClient(f, 2)

	raws, err := a.ExportData(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 5)
	require.Len(t, f.reqs, 3)

	assert.Equal(t, []string{"FILL"}, f.reqs[0].ActivityTypes)
	assert.Empty(t, f.reqs[0].PageToken)
	assert.Equal(t, f.fills[1].ID, f.reqs[1].PageToken)
	assert.Equal(t, f.fills[3].ID, f.reqs[2].PageToken)

	r := raws[0]
	assert.Equal(t, "AAPL", r.Symbol)
	assert.Equal(t, "buy", r.Side)
	assert.Equal(t, "1", r.Quantity)
	assert.Equal(t, "190.25", r.Price)
	assert.Equal(t, "2024-05-01T14:00:00Z", r.Timestamp)
	assert.Equal(t, trade.SourceAPI, r.Source)
	assert.Equal(t, f.fills[0].ID, r.SourceID)
	assert.Empty(t, r.ProfitLoss)
}

func TestAlpacaExportExactPage(t *testing.T) {
	t.Parallel()

	f := &fakeLister{fills: []alpaca.AccountActivity{fill(0, "buy"), fill(1, "sell")}}
	raws, err := NewAlpacaWithClient(f, 2).ExportData(context.Background())
	require.NoError(t, err)
	assert.Len(t, raws, 2)
	// second request returns an empty page
	assert.Len(t, f.reqs, 2)
}

func TestAlpacaExportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("401 unauthorized")
	_, err := NewAlpacaWithClient(&fakeLister{err: boom}, 0).ExportData(context.Background())
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewAlpacaWithClient(&fakeLister{}, 0).ExportData(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewExporter(t *testing.T) {
	t.Parallel()

	_, err := New("ibkr", 10)
	assert.Error(t, err)

	var e Exporter = ExporterFunc(func(context.Context) ([]trade.Raw, error) {
		return []trade.Raw{{Symbol: "X"}}, nil
	})
	raws, err := e.ExportData(context.Background())
	require.NoError(t, err)
	assert.Len(t, raws, 1)
}
