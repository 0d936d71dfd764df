package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"aapl", "AAPL"},
		{" NASDAQ:TSLA ", "TSLA"},
		{"NYSE:brk.b", "BRK.B"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSymbol(tt.in), tt.in)
	}
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SourceAPI, ParseSource("api"))
	assert.Equal(t, SourceAPI, ParseSource(" API "))
	assert.Equal(t, SourceCSV, ParseSource("csv"))
	assert.Equal(t, SourceCSV, ParseSource(""))
}

func TestTradeRealized(t *testing.T) {
	t.Parallel()

	pl := decimal.NewFromInt(10)
	open := Trade{Type: Sell, IsOpen: true}
	closedSell := Trade{Type: Sell, IsOpen: false, ProfitLoss: &pl}
	zero := decimal.Zero
	closedBuy := Trade{Type: Buy, IsOpen: false, ProfitLoss: &zero}

	assert.False(t, open.Realized())
	assert.True(t, closedSell.Realized())
	assert.False(t, closedBuy.Realized())
	assert.True(t, closedBuy.Closed())
	assert.True(t, open.PL().IsZero())
	assert.True(t, closedSell.PL().Equal(pl))
}

func TestPersistWrapsOnce(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Persist("x", nil))

	err := Persist("insert", context.DeadlineExceeded)
	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "insert", pe.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	again := Persist("outer", err)
	assert.Same(t, err, again)
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	v := &ValidationError{Row: 3, Field: "quantity", Value: "-1", Reason: "must be positive"}
	assert.Equal(t, `row 3: quantity "-1" must be positive`, v.Error())
	assert.Equal(t, "symbol is required", (&ValidationError{Field: "symbol", Reason: "is required"}).Error())

	u := &UnmatchedSellError{TradeID: "T1", Symbol: "AAPL",
		Requested: decimal.NewFromInt(50), Available: decimal.Zero}
	assert.Contains(t, u.Error(), "sells 50, only 0 open")

	p := &PriceUnavailableError{Symbol: "AAPL", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, p, context.DeadlineExceeded)
}
