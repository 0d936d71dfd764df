package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/rustyeddy/tradelog/trade"
)

// ActivityLister is the slice of the Alpaca trading client we use.
type ActivityLister interface {
	GetAccountActivities(req alpaca.GetAccountActivitiesRequest) ([]alpaca.AccountActivity, error)
}

const defaultPageSize = 100

// Alpaca exports FILL activities from an Alpaca account. Credentials come
// from APCA_API_KEY_ID and APCA_API_SECRET_KEY; APCA_API_BASE_URL selects
// paper or live.
type Alpaca struct {
	client   ActivityLister
	pageSize int
	// After limits the export to fills after this instant when set.
	After time.Time
}

func NewAlpaca(pageSize int) *Alpaca {
	return NewAlpacaWithClient(alpaca.NewClient(alpaca.ClientOpts{}), pageSize)
}

func NewAlpacaWithClient(c ActivityLister, pageSize int) *Alpaca {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Alpaca{client: c, pageSize: pageSize}
}

// ExportData pages through every fill, oldest first. Paging continues from
// the last activity ID until a short page comes back.
func (a *Alpaca) ExportData(ctx context.Context) ([]trade.Raw, error) {
	var (
		out   []trade.Raw
		token string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := a.client.GetAccountActivities(alpaca.GetAccountActivitiesRequest{
			ActivityTypes: []string{"FILL"},
			After:         a.After,
			Direction:     "asc",
			PageSize:      a.pageSize,
			PageToken:     token,
		})
		if err != nil {
			return nil, fmt.Errorf("alpaca activities: %w", err)
		}
		for _, act := range page {
			out = append(out, fromActivity(act))
		}
		if len(page) < a.pageSize {
			return out, nil
		}
		next := page[len(page)-1].ID
		if next == "" || next == token {
			return out, nil
		}
		token = next
	}
}

func fromActivity(act alpaca.AccountActivity) trade.Raw {
	return trade.Raw{
		Symbol:    act.Symbol,
		Side:      act.Side,
		Quantity:  act.Qty.String(),
		Price:     act.Price.String(),
		Timestamp: act.TransactionTime.UTC().Format(time.RFC3339Nano),
		Source:    trade.SourceAPI,
		SourceID:  act.ID,
	}
}
