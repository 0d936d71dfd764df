package ingest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/tradelog/trade"
)

var fingerprintSpace = uuid.MustParse("6f1c7d1e-3b0a-5e8f-9a42-7d2b1c0e4f55")

// Fingerprint is the dedup key of a trade. Broker-supplied ids win; rows
// without one are keyed on their content so id-less exports still dedup.
func Fingerprint(t trade.Trade) string {
	return uuid.NewSHA1(fingerprintSpace, []byte(fingerprintKey(t))).String()
}

func fingerprintKey(t trade.Trade) string {
	if t.SourceID != "" {
		return strings.Join([]string{"id", string(t.Source), t.SourceID}, "|")
	}
	return strings.Join([]string{
		"row",
		t.Symbol,
		t.Date.UTC().Format(time.RFC3339Nano),
		string(t.Type),
		t.Quantity.String(),
		t.Price.String(),
	}, "|")
}
