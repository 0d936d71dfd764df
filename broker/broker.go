// Package broker pulls executed fills from a brokerage account and hands
// them to the ledger as raw records.
package broker

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradelog/trade"
)

// Exporter is a brokerage the ledger can synchronise from. Records come
// back unnormalised with Source set to API and SourceID set to the
// broker's own fill identifier.
type Exporter interface {
	ExportData(ctx context.Context) ([]trade.Raw, error)
}

// New returns the exporter for a provider name.
func New(provider string, pageSize int) (Exporter, error) {
	switch provider {
	case "alpaca", "":
		return NewAlpaca(pageSize), nil
	default:
		return nil, fmt.Errorf("unknown broker provider %q", provider)
	}
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context) ([]trade.Raw, error)

func (f ExporterFunc) ExportData(ctx context.Context) ([]trade.Raw, error) { return f(ctx) }
