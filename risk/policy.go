// Package risk watches open positions against live prices and raises
// loss alerts in two severity bands.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	None     Severity = ""
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

// Thresholds are loss percentages, so both are negative. A loss at or
// below CriticalPercent is critical; at or below WarningPercent is a
// warning.
type Thresholds struct {
	WarningPercent  float64 `yaml:"warning_percent" json:"warning_percent"`
	CriticalPercent float64 `yaml:"critical_percent" json:"critical_percent"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{WarningPercent: -5, CriticalPercent: -8}
}

func (t Thresholds) Validate() error {
	if t.WarningPercent >= 0 {
		return fmt.Errorf("warning_percent must be negative, got %v", t.WarningPercent)
	}
	if t.CriticalPercent >= t.WarningPercent {
		return fmt.Errorf("critical_percent (%v) must be below warning_percent (%v)", t.CriticalPercent, t.WarningPercent)
	}
	return nil
}

// Classify maps a loss percentage to a severity.
func (t Thresholds) Classify(lossPercent decimal.Decimal) Severity {
	switch {
	case lossPercent.LessThanOrEqual(decimal.NewFromFloat(t.CriticalPercent)):
		return Critical
	case lossPercent.LessThanOrEqual(decimal.NewFromFloat(t.WarningPercent)):
		return Warning
	default:
		return None
	}
}

// StopLossPrice is the price at which entry reaches the critical band.
func (t Thresholds) StopLossPrice(entry decimal.Decimal) decimal.Decimal {
	f := decimal.NewFromInt(1).Add(decimal.NewFromFloat(t.CriticalPercent).Div(hundred))
	return entry.Mul(f)
}

var hundred = decimal.NewFromInt(100)

// LossPercent is the percentage move from entry to price. Negative values
// are losses. ok is false when entry is not positive.
func LossPercent(entry, price decimal.Decimal) (decimal.Decimal, bool) {
	if !entry.IsPositive() {
		return decimal.Zero, false
	}
	return price.Sub(entry).Div(entry).Mul(hundred), true
}

// Bucket is the whole-percent band used to deduplicate alerts:
// floor(lossPercent).
func Bucket(lossPercent decimal.Decimal) int64 {
	return lossPercent.Floor().IntPart()
}
