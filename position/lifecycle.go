// Package position tracks exit plans on open trades: a deadline and a
// reason the trader intends to be out by. Closing is driven by the lot
// matcher; this package only guards the deadline transitions and derives
// the overdue view.
package position

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradelog/trade"
)

type State string

const (
	Open        State = "OPEN"
	DeadlineSet State = "DEADLINE_SET"
	Overdue     State = "OVERDUE"
	Closed      State = "CLOSED"
)

// StateOf derives the lifecycle state of t as of now. Overdue is never
// stored; it is computed from the deadline each time, with calendar dates
// taken in loc.
func StateOf(t trade.Trade, now time.Time, loc *time.Location) State {
	switch {
	case !t.IsOpen:
		return Closed
	case t.ExitDeadline == nil:
		return Open
	case IsOverdue(t, now, loc):
		return Overdue
	default:
		return DeadlineSet
	}
}

// IsOverdue is true when t is open and today is after the deadline date,
// both dates taken in loc. A nil loc is UTC.
func IsOverdue(t trade.Trade, now time.Time, loc *time.Location) bool {
	if !t.IsOpen || t.ExitDeadline == nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	today := dateOf(now.In(loc))
	return today.After(dateOf(t.ExitDeadline.In(loc)))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SetDeadline attaches an exit plan. Only open positions accept one;
// unmatched SELLs are open but are not positions.
func SetDeadline(t *trade.Trade, deadline time.Time, reason string) error {
	if !t.IsOpen || t.Unmatched {
		return fmt.Errorf("set deadline on %s: %w", t.ID, trade.ErrNotOpen)
	}
	if deadline.IsZero() {
		return fmt.Errorf("set deadline on %s: deadline is required", t.ID)
	}
	dl := deadline
	t.ExitDeadline = &dl
	t.ExitReason = strings.TrimSpace(reason)
	return nil
}

// ClearDeadline is legal in any state and never changes IsOpen.
func ClearDeadline(t *trade.Trade) {
	t.ExitDeadline = nil
	t.ExitReason = ""
}

// FilterOverdue returns the open trades whose deadline has passed in loc,
// oldest deadline first.
func FilterOverdue(trades []trade.Trade, now time.Time, loc *time.Location) []trade.Trade {
	var out []trade.Trade
	for _, t := range trades {
		if IsOverdue(t, now, loc) {
			out = append(out, t)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ExitDeadline.Before(*out[j-1].ExitDeadline); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
