package risk

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier is the side-effecting channel for new alerts (sound, push,
// chat). It is called outside the monitor lock.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Alert) error { return nil }

// LogNotifier writes alerts to a logger at warn or error level.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, a Alert) error {
	ev := n.Log.Warn()
	if a.Severity == Critical {
		ev = n.Log.Error()
	}
	ev.Str("alert", a.ID).
		Str("symbol", a.Symbol).
		Str("severity", string(a.Severity)).
		Str("loss_percent", a.LossPercent.StringFixed(2)).
		Str("price", a.Price.String()).
		Str("stop_loss", a.StopLossPrice.StringFixed(2)).
		Msg("position loss alert")
	return nil
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

func (f NotifierFunc) Notify(ctx context.Context, a Alert) error { return f(ctx, a) }
