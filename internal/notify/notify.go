// Package notify delivers best-effort messages to booking parties. Delivery
// failures never abort the state transition that triggered them; callers log
// and move on.
package notify

import (
	"context"
	"log/slog"
)

type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier records would-be deliveries instead of sending them. Used when
// SMTP is unconfigured and in tests.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With(slog.String("component", "notify.log"))}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.log.Info("notification suppressed",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}
