// Package notify delivers human-readable status messages to operators.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Notifier sends a plain-text message to a channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards every message. It is used when no channel is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffort sends text and logs a failure instead of returning it.
// Notification failures never affect the outcome of a run.
func BestEffort(ctx context.Context, n Notifier, logger *slog.Logger, text string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, text); err != nil {
		logger.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
	}
}

var (
	_ Notifier = Nop{}
	_ Notifier = Multi(nil)
)
