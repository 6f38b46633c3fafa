package waiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/kie"
)

const (
	defaultPollInterval    = 2 * time.Second
	defaultPollMaxAttempts = 60
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PollingWaiter queries recordInfo until the task reaches a terminal state
// or the attempt budget runs out.
type PollingWaiter struct {
	client      kie.Client
	interval    time.Duration
	maxAttempts int
	sleep       SleepFunc
	inflight    atomic.Int64
}

type PollingOption func(*PollingWaiter)

// WithSleep replaces the wall-clock sleep between attempts.
func WithSleep(fn SleepFunc) PollingOption {
	return func(w *PollingWaiter) {
		w.sleep = fn
	}
}

func NewPollingWaiter(client kie.Client, interval time.Duration, maxAttempts int, opts ...PollingOption) *PollingWaiter {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultPollMaxAttempts
	}
	w := &PollingWaiter{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *PollingWaiter) Name() string { return "polling" }

func (w *PollingWaiter) Pending() int { return int(w.inflight.Load()) }

// Generate submits the task without a callback URL and polls for the result.
// Each attempt sleeps first, then queries. Query errors are logged and use
// up the attempt. A success record without a URL keeps polling.
func (w *PollingWaiter) Generate(ctx context.Context, req Request) (string, error) {
	taskID, err := w.client.CreateTask(ctx, kie.TaskRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		return "", submissionError(err)
	}
	slog.Info("kie.ai task created", "task_id", taskID, "waiter", w.Name())

	w.inflight.Add(1)
	defer w.inflight.Add(-1)

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err := w.sleep(ctx, w.interval); err != nil {
			return "", err
		}

		rec, err := w.client.QueryTask(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Warn("kie.ai poll failed", "task_id", taskID, "attempt", attempt, "error", err)
			continue
		}

		switch rec.State {
		case kie.StateSuccess:
			u, err := rec.ResultURL()
			if err != nil {
				slog.Warn("kie.ai poll returned unreadable result", "task_id", taskID, "attempt", attempt, "error", err)
				continue
			}
			if u != "" {
				return u, nil
			}
		case kie.StateFail:
			return "", fmt.Errorf("%w - %s", ErrGenerationFailed, rec.FailReason())
		}
	}

	total := time.Duration(w.maxAttempts) * w.interval
	return "", fmt.Errorf("%w after %g seconds (%d polls)", ErrTimeout, total.Seconds(), w.maxAttempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ JobWaiter = (*PollingWaiter)(nil)
