package waiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/kie"
)

const defaultCallbackTimeout = 120 * time.Second

// CallbackWaiter waits for kie.ai to post the task result to the callback URL.
type CallbackWaiter struct {
	client      kie.Client
	callbackURL string
	timeout     time.Duration
	registry    *Registry
}

// NewCallbackWaiter creates a CallbackWaiter. The registry is owned by the
// waiter; pass a fresh one per waiter.
func NewCallbackWaiter(client kie.Client, callbackURL string, timeout time.Duration, registry *Registry) *CallbackWaiter {
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}
	return &CallbackWaiter{
		client:      client,
		callbackURL: callbackURL,
		timeout:     timeout,
		registry:    registry,
	}
}

func (w *CallbackWaiter) Name() string { return "callback" }

func (w *CallbackWaiter) Pending() int { return w.registry.Len() }

// Generate submits the task and blocks until its callback arrives, the
// timeout fires, or ctx is cancelled.
func (w *CallbackWaiter) Generate(ctx context.Context, req Request) (string, error) {
	taskID, err := w.client.CreateTask(ctx, kie.TaskRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		CallbackURL: w.callbackURL,
	})
	if err != nil {
		return "", submissionError(err)
	}

	// The task id is only known now, so a callback racing ahead of add is
	// answered unmatched and this job runs into its timeout.
	job, err := w.registry.add(taskID, w.timeout)
	if err != nil {
		return "", err
	}
	slog.Info("kie.ai task created", "task_id", taskID, "waiter", w.Name())

	select {
	case out := <-job.done:
		return out.url, out.err
	case <-ctx.Done():
		if w.registry.settle(taskID, outcome{err: ctx.Err()}) {
			return "", ctx.Err()
		}
		// Settled concurrently; the outcome is already buffered.
		out := <-job.done
		return out.url, out.err
	}
}

// HandleCallback settles the job named in p. Callbacks for unknown tasks
// and non-terminal states are ignored.
func (w *CallbackWaiter) HandleCallback(p kie.CallbackPayload) bool {
	rec := p.Data
	slog.Info("kie.ai callback received", "task_id", rec.TaskID, "state", rec.State)

	var out outcome
	switch rec.State {
	case kie.StateSuccess:
		u, err := rec.ResultURL()
		switch {
		case err != nil:
			out.err = fmt.Errorf("%w: failed to parse resultJson", ErrMalformedCallback)
		case u == "":
			out.err = fmt.Errorf("%w: no image URL in callback", ErrMalformedCallback)
		default:
			out.url = u
		}
	case kie.StateFail:
		out.err = fmt.Errorf("%w - %s", ErrGenerationFailed, rec.FailReason())
	default:
		return false
	}

	settled := w.registry.settle(rec.TaskID, out)
	if !settled {
		slog.Warn("kie.ai callback for unknown task", "task_id", rec.TaskID, "state", rec.State)
	}
	return settled
}

// Close fails every pending job. Used during shutdown.
func (w *CallbackWaiter) Close() error {
	if n := w.registry.closeAll(ErrClosed); n > 0 {
		slog.Warn("pending kie.ai jobs abandoned", "count", n)
	}
	return nil
}

var (
	_ JobWaiter       = (*CallbackWaiter)(nil)
	_ CallbackHandler = (*CallbackWaiter)(nil)
)
