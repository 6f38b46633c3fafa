// Package waiter turns an asynchronous kie.ai generation task into a
// blocking call that returns the generated image URL.
//
// Two implementations exist. CallbackWaiter parks the caller until kie.ai
// posts the result to the callback endpoint. PollingWaiter asks recordInfo
// on a fixed interval. Both settle each job exactly once.
package waiter

import (
	"context"
	"errors"
	"fmt"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/kie"
)

// Sentinel errors for generation outcomes.
var (
	ErrSubmission        = errors.New("kie.ai: task submission failed")
	ErrMalformedCallback = errors.New("kie.ai: malformed callback")
	ErrGenerationFailed  = errors.New("kie.ai: generation failed")
	ErrTimeout           = errors.New("kie.ai: timeout")
	ErrClosed            = errors.New("kie.ai: waiter closed")
)

// Request describes the image to generate.
type Request struct {
	Prompt      string
	AspectRatio string
}

// JobWaiter submits a generation task and blocks until it settles.
type JobWaiter interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	// Pending returns the number of jobs currently awaiting a result.
	Pending() int
}

// CallbackHandler accepts completion callbacks posted by kie.ai.
// It reports whether a pending job was settled.
type CallbackHandler interface {
	HandleCallback(p kie.CallbackPayload) bool
}

// New constructs the waiter selected by cfg.Mode. Called once at startup.
func New(cfg config.WaiterConfig, client kie.Client, callbackURL string) (JobWaiter, error) {
	switch cfg.Mode {
	case config.WaiterModeCallback:
		if callbackURL == "" {
			return nil, fmt.Errorf("callback waiter requires a callback URL")
		}
		return NewCallbackWaiter(client, callbackURL, cfg.Timeout, NewRegistry()), nil
	case config.WaiterModePolling:
		return NewPollingWaiter(client, cfg.PollInterval, cfg.PollMaxAttempts), nil
	default:
		return nil, fmt.Errorf("unknown waiter mode %q: must be one of callback, polling", cfg.Mode)
	}
}

func submissionError(err error) error {
	return fmt.Errorf("%w: %v", ErrSubmission, err)
}
