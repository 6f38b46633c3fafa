package enhance

import (
	"context"
	"sync"
)

// Executor runs a single job to completion.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

// InlineDispatcher runs each job on its own goroutine in this process.
// Jobs are detached from the caller's cancellation so that a finished
// HTTP request does not abort the run it started.
type InlineDispatcher struct {
	exec Executor
	wg   sync.WaitGroup
}

func NewInlineDispatcher(exec Executor) *InlineDispatcher {
	return &InlineDispatcher{exec: exec}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, job Job) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.exec.Execute(context.WithoutCancel(ctx), job)
	}()
	return nil
}

// Wait blocks until every dispatched job has returned or ctx is done.
func (d *InlineDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Dispatcher = (*InlineDispatcher)(nil)
	_ Executor   = (*Service)(nil)
)
