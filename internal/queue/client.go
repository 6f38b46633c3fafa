package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/metrics"
)

// Dispatcher enqueues jobs for a Worker. Jobs are never retried: a failed
// run has already reported itself, and replaying it would post twice.
type Dispatcher struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewDispatcher creates a Dispatcher. timeout bounds a single run on the worker.
func NewDispatcher(redisOpt asynq.RedisConnOpt, queueName string, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		client:  asynq.NewClient(redisOpt),
		queue:   queueName,
		timeout: timeout,
		metrics: m,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, job enhance.Job) error {
	task, err := NewEnhanceTask(job)
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(d.queue),
		asynq.TaskID(job.RunID.String()),
		asynq.MaxRetry(0),
		asynq.Timeout(d.timeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeEnhancePost, err)
	}
	if d.metrics != nil {
		d.metrics.QueueEnqueued(d.queue)
	}
	return nil
}

func (d *Dispatcher) Close() error {
	return d.client.Close()
}

var _ enhance.Dispatcher = (*Dispatcher)(nil)
