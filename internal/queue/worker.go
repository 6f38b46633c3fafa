package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Handler executes enhance tasks pulled off the queue.
type Handler struct {
	exec   enhance.Executor
	logger *slog.Logger
	tracer trace.Tracer
}

func NewHandler(exec enhance.Executor, logger *slog.Logger) *Handler {
	return &Handler{exec: exec, logger: logger, tracer: telemetry.Tracer()}
}

// ProcessTask implements asynq.Handler.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	job, err := ParseEnhancePayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := h.tracer.Start(ctx, "queue.enhance_post", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("run.id", job.RunID.String()),
		attribute.Int64("post.id", job.Request.PostID),
	)
	defer span.End()

	if err := h.exec.Execute(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		return fmt.Errorf("execute run %s: %v: %w", job.RunID, err, asynq.SkipRetry)
	}
	span.SetStatus(codes.Ok, "enhanced")
	return nil
}

// Worker consumes the enhance queue in this process.
type Worker struct {
	server  *asynq.Server
	handler *Handler

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewWorker creates a Worker. shutdownTimeout bounds how long Shutdown waits
// for active tasks before asynq abandons them.
func NewWorker(redisOpt asynq.RedisConnOpt, queueName string, concurrency int, shutdownTimeout time.Duration, exec enhance.Executor, logger *slog.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		server: asynq.NewServer(
			redisOpt,
			asynq.Config{
				Concurrency: concurrency,
				Queues: map[string]int{
					queueName: 1,
				},
				ShutdownTimeout: shutdownTimeout,
				Logger:          slogAdapter{logger: logger.With(slog.String("component", "asynq"))},
				LogLevel:        asynq.WarnLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.WarnContext(ctx, "task failed",
						slog.String("type", task.Type()),
						slog.Int("retry", retried),
						slog.Int("max_retry", maxRetry),
						slog.String("error", err.Error()),
					)
				}),
			},
		),
		handler: NewHandler(exec, logger),
		stopped: make(chan struct{}),
	}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.Handle(TypeEnhancePost, w.handler)
	return w.server.Start(mux)
}

// Drain stops fetching new tasks and waits for active ones until ctx is
// done. Calling it again keeps waiting on the same shutdown.
func (w *Worker) Drain(ctx context.Context) error {
	w.stopOnce.Do(func() {
		go func() {
			w.server.Shutdown()
			close(w.stopped)
		}()
	})
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops fetching new tasks and waits for active ones.
func (w *Worker) Shutdown() {
	_ = w.Drain(context.Background())
}

// slogAdapter routes asynq's internal logging to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(args ...any) { a.logger.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...any)  { a.logger.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...any)  { a.logger.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...any) { a.logger.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...any) {
	a.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}

var _ asynq.Handler = (*Handler)(nil)
