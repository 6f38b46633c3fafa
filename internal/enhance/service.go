// Package enhance runs the post enhancement pipeline: featured image
// generation, related video lookup, WordPress media upload and the final
// post update, with operator notifications for every outcome.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/copywriter"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/media"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/metrics"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/notify"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/storage"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/store"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/telemetry"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/wordpress"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/youtube"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

// Sentinel errors for request validation.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrPromptRequired = errors.New("prompt or topic required")
)

// Aspect ratios used for the two image flavours.
const (
	FeaturedAspectRatio = "16:9"
	SocialAspectRatio   = "1:1"
)

// Fetcher downloads a generated image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Job is the unit handed to a Dispatcher: one run of one request.
type Job struct {
	RunID   uuid.UUID             `json:"run_id"`
	Request models.EnhanceRequest `json:"request"`
}

// Dispatcher schedules a Job for asynchronous execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// Deps are the collaborators of a Service. Videos, Copywriter and Archiver
// are optional; a nil value skips that step.
type Deps struct {
	Store      store.Store
	Waiter     waiter.JobWaiter
	Fetcher    Fetcher
	Transcoder media.Transcoder
	WordPress  wordpress.Client
	Videos     youtube.Searcher
	Copywriter copywriter.Writer
	Archiver   storage.Archiver
	Notifier   notify.Notifier
	Metrics    *metrics.Metrics
	Tracer     trace.Tracer
	Profile    config.SiteProfile
	Logger     *slog.Logger
}

// Service orchestrates enhancement runs.
type Service struct {
	store      store.Store
	waiter     waiter.JobWaiter
	fetcher    Fetcher
	transcoder media.Transcoder
	wp         wordpress.Client
	videos     youtube.Searcher
	copywriter copywriter.Writer
	archiver   storage.Archiver
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	profile    config.SiteProfile
	logger     *slog.Logger
	dispatcher Dispatcher
	now        func() time.Time
}

// NewService creates a Service. Call SetDispatcher before Trigger.
func NewService(deps Deps) *Service {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}
	return &Service{
		store:      deps.Store,
		waiter:     deps.Waiter,
		fetcher:    deps.Fetcher,
		transcoder: deps.Transcoder,
		wp:         deps.WordPress,
		videos:     deps.Videos,
		copywriter: deps.Copywriter,
		archiver:   deps.Archiver,
		notifier:   notifier,
		metrics:    m,
		tracer:     tracer,
		profile:    deps.Profile,
		logger:     logger,
		now:        time.Now,
	}
}

// SetDispatcher wires the dispatcher. The queue dispatcher needs the
// Service to exist first, so this cannot be a constructor argument.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// Validate checks the fields an enhancement cannot run without.
func Validate(req models.EnhanceRequest) error {
	var problems []string
	if req.PostID <= 0 {
		problems = append(problems, "post_id must be a positive integer")
	}
	if strings.TrimSpace(req.Title) == "" {
		problems = append(problems, "title is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// Trigger records a pending run and dispatches it. It returns as soon as
// the run is scheduled; the pipeline result is reported asynchronously.
func (s *Service) Trigger(ctx context.Context, req models.EnhanceRequest) (*models.Run, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if s.dispatcher == nil {
		return nil, fmt.Errorf("no dispatcher configured")
	}

	now := s.now().UTC()
	run := &models.Run{
		ID:        uuid.New(),
		PostID:    req.PostID,
		PostURL:   req.PostURL,
		Title:     req.Title,
		Status:    models.RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, Job{RunID: run.ID, Request: req}); err != nil {
		if uerr := s.store.UpdateRunStatus(ctx, run.ID, models.RunStatusFailed,
			store.WithErrorMessage(fmt.Sprintf("dispatch: %v", err))); uerr != nil {
			s.logger.WarnContext(ctx, "recording dispatch failure failed",
				slog.String("run_id", run.ID.String()),
				slog.String("error", uerr.Error()),
			)
		}
		return nil, fmt.Errorf("dispatching run: %w", err)
	}

	s.logger.InfoContext(ctx, "enhancement triggered",
		slog.String("run_id", run.ID.String()),
		slog.Int64("post_id", req.PostID),
	)
	return run, nil
}

// GetRun returns a run by id.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	return s.store.GetRun(ctx, id)
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, filter store.RunFilter) ([]*models.Run, error) {
	return s.store.ListRuns(ctx, filter)
}

// GeneratedImage is the result of an ad hoc generation.
type GeneratedImage struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// GenerateImage produces a square image for social posts. An explicit
// prompt wins over the topic template.
func (s *Service) GenerateImage(ctx context.Context, prompt, topic string) (*GeneratedImage, error) {
	prompt = strings.TrimSpace(prompt)
	topic = strings.TrimSpace(topic)
	if prompt == "" && topic == "" {
		return nil, ErrPromptRequired
	}
	if prompt == "" {
		prompt = s.profile.PromptForTopic(topic)
	}

	ctx, span := s.tracer.Start(ctx, "enhance.generate_image")
	defer span.End()

	url, err := s.generate(ctx, prompt, SocialAspectRatio)
	if err != nil {
		return nil, err
	}
	return &GeneratedImage{URL: url, Prompt: prompt}, nil
}

// generate runs one image job through the waiter and records its outcome.
func (s *Service) generate(ctx context.Context, prompt, aspectRatio string) (string, error) {
	url, err := s.waiter.Generate(ctx, waiter.Request{Prompt: prompt, AspectRatio: aspectRatio})
	s.metrics.ObserveImageJob(s.waiter.Name(), imageOutcome(err))
	return url, err
}

func imageOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, waiter.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, waiter.ErrMalformedCallback):
		return metrics.OutcomeMalformed
	case errors.Is(err, waiter.ErrSubmission):
		return metrics.OutcomeSubmission
	case errors.Is(err, context.Canceled), errors.Is(err, waiter.ErrClosed):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}
