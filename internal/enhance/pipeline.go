package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/notify"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/redact"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/store"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/wordpress"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Pipeline step names used in metrics and spans.
const (
	stepGenerate  = "generate_image"
	stepVideo     = "find_video"
	stepDownload  = "download"
	stepTranscode = "transcode"
	stepArchive   = "archive"
	stepUpload    = "upload_media"
	stepMetadata  = "media_metadata"
	stepCopy      = "meta_description"
	stepGetPost   = "get_post"
	stepUpdate    = "update_post"
)

// outcome carries what a successful run produced.
type outcome struct {
	imageURL string
	mediaID  int64
	video    *models.Video
}

// Execute runs the pipeline for job and records the result on the run.
// Every failure is reported through the notifier; the post itself is never
// rolled back. The returned error mirrors the run's failure message.
func (s *Service) Execute(ctx context.Context, job Job) (err error) {
	req := job.Request
	started := s.now()
	logger := s.logger.With(
		slog.String("run_id", job.RunID.String()),
		slog.Int64("post_id", req.PostID),
	)

	ctx, span := s.tracer.Start(ctx, "enhance.run", trace.WithAttributes(
		attribute.String("run.id", job.RunID.String()),
		attribute.Int64("post.id", req.PostID),
	))
	defer span.End()

	s.metrics.RunStarted()
	status := models.RunStatusFailed
	defer func() {
		s.metrics.RunFinished(status, s.now().Sub(started))
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in enhancement run", slog.Any("panic", r))
			err = fmt.Errorf("panic: %v", r)
			s.fail(ctx, logger, job, err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if uerr := s.store.UpdateRunStatus(ctx, job.RunID, models.RunStatusRunning); uerr != nil {
		logger.WarnContext(ctx, "marking run running failed", slog.String("error", uerr.Error()))
	}

	logger.InfoContext(ctx, "enhancing post", slog.String("title", req.Title))
	notify.BestEffort(ctx, s.notifier, logger, startMessage(req.Title))

	out, err := s.enhance(ctx, logger, req)
	if err != nil {
		s.fail(ctx, logger, job, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	opts := []store.RunUpdateOption{
		store.WithImageURL(out.imageURL),
		store.WithMediaID(out.mediaID),
	}
	if out.video != nil {
		opts = append(opts, store.WithVideoID(out.video.ID))
	}
	if uerr := s.store.UpdateRunStatus(ctx, job.RunID, models.RunStatusCompleted, opts...); uerr != nil {
		logger.WarnContext(ctx, "marking run completed failed", slog.String("error", uerr.Error()))
	}
	status = models.RunStatusCompleted

	logger.InfoContext(ctx, "enhancement complete",
		slog.Int64("media_id", out.mediaID),
		slog.Bool("video", out.video != nil),
		slog.Duration("elapsed", s.now().Sub(started)),
	)
	notify.BestEffort(ctx, s.notifier, logger, successMessage(req, out.video, s.profile, s.now()))
	return nil
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, job Job, err error) {
	msg := redact.Secrets(err.Error())
	logger.ErrorContext(ctx, "enhancement failed", slog.String("error", msg))
	if uerr := s.store.UpdateRunStatus(ctx, job.RunID, models.RunStatusFailed, store.WithErrorMessage(msg)); uerr != nil {
		logger.WarnContext(ctx, "recording run failure failed", slog.String("error", uerr.Error()))
	}
	notify.BestEffort(ctx, s.notifier, logger, failureMessage(job.Request.Title, msg))
}

// enhance performs the steps. Image generation and video lookup run
// concurrently; a video failure degrades to "no video".
func (s *Service) enhance(ctx context.Context, logger *slog.Logger, req models.EnhanceRequest) (*outcome, error) {
	prompt := req.ImagePrompt
	if prompt == "" {
		prompt = s.profile.DefaultImagePrompt
	}

	var (
		imageURL string
		video    *models.Video
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.step(gctx, stepGenerate, func(ctx context.Context) error {
			var err error
			imageURL, err = s.generate(ctx, prompt, FeaturedAspectRatio)
			return err
		})
	})
	g.Go(func() error {
		video = s.findVideo(gctx, logger, req.VideoQuery())
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "image generated", slog.String("image_url", imageURL))

	var raw, jpeg []byte
	if err := s.step(ctx, stepDownload, func(ctx context.Context) (err error) {
		raw, err = s.fetcher.Fetch(ctx, imageURL)
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.step(ctx, stepTranscode, func(ctx context.Context) (err error) {
		jpeg, err = s.transcoder.ToJPEG(ctx, raw)
		return err
	}); err != nil {
		return nil, err
	}

	filename := mediaFilename(req.Title, s.profile.FilenameSuffix)
	s.archive(ctx, logger, req.PostID, filename, jpeg)

	var mediaID int64
	if err := s.step(ctx, stepUpload, func(ctx context.Context) (err error) {
		mediaID, err = s.wp.UploadMedia(ctx, jpeg, filename, "image/jpeg")
		return err
	}); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "image uploaded", slog.Int64("media_id", mediaID), slog.String("filename", filename))

	alt := s.profile.AltText(req.Title)
	if err := s.step(ctx, stepMetadata, func(ctx context.Context) error {
		return s.wp.UpdateMedia(ctx, mediaID, wordpress.MediaMetadata{
			AltText:     alt,
			Caption:     s.profile.Caption(req.Title),
			Description: s.profile.MediaDescription(alt),
		})
	}); err != nil {
		return nil, err
	}

	description := req.MetaDescription
	if description == "" {
		description = s.draftDescription(ctx, logger, req)
	}

	var content string
	if err := s.step(ctx, stepGetPost, func(ctx context.Context) (err error) {
		content, err = s.wp.GetPostContent(ctx, req.PostID)
		return err
	}); err != nil {
		return nil, err
	}
	if video != nil {
		content += videoEmbed(video)
	}

	if err := s.step(ctx, stepUpdate, func(ctx context.Context) error {
		return s.wp.UpdatePost(ctx, req.PostID, wordpress.PostUpdate{
			Content:       content,
			FeaturedMedia: mediaID,
			Meta:          postMeta(req, description, s.profile),
		})
	}); err != nil {
		return nil, err
	}

	return &outcome{imageURL: imageURL, mediaID: mediaID, video: video}, nil
}

// step runs fn inside a span and records its duration.
func (s *Service) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "enhance."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveStep(name, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) findVideo(ctx context.Context, logger *slog.Logger, query string) *models.Video {
	if s.videos == nil {
		return nil
	}
	var video *models.Video
	err := s.step(ctx, stepVideo, func(ctx context.Context) (err error) {
		video, err = s.videos.Search(ctx, query)
		return err
	})
	if err != nil {
		logger.WarnContext(ctx, "video lookup failed", slog.String("error", err.Error()))
		return nil
	}
	return video
}

func (s *Service) archive(ctx context.Context, logger *slog.Logger, postID int64, filename string, data []byte) {
	if s.archiver == nil {
		return
	}
	var key string
	err := s.step(ctx, stepArchive, func(ctx context.Context) (err error) {
		key, err = s.archiver.Archive(ctx, postID, filename, data, "image/jpeg")
		return err
	})
	if err != nil {
		logger.WarnContext(ctx, "image archive failed", slog.String("error", err.Error()))
		return
	}
	logger.DebugContext(ctx, "image archived", slog.String("object_key", key))
}

func (s *Service) draftDescription(ctx context.Context, logger *slog.Logger, req models.EnhanceRequest) string {
	if s.copywriter == nil {
		return ""
	}
	var desc string
	err := s.step(ctx, stepCopy, func(ctx context.Context) (err error) {
		desc, err = s.copywriter.MetaDescription(ctx, req.Title, req.FocusKeyword)
		return err
	})
	if err != nil {
		logger.WarnContext(ctx, "meta description draft failed", slog.String("error", err.Error()))
		return ""
	}
	return desc
}
