// Package main is the entrypoint for the SFK post enhancer server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/handler"
	mw "github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/middleware"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/cache"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/copywriter"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/kie"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/media"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/metrics"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/notify"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/queue"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/storage"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/store"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/telemetry"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/wordpress"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/youtube"
)

const (
	serviceName     = "SFK Post Enhancer"
	serviceVersion  = "1.1.0"
	shutdownTimeout = 30 * time.Second
	// drainTimeout is how long runs rejected at shutdown get to record
	// their failure and notify.
	drainTimeout = 15 * time.Second
)

var logLevel = new(slog.LevelVar)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logLevel.Set(parseLogLevel(cfg.Server.LogLevel))
	logger := slog.Default()
	logger.Info("config loaded",
		"env", cfg.Server.Env,
		"waiter", cfg.Waiter.Mode,
		"dispatch", cfg.Dispatch.Mode,
		"brand", cfg.Site.Brand,
	)
	for _, w := range cfg.Warnings() {
		logger.Warn("config warning", "detail", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:    "sfk-post-enhancer",
		ServiceVersion: serviceVersion,
		Exporter:       cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// 3. Image runtime
	if err := media.Startup(); err != nil {
		return fmt.Errorf("start image runtime: %w", err)
	}
	defer media.Shutdown()

	checks := map[string]handler.Check{}

	// 4. Run store
	runStore, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	checks["database"] = runStore.Ping

	// 5. Cache
	appCache, closeCache, err := openCache(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	checks["cache"] = appCache.Ping

	// 6. Image generation
	m := metrics.New()
	kieClient := kie.NewHTTPClient(cfg.Kie)
	imageWaiter, err := waiter.New(cfg.Waiter, kieClient, cfg.CallbackURL())
	if err != nil {
		return fmt.Errorf("create waiter: %w", err)
	}
	m.RegisterPendingJobs(imageWaiter.Name(), imageWaiter.Pending)
	logger.Info("image waiter ready", "mode", imageWaiter.Name(), "callback_url", cfg.CallbackURL())

	// 7. Optional collaborators
	deps := enhance.Deps{
		Store:      runStore,
		Waiter:     imageWaiter,
		Fetcher:    media.NewFetcher(cfg.Media.DownloadTimeout, int64(cfg.Media.MaxDownloadMB)<<20),
		Transcoder: media.NewTranscoder(cfg.Media.JPEGQuality),
		WordPress:  wordpress.NewHTTPClient(cfg.WordPress),
		Notifier:   buildNotifier(cfg),
		Metrics:    m,
		Profile:    cfg.Site,
		Logger:     logger,
	}
	if cfg.YouTube.Enabled() {
		deps.Videos = youtube.NewClient(cfg.YouTube, appCache, logger)
	} else {
		logger.Warn("video lookup disabled", "reason", "YOUTUBE_API_KEY or YT_CHANNEL_ID not set")
	}
	if cfg.Gemini.Enabled() {
		writer, err := copywriter.NewGemini(ctx, cfg.Gemini, cfg.Site)
		if err != nil {
			return fmt.Errorf("create copywriter: %w", err)
		}
		deps.Copywriter = writer
	}
	if cfg.Storage.Enabled() {
		archive, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("create storage client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		deps.Archiver = archive
		checks["storage"] = archive.Ping
	}
	logger.Info("pipeline ready",
		"transcoder", deps.Transcoder.Name(),
		"videos", deps.Videos != nil,
		"copywriter", deps.Copywriter != nil,
		"archive", deps.Archiver != nil,
	)

	svc := enhance.NewService(deps)

	// 8. Dispatch
	var drain func(ctx context.Context) error
	switch cfg.Dispatch.Mode {
	case config.DispatchModeQueue:
		redisOpt, err := queue.RedisOpt(cfg.Redis.URL)
		if err != nil {
			return err
		}
		dispatcher := queue.NewDispatcher(redisOpt, cfg.Dispatch.QueueName, cfg.Waiter.Timeout+2*time.Minute, m)
		defer dispatcher.Close()
		svc.SetDispatcher(dispatcher)

		worker := queue.NewWorker(redisOpt, cfg.Dispatch.QueueName, cfg.Dispatch.Concurrency,
			shutdownTimeout+drainTimeout+5*time.Second, svc, logger)
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start queue worker: %w", err)
		}
		drain = worker.Drain
		logger.Info("queue worker started", "queue", cfg.Dispatch.QueueName, "concurrency", cfg.Dispatch.Concurrency)
	default:
		inline := enhance.NewInlineDispatcher(svc)
		svc.SetDispatcher(inline)
		drain = inline.Wait
	}

	// 9. Build router with dependencies
	var callbacks waiter.CallbackHandler
	if cb, ok := imageWaiter.(waiter.CallbackHandler); ok {
		callbacks = cb
	}

	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth),
		RateLimit: mw.NewRateLimit(appCache, cfg.Server.RateLimitPerMinute, m),
		Metrics:   m,
		Tracer:    telemetry.Tracer(),

		HealthHandler: handler.NewHealthHandler(handler.HealthConfig{
			Service: serviceName,
			Version: serviceVersion,
			Waiter:  imageWaiter,
		}),
		ReadyHandler:         handler.NewReadyHandler(checks),
		CallbackHandler:      handler.NewCallbackHandler(callbacks),
		EnhanceHandler:       handler.NewEnhanceHandler(svc),
		GenerateImageHandler: handler.NewGenerateImageHandler(svc),
		ListRunsHandler:      handler.NewListRunsHandler(svc),
		GetRunHandler:        handler.NewGetRunHandler(svc),
	})

	// 10. Start HTTP server. /generate-image holds the connection until the
	// image arrives, so writes may take as long as the waiter allows.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Waiter.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "service", serviceName, "version", serviceVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining runs...")
	}

	if err := shutdown(srv, drain, imageWaiter, shutdownTimeout, logger); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

// shutdown stops the service without losing track of in-flight runs.
// Runs first get grace to finish while the listener still accepts
// callbacks. Whatever is still waiting on an image is then rejected by
// closing the waiter, and the runs get drainTimeout to record the failure
// and notify before the process exits.
func shutdown(srv interface{ Shutdown(context.Context) error }, drain func(context.Context) error,
	imageWaiter waiter.JobWaiter, grace time.Duration, logger *slog.Logger) error {
	graceCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := drain(graceCtx); err != nil {
		logger.Warn("runs still in flight at shutdown", "error", err)
	}

	if c, ok := imageWaiter.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("waiter close failed", "error", err)
		}
	}

	srvCtx, cancelSrv := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelSrv()
	srvErr := srv.Shutdown(srvCtx)

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelDrain()
	if err := drain(drainCtx); err != nil {
		logger.Error("runs abandoned at shutdown", "error", err)
	}

	if srvErr != nil {
		return fmt.Errorf("server shutdown: %w", srvErr)
	}
	return nil
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// an in-memory store otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.URL == "" {
		logger.Warn("DATABASE_URL not set, run history is kept in memory")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("database connected")

	if err := store.RunMigrations(cfg.URL); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	return store.NewPostgresStore(pool), pool.Close, nil
}

// openCache connects to Redis when REDIS_URL is set and falls back to an
// in-process cache otherwise.
func openCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (cache.Cache, func(), error) {
	if cfg.URL == "" {
		logger.Warn("REDIS_URL not set, using in-process cache")
		return cache.NewMemoryCache(), func() {}, nil
	}

	redisCache, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		redisCache.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected")

	return redisCache, func() { _ = redisCache.Close() }, nil
}

// buildNotifier fans out to every configured channel.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var multi notify.Multi
	if cfg.Telegram.Enabled() {
		multi = append(multi, notify.NewTelegram(cfg.Telegram))
	}
	if cfg.Email.Enabled() {
		multi = append(multi, notify.NewEmail(cfg.Email))
	}
	if len(multi) == 0 {
		slog.Warn("no notification channel configured")
		return notify.Nop{}
	}
	return multi
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
