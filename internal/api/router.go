package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/middleware"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/response"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/metrics"
	"go.opentelemetry.io/otel/trace"
)

// Dependencies holds all handler and middleware dependencies for the router.
// Metrics and Tracer are optional.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer

	HealthHandler        http.HandlerFunc
	ReadyHandler         http.HandlerFunc
	CallbackHandler      http.HandlerFunc
	EnhanceHandler       http.HandlerFunc
	GenerateImageHandler http.HandlerFunc
	ListRunsHandler      http.HandlerFunc
	GetRunHandler        http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if deps.Tracer != nil {
		r.Use(mw.Tracing(deps.Tracer))
	}
	if deps.Metrics != nil {
		r.Use(mw.Metrics(deps.Metrics))
	}
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Public routes. kie.ai cannot send the shared secret, so the callback
	// stays open and only settles tasks this process submitted.
	r.Get("/health", orNotImplemented(deps.HealthHandler))
	r.Get("/ready", orNotImplemented(deps.ReadyHandler))
	r.Post("/kie-callback", orNotImplemented(deps.CallbackHandler))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/enhance", orNotImplemented(deps.EnhanceHandler))
		r.Post("/generate-image", orNotImplemented(deps.GenerateImageHandler))
		r.Get("/runs", orNotImplemented(deps.ListRunsHandler))
		r.Get("/runs/{runID}", orNotImplemented(deps.GetRunHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
