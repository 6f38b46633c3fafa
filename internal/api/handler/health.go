package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/response"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
)

const healthCheckTimeout = 2 * time.Second

// Check probes one backing dependency.
type Check func(ctx context.Context) error

// HealthConfig describes what GET /health reports.
type HealthConfig struct {
	Service string
	Version string
	Waiter  waiter.JobWaiter
}

type healthBody struct {
	OK      bool          `json:"ok"`
	Status  string        `json:"status"`
	Service string        `json:"service"`
	Version string        `json:"version"`
	Waiter  *waiterStatus `json:"waiter,omitempty"`
}

type waiterStatus struct {
	Mode    string `json:"mode"`
	Pending int    `json:"pending"`
}

type readyBody struct {
	OK     bool              `json:"ok"`
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /health. It is a
// liveness probe and does not touch backing dependencies.
func NewHealthHandler(cfg HealthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{
			OK:      true,
			Status:  "ok",
			Service: cfg.Service,
			Version: cfg.Version,
		}
		if cfg.Waiter != nil {
			body.Waiter = &waiterStatus{Mode: cfg.Waiter.Name(), Pending: cfg.Waiter.Pending()}
		}
		response.JSON(w, body)
	}
}

// NewReadyHandler returns an http.HandlerFunc for GET /ready. Any failing
// check turns the answer into 503. Failure details are logged, not returned.
func NewReadyHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := readyBody{
			OK:     true,
			Status: "ok",
			Checks: make(map[string]string, len(checks)),
		}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				slog.WarnContext(r.Context(), "readiness check failed", "check", name, "error", err)
				body.Checks[name] = "degraded"
				body.OK = false
				body.Status = "degraded"
				continue
			}
			body.Checks[name] = "ok"
		}

		status := http.StatusOK
		if !body.OK {
			status = http.StatusServiceUnavailable
		}
		response.Status(w, status, body)
	}
}
