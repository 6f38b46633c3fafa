package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.ObserveHTTP(http.MethodPost, "/enhance", http.StatusAccepted, 20*time.Millisecond)
	m.RateLimitRejected("/enhance")
	m.RunStarted()
	m.RunFinished("completed", 40*time.Second)
	m.ObserveStep("upload", nil, time.Second)
	m.ObserveStep("upload", errors.New("x"), time.Second)
	m.ObserveImageJob("callback", metrics.OutcomeSuccess)
	m.QueueEnqueued("enhance")

	body := scrape(t, m)
	assert.Contains(t, body, `enhancer_http_requests_total{method="POST",route="/enhance",status="202"} 1`)
	assert.Contains(t, body, `enhancer_http_rate_limit_rejections_total{route="/enhance"} 1`)
	assert.Contains(t, body, `enhancer_runs_total{status="completed"} 1`)
	assert.Contains(t, body, `enhancer_active_runs 0`)
	assert.Contains(t, body, `enhancer_step_duration_seconds_count{status="error",step="upload"} 1`)
	assert.Contains(t, body, `enhancer_image_jobs_total{outcome="success",waiter="callback"} 1`)
	assert.Contains(t, body, `enhancer_queue_jobs_enqueued_total{queue="enhance"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRegisterPendingJobs_ReadsAtScrapeTime(t *testing.T) {
	m := metrics.New()
	pending := 0
	m.RegisterPendingJobs("callback", func() int { return pending })

	assert.Contains(t, scrape(t, m), `enhancer_image_jobs_pending{waiter="callback"} 0`)
	pending = 3
	assert.Contains(t, scrape(t, m), `enhancer_image_jobs_pending{waiter="callback"} 3`)
}

func TestActiveRunsGauge(t *testing.T) {
	m := metrics.New()
	m.RunStarted()
	m.RunStarted()
	m.RunFinished("failed", time.Second)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Contains(t, scrape(t, m), "enhancer_active_runs 1")
}
