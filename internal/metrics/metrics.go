// Package metrics holds the Prometheus collectors for the HTTP surface and
// the enhancement pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Image job outcomes reported by ObserveImageJob.
const (
	OutcomeSuccess    = "success"
	OutcomeFailed     = "failed"
	OutcomeTimeout    = "timeout"
	OutcomeMalformed  = "malformed"
	OutcomeSubmission = "submission_error"
	OutcomeCanceled   = "canceled"
)

type Metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	activeRuns        prometheus.Gauge
	stepDuration      *prometheus.HistogramVec
	imageJobsTotal    *prometheus.CounterVec
	queueEnqueued     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enhancer_http_requests_total",
			Help: "Total HTTP requests handled by the service.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enhancer_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enhancer_http_rate_limit_rejections_total",
			Help: "Total requests rejected by rate limiting.",
		}, []string{"route"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enhancer_runs_total",
			Help: "Total enhancement runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enhancer_run_duration_seconds",
			Help:    "End-to-end enhancement run duration.",
			Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
		}, []string{"status"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "enhancer_active_runs",
			Help: "Enhancement runs currently executing.",
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enhancer_step_duration_seconds",
			Help:    "Duration of individual pipeline steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step", "status"}),
		imageJobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enhancer_image_jobs_total",
			Help: "Image generation jobs by waiter and outcome.",
		}, []string{"waiter", "outcome"}),
		queueEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enhancer_queue_jobs_enqueued_total",
			Help: "Total runs enqueued to the dispatch queue.",
		}, []string{"queue"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.rateLimitRejected,
		m.runsTotal,
		m.runDuration,
		m.activeRuns,
		m.stepDuration,
		m.imageJobsTotal,
		m.queueEnqueued,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterPendingJobs exports the number of image jobs awaiting a terminal
// state as a gauge read at scrape time.
func (m *Metrics) RegisterPendingJobs(waiter string, pending func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "enhancer_image_jobs_pending",
		Help:        "Image generation jobs waiting for a terminal state.",
		ConstLabels: prometheus.Labels{"waiter": waiter},
	}, func() float64 { return float64(pending()) }))
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	s := strconv.Itoa(status)
	m.requestTotal.WithLabelValues(method, route, s).Inc()
	m.requestDuration.WithLabelValues(method, route, s).Observe(d.Seconds())
}

func (m *Metrics) RateLimitRejected(route string) {
	m.rateLimitRejected.WithLabelValues(route).Inc()
}

func (m *Metrics) RunStarted() {
	m.activeRuns.Inc()
}

func (m *Metrics) RunFinished(status string, d time.Duration) {
	m.activeRuns.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) ObserveStep(step string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stepDuration.WithLabelValues(step, status).Observe(d.Seconds())
}

func (m *Metrics) ObserveImageJob(waiter, outcome string) {
	m.imageJobsTotal.WithLabelValues(waiter, outcome).Inc()
}

func (m *Metrics) QueueEnqueued(queue string) {
	m.queueEnqueued.WithLabelValues(queue).Inc()
}
