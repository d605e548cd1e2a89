// Package observability centralizes metrics and tracing wiring.
//
// This file defines the Metrics handle: every Prometheus collector the
// service emits, constructed once at process start and passed explicitly
// into the HTTP layer, the submission service, and the workers. There are no
// package-level collectors — components that need to record metrics receive
// the handle, which keeps tests hermetic (each test builds its own registry)
// and makes the dependency visible in constructors.
//
// Label cardinality is kept bounded: "path" uses the registered route, never
// the raw URL; "status" is the numeric code string; job labels are drawn
// from two small fixed sets.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcome label values recorded by the workers.
const (
	JobOutcomeOK         = "ok"
	JobOutcomeRetry      = "retry"
	JobOutcomeDeadLetter = "dead_letter"
)

// Metrics bundles every collector emitted by the service. Construct with
// NewMetrics; all fields are safe for concurrent use.
type Metrics struct {
	// EndpointRequests counts submission requests by terminal status code.
	// Incremented exactly once per request regardless of outcome.
	EndpointRequests *prometheus.CounterVec
	// EndpointLatency records the duration of the dedup-check-through-
	// dispatch section of the submission flow.
	EndpointLatency prometheus.Histogram

	// JobsProcessed counts worker job completions by task type and outcome
	// (ok, retry, dead_letter).
	JobsProcessed *prometheus.CounterVec

	// HTTPRequests, HTTPLatency, and HTTPInflight instrument all HTTP
	// traffic at the middleware level.
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
	HTTPInflight prometheus.Gauge
}

// NewMetrics registers all collectors on reg and returns the handle.
// Passing prometheus.DefaultRegisterer gives the conventional process-wide
// registry; tests pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EndpointRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "endpoint_requests_total",
				Help: "Total number of phone submission requests by status.",
			},
			[]string{"status"},
		),
		EndpointLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "endpoint_request_duration_seconds",
				Help:    "Duration of the submission admission path (dedup claim and dispatch).",
				Buckets: prometheus.DefBuckets,
			},
		),
		JobsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_processed_total",
				Help: "Total worker job completions by task type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInflight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_inflight",
				Help: "Current number of in-flight HTTP requests.",
			},
		),
	}
}

// ObserveEndpoint records one submission request outcome: the status counter
// and the admission-path latency. Used by the submission handler so the
// counter increments exactly once per request, success or failure.
func (m *Metrics) ObserveEndpoint(status string, elapsed time.Duration) {
	m.EndpointRequests.WithLabelValues(status).Inc()
	m.EndpointLatency.Observe(elapsed.Seconds())
}

// ObserveJob records one worker job completion.
func (m *Metrics) ObserveJob(taskType, outcome string) {
	m.JobsProcessed.WithLabelValues(taskType, outcome).Inc()
}
