// Package metrics exposes Prometheus collectors for feed polling.
//
// Each [Metrics] owns its registry so that several hubs, or tests, can run
// in one process without colliding on collector names.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records fetch activity per feed.
type Metrics struct {
	registry *prometheus.Registry

	attempts   *prometheus.CounterVec
	failures   *prometheus.CounterVec
	retries    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	stale      *prometheus.GaugeVec
	subscribed prometheus.Gauge
}

// New creates a Metrics with a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// attempts dispatched, by why they were dispatched
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsefeed_fetch_attempts_total",
				Help: "Total fetch attempts by feed and attempt kind",
			},
			[]string{"feed", "kind"},
		),

		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsefeed_fetch_failures_total",
				Help: "Total failed fetch attempts by feed and error kind",
			},
			[]string{"feed", "error_kind"},
		),

		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsefeed_retries_scheduled_total",
				Help: "Total backoff retries scheduled by feed",
			},
			[]string{"feed"},
		),

		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsefeed_fetch_duration_seconds",
				Help:    "Duration of resolved fetch attempts by feed",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"feed"},
		),

		stale: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulsefeed_feed_stale",
				Help: "1 when the feed's cached data is stale",
			},
			[]string{"feed"},
		),

		subscribed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsefeed_dashboard_viewers",
				Help: "Number of connected dashboard event streams",
			},
		),
	}
}

// RecordAttempt counts a dispatched attempt.
func (m *Metrics) RecordAttempt(feed, kind string) {
	m.attempts.WithLabelValues(feed, kind).Inc()
}

// RecordResult observes the duration of a resolved attempt and counts it as
// a failure when errorKind is non-empty.
func (m *Metrics) RecordResult(feed string, elapsed time.Duration, errorKind string) {
	m.duration.WithLabelValues(feed).Observe(elapsed.Seconds())
	if errorKind != "" {
		m.failures.WithLabelValues(feed, errorKind).Inc()
	}
}

// RecordRetry counts a scheduled backoff retry.
func (m *Metrics) RecordRetry(feed string) {
	m.retries.WithLabelValues(feed).Inc()
}

// SetStale publishes the feed's staleness.
func (m *Metrics) SetStale(feed string, stale bool) {
	v := 0.0
	if stale {
		v = 1
	}
	m.stale.WithLabelValues(feed).Set(v)
}

// SetViewers publishes the number of dashboard viewers.
func (m *Metrics) SetViewers(n int) {
	m.subscribed.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
