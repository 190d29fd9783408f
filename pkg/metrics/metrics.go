// Package metrics defines the Prometheus metrics exported by the client engine.
// All metrics are registered on the default registerer via promauto so that a
// single promhttp handler exposes them.
//
// Rate Limit Metrics (pkg/ratelimit):
//   - twitterapi_rate_limit_remaining{endpoint} (Gauge): requests left in the current window
//   - twitterapi_rate_limit_waits_total{endpoint} (Counter): waits for a window reset
//   - twitterapi_rate_limit_wait_seconds{endpoint} (Histogram): duration of those waits
//
// Request Metrics (pkg/client):
//   - twitterapi_requests_total{endpoint, disposition} (Counter)
//   - twitterapi_request_duration_seconds{endpoint} (Histogram)
//   - twitterapi_retries_total{endpoint, disposition} (Counter)
//   - twitterapi_retry_exhausted_total{endpoint, disposition} (Counter)
//
// Pagination Metrics (pkg/pagination):
//   - twitterapi_pages_total{endpoint} (Counter)
//   - twitterapi_items_total{endpoint} (Counter)
//   - twitterapi_items_skipped_total{endpoint, reason} (Counter)
//
// Stream Metrics (pkg/stream):
//   - twitterapi_stream_connects_total{endpoint, result} (Counter)
//   - twitterapi_stream_reconnects_total{endpoint, reason} (Counter)
//   - twitterapi_stream_events_total{endpoint} (Counter)
//   - twitterapi_stream_keepalives_total{endpoint} (Counter)
//   - twitterapi_stream_backfill_minutes{endpoint} (Histogram)
//
// Checkpoint Metrics (pkg/checkpoint):
//   - twitterapi_checkpoint_operations_total{backend, operation, result} (Counter)
//
// Example Prometheus Queries:
//
//	# Fraction of requests hitting the rate limit
//	sum(rate(twitterapi_requests_total{disposition="rate_limited"}[5m])) /
//	sum(rate(twitterapi_requests_total[5m]))
//
//	# Stream reconnect rate
//	rate(twitterapi_stream_reconnects_total[15m])
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registerer all engine metrics are attached to.
var Registry = prometheus.DefaultRegisterer

var factory = promauto.With(Registry)

// Rate limit metrics.
var (
	RateLimitRemaining = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twitterapi_rate_limit_remaining",
		Help: "Requests remaining in the current rate limit window",
	}, []string{"endpoint"})

	RateLimitWaitsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_rate_limit_waits_total",
		Help: "Total number of waits for a rate limit window reset",
	}, []string{"endpoint"})

	RateLimitWaitSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitterapi_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a rate limit window reset",
		Buckets: []float64{1, 5, 15, 60, 300, 900},
	}, []string{"endpoint"})
)

// Request metrics.
var (
	RequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_requests_total",
		Help: "Total API requests by endpoint and disposition",
	}, []string{"endpoint", "disposition"})

	RequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitterapi_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	RetriesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_retries_total",
		Help: "Total number of retry attempts by endpoint and disposition",
	}, []string{"endpoint", "disposition"})

	RetryExhaustedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_retry_exhausted_total",
		Help: "Total number of times retries were exhausted by endpoint and disposition",
	}, []string{"endpoint", "disposition"})
)

// Pagination metrics.
var (
	PagesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_pages_total",
		Help: "Total pages fetched by endpoint",
	}, []string{"endpoint"})

	ItemsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_items_total",
		Help: "Total decoded items yielded by endpoint",
	}, []string{"endpoint"})

	ItemsSkippedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_items_skipped_total",
		Help: "Total items or events dropped because they could not be decoded",
	}, []string{"endpoint", "reason"})
)

// Stream metrics.
var (
	StreamConnectsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_stream_connects_total",
		Help: "Total stream connection attempts by endpoint and result",
	}, []string{"endpoint", "result"})

	StreamReconnectsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_stream_reconnects_total",
		Help: "Total stream reconnects by endpoint and disconnect reason",
	}, []string{"endpoint", "reason"})

	StreamEventsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_stream_events_total",
		Help: "Total stream events delivered by endpoint",
	}, []string{"endpoint"})

	StreamKeepAlivesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_stream_keepalives_total",
		Help: "Total keep-alive lines received by endpoint",
	}, []string{"endpoint"})

	StreamBackfillMinutes = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitterapi_stream_backfill_minutes",
		Help:    "Backfill minutes requested on reconnect",
		Buckets: []float64{1, 2, 3, 4, 5},
	}, []string{"endpoint"})
)

// Checkpoint metrics.
var (
	CheckpointOpsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "twitterapi_checkpoint_operations_total",
		Help: "Checkpoint store operations by backend, operation and result",
	}, []string{"backend", "operation", "result"})
)
