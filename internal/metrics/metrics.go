// Package metrics defines the Prometheus instrumentation for the upload
// coordinator. Metrics are registered with the default registry via
// promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counter metrics (monotonically increasing)
var (
	// SessionsInitiatedTotal counts upload sessions opened
	SessionsInitiatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chunkvault_sessions_initiated_total",
			Help: "Total number of upload sessions initiated",
		},
	)

	// SessionsCompletedTotal counts upload sessions finalized into an object
	SessionsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chunkvault_sessions_completed_total",
			Help: "Total number of upload sessions completed",
		},
	)

	// SessionsCancelledTotal counts upload sessions cancelled by clients or the sweep
	SessionsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chunkvault_sessions_cancelled_total",
			Help: "Total number of upload sessions cancelled",
		},
	)

	// ChunksAcceptedTotal counts individual chunks accepted
	ChunksAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chunkvault_chunks_accepted_total",
			Help: "Total number of chunks accepted",
		},
	)

	// BytesAcceptedTotal counts chunk payload bytes accepted
	BytesAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chunkvault_bytes_accepted_total",
			Help: "Total chunk payload bytes accepted",
		},
	)

	// ErrorsTotal counts coordinator errors by error code
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunkvault_errors_total",
			Help: "Total number of upload errors by code",
		},
		[]string{"code"},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunkvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Histogram metrics (distributions)
var (
	// HTTPRequestDuration tracks HTTP request latency by method and path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chunkvault_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// ChunkSizeBytes tracks the distribution of accepted chunk sizes
	ChunkSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chunkvault_chunk_size_bytes",
			Help:    "Distribution of accepted chunk sizes in bytes",
			Buckets: prometheus.ExponentialBuckets(65536, 4, 10), // 64KB .. ~16GB
		},
	)
)
