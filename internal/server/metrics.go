package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperloom_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paperloom_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Conversion metrics
	conversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperloom_conversions_total",
			Help: "Total number of conversion jobs",
		},
		[]string{"engine", "status"}, // engine: primary, fallback, none
	)

	conversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paperloom_conversion_duration_seconds",
			Help:    "Conversion duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"engine"},
	)

	activeJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paperloom_jobs_processing",
			Help: "Number of jobs currently processing",
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paperloom_upload_size_bytes",
			Help:    "Size of uploaded documents in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paperloom_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperloom_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
