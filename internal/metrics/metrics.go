// Package metrics exposes the Prometheus instruments served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	RatingActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_actions_total",
			Help: "Rating submissions by outcome",
		},
		[]string{"action"}, // created, updated, unchanged, removed, none
	)

	MetadataFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_fetches_total",
			Help: "Upstream metadata fetches by result",
		},
		[]string{"result"}, // ok, error, timeout
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
