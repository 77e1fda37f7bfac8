// Package metrics provides Prometheus metrics for the validator:
//   - http_request_total / http_request_duration_seconds / http_request_in_flight
//     for the HTTP surface
//   - register_lookups_total and register_lookup_duration_seconds for outbound
//     register calls
//   - match_score for the score of every selected best match
//   - rate_limited_requests_total for uploads rejected by the rate limiter
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RegisterLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "register_lookups_total",
			Help: "Register lookups by outcome (ok, empty, error)",
		},
		[]string{"outcome"},
	)

	RegisterLookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "register_lookup_duration_seconds",
			Help:    "Latency of a single register lookup",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_score",
			Help:    "Similarity score of the selected best match",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	RateLimitedRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		RegisterLookups,
		RegisterLookupDuration,
		MatchScore,
		RateLimitedRequests,
	)
}

// ObserveLookup records the outcome and latency of one register call
func ObserveLookup(outcome string, elapsed time.Duration) {
	RegisterLookups.WithLabelValues(outcome).Inc()
	RegisterLookupDuration.Observe(elapsed.Seconds())
}
