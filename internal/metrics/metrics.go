// Package metrics provides Prometheus collectors for the tracker, scraped at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Snapshot loading
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_fetch_attempts_total",
			Help: "Snapshot fetch attempts by outcome (success, http_error, network_error, malformed)",
		},
		[]string{"outcome"},
	)

	EndpointsExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_endpoints_exhausted_total",
			Help: "Loads that failed because every candidate endpoint failed",
		},
	)

	LoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_load_duration_seconds",
			Help:    "Time taken to resolve and load a snapshot",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	BranchLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_branch_lookups_total",
			Help: "Default branch lookups by result (found, failed)",
		},
		[]string{"result"},
	)

	// Application state
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_state_transitions_total",
			Help: "Application state transitions by target status",
		},
		[]string{"to"},
	)

	// Goals job
	GoalsJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_goals_job_runs_total",
			Help: "Goal batch job runs by result (success, error)",
		},
		[]string{"result"},
	)

	GoalsLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_goals_last_success_timestamp_seconds",
			Help: "Unix time of the last successful goal publication",
		},
	)
)
