// Prometheus instrumentation for the dispatch pipeline. Label cardinality is
// bounded: kind comes from the closed event-kind set, status is one of
// ok|failed|blocked|duplicate.
package bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// updatesTotal counts processed updates by event kind and outcome.
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of platform updates processed.",
		},
		[]string{"kind", "status"},
	)

	// updateDuration records dispatch latency in seconds by event kind.
	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of update dispatch in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// pollBackoffTotal counts polling backoff sleeps by error class.
	pollBackoffTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_poll_backoff_total",
			Help: "Total number of polling backoff sleeps.",
		},
		[]string{"class"},
	)
)

func init() {
	prometheus.MustRegister(updatesTotal, updateDuration, pollBackoffTotal)
}

const (
	statusOK        = "ok"
	statusFailed    = "failed"
	statusBlocked   = "blocked"
	statusDuplicate = "duplicate"
)
