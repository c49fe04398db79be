// Package metrics holds the Prometheus collectors shared by the API and the
// worker. Collectors are registered on the default registry at init.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "schoolhub"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Credential verifications by outcome",
		},
		[]string{"outcome"},
	)

	// AuthzDecisions counts gate decisions. outcome is one of allowed,
	// not_a_member, insufficient_permissions, unauthenticated.
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_authz_decisions_total",
			Help: "Authorization gate decisions by check and outcome",
		},
		[]string{"check", "outcome"},
	)

	RosterSyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_roster_sync_failures_total",
			Help: "Best-effort roster updates that failed",
		},
		[]string{"step"},
	)

	RosterRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_roster_repairs_total",
			Help: "Class rosters rewritten by reconciliation",
		},
	)

	BootstrapFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_bootstrap_owner_failures_total",
			Help: "School registrations whose Owner member could not be written",
		},
	)

	OwnersRepaired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_owners_repaired_total",
			Help: "Owner members recreated for ownerless schools",
		},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_task_duration_seconds",
			Help:    "Duration of background tasks in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task", "outcome"},
	)
)

func RecordAuthzDecision(check, outcome string) {
	AuthzDecisions.WithLabelValues(check, outcome).Inc()
}

func RecordSyncFailure(step string) {
	RosterSyncFailures.WithLabelValues(step).Inc()
}

// TrackTask returns a function that records the duration of a task run.
func TrackTask(task string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		TaskDuration.WithLabelValues(task, outcome).Observe(time.Since(start).Seconds())
	}
}
