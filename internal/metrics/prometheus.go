package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts workbench actions by kind and outcome.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workbench_actions_total",
			Help: "Total number of workbench run/submit actions",
		},
		[]string{"action", "outcome"},
	)

	// RemoteCallDuration tracks latency of calls to the judge backend.
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workbench_remote_call_duration_seconds",
			Help:    "Duration of backend calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"op"},
	)

	// StaleResponses counts responses discarded because the state moved on.
	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workbench_stale_responses_total",
			Help: "Total number of discarded out-of-date responses",
		},
		[]string{"kind"},
	)

	// ActionsInFlight tracks actions currently executing on the action pool.
	ActionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workbench_actions_in_flight",
			Help: "Number of actions currently executing",
		},
	)

	// ActionsQueued tracks actions waiting for a pool worker.
	ActionsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workbench_actions_queued",
			Help: "Number of actions waiting in the queue",
		},
	)

	// SessionsActive tracks open inspector sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workbench_sessions_active",
			Help: "Number of open workbench sessions",
		},
	)

	// PollAttempts counts submission status polls.
	PollAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workbench_submission_polls_total",
			Help: "Total number of submission status polls",
		},
	)
)
