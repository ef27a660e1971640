package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal tracks executed recovery actions by type and outcome
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_actions_total",
			Help: "Total number of recovery actions executed",
		},
		[]string{"action", "result"},
	)

	// ActionDuration tracks end-to-end execution time including retries
	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healer_action_duration_seconds",
			Help:    "Recovery action duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// ActionAttempts counts individual handler attempts
	ActionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_action_attempts_total",
			Help: "Total number of recovery action attempts, including retries",
		},
		[]string{"action"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healer_rate_limited_total",
			Help: "Recovery actions rejected by the rate limiter",
		},
	)

	CircuitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healer_circuit_rejections_total",
			Help: "Attempts rejected by an open circuit breaker",
		},
	)

	// CircuitState is 0 closed, 1 open, 2 half-open
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "healer_circuit_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half_open)",
		},
		[]string{"node"},
	)

	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_rollbacks_total",
			Help: "Total number of rollback attempts",
		},
		[]string{"action", "result"},
	)

	// PlannerCycles tracks issues handled by the planner
	PlannerCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_planner_cycles_total",
			Help: "Total number of plan/execute cycles",
		},
		[]string{"issue", "result"},
	)

	// StorageErrors tracks failures persisting results
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_storage_errors_total",
			Help: "Total number of result storage errors",
		},
		[]string{"operation"},
	)

	// DBConnectionUsage tracks database connection pool usage percentage
	DBConnectionUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healer_db_connection_usage_percent",
			Help: "Percentage of database connections in use",
		},
	)
)

// Result returns the label value for an outcome.
func Result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
