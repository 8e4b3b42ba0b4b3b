package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks per-interface attempts by outcome and failure kind
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netfailover_attempts_total",
			Help: "Total number of request attempts per interface",
		},
		[]string{"interface", "outcome", "kind"},
	)

	// AttemptLatency tracks how long a single attempt took
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netfailover_attempt_latency_seconds",
			Help:    "Attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"interface", "outcome"},
	)

	// ExecutionsTotal tracks logical requests by terminal state
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netfailover_executions_total",
			Help: "Total number of logical requests by result",
		},
		[]string{"result"},
	)

	// FailoversTotal counts advances to the next interface
	FailoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netfailover_failovers_total",
			Help: "Total number of failovers to a lower priority interface",
		},
	)

	// InterfaceEventsTotal counts host notifications per class
	InterfaceEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netfailover_interface_events_total",
			Help: "Total number of interface events received per class",
		},
		[]string{"class", "event"},
	)

	// InterfacesAvailable is the number of valid failover candidates
	InterfacesAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netfailover_interfaces_available",
			Help: "Number of interfaces currently usable as failover candidates",
		},
	)

	// JournalErrorsTotal counts attempt records a journal backend failed to store
	JournalErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netfailover_journal_errors_total",
			Help: "Total number of attempt journal write failures",
		},
		[]string{"backend"},
	)

	// DBConnectionPoolUsage tracks database connection pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netfailover_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
