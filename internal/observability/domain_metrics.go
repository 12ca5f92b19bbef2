package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfexplorer_queries_total",
			Help: "Total number of executed queries by mode and status.",
		},
		[]string{"mode", "status"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sfexplorer_query_duration_seconds",
			Help:    "Query execution latency by mode, including materialization.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)
	connectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfexplorer_connect_attempts_total",
			Help: "Total number of connect attempts by outcome.",
		},
		[]string{"status"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sfexplorer_active_sessions",
			Help: "Current number of live explorer sessions.",
		},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfexplorer_exports_total",
			Help: "Total number of result exports by format.",
		},
		[]string{"format"},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		connectAttemptsTotal,
		activeSessions,
		exportsTotal,
	)
}

func ObserveQuery(mode string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queriesTotal.WithLabelValues(mode, status).Inc()
	if err == nil {
		queryDurationSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
}

func ObserveConnectAttempt(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	connectAttemptsTotal.WithLabelValues(status).Inc()
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	activeSessions.Set(float64(count))
}

func IncrementExport(format string) {
	exportsTotal.WithLabelValues(format).Inc()
}
