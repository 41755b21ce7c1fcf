package daemon

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusDaemonsStarted        prometheus.Counter
	prometheusDaemonStartupFailures prometheus.Counter
	prometheusDaemonEscalations     *prometheus.CounterVec
	prometheusDetectDuration        prometheus.Histogram
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusDaemonsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nodeharness",
			Subsystem: "daemon",
			Name:      "started_total",
			Help:      "Number of daemon processes spawned by the harness",
		},
	)

	prometheusDaemonStartupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nodeharness",
			Subsystem: "daemon",
			Name:      "startup_failures_total",
			Help:      "Number of daemon processes that failed to spawn or exited immediately",
		},
	)

	prometheusDaemonEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nodeharness",
			Subsystem: "daemon",
			Name:      "escalations_total",
			Help:      "Number of shutdown escalation signals sent, by tier",
		},
		[]string{"tier"},
	)

	prometheusDetectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nodeharness",
			Subsystem: "daemon",
			Name:      "detect_duration_seconds",
			Help:      "Time taken to detect all required ports from the daemon log",
			Buckets:   prometheus.DefBuckets,
		},
	)
}
