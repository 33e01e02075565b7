// Package metrics exposes Prometheus counters and histograms for node
// executions, batch durations, and active runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	nodeExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thorust_node_executions_total",
			Help: "Total number of node executions by terminal status",
		},
		[]string{"status"},
	)

	nodeExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thorust_node_execution_seconds",
			Help:    "Node execution duration in seconds by terminal status",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thorust_batch_duration_seconds",
			Help:    "Wall-clock duration of a full run-until-complete pass",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	activeRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thorust_active_runs",
			Help: "Current number of in-progress run-until-complete passes",
		},
	)
)

// RecordNodeExecution increments the node execution counter and observes
// its duration, keyed by the node's terminal status.
func RecordNodeExecution(status string, durationSeconds float64) {
	nodeExecutions.WithLabelValues(status).Inc()
	nodeExecutionDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordBatchDuration observes one run-until-complete pass's total duration.
func RecordBatchDuration(durationSeconds float64) {
	batchDuration.Observe(durationSeconds)
}

// IncrementActiveRuns / DecrementActiveRuns track in-progress runs.
func IncrementActiveRuns() { activeRuns.Inc() }
func DecrementActiveRuns() { activeRuns.Dec() }

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
