// Package metrics exposes Prometheus collectors for pipeline runs, calls to
// external services and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prospect"

// Pipeline Prometheus metrics.
var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	RunResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_results",
			Help:      "Contacts returned per run",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	StageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Absorbed failures by pipeline stage",
		},
		[]string{"stage"},
	)

	ExternalCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_calls_total",
			Help:      "Calls to external services by result",
		},
		[]string{"service", "status"},
	)

	ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "External service call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		RunResults,
		RunDuration,
		StageFailuresTotal,
		ExternalCallsTotal,
		ExternalCallDuration,
	)
}

// ObserveCall records the duration and result of one external call.
func ObserveCall(service string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ExternalCallsTotal.WithLabelValues(service, status).Inc()
	ExternalCallDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// ObserveRun records a finished pipeline run.
func ObserveRun(outcome string, results int, d time.Duration) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunResults.Observe(float64(results))
	RunDuration.Observe(d.Seconds())
}

// StageFailed counts an absorbed failure in the named stage.
func StageFailed(stage string) {
	StageFailuresTotal.WithLabelValues(stage).Inc()
}
