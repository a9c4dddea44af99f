// Package metrics carries the ambient Prometheus instrumentation for
// ingest jobs: how long each orchestrator run took, and how often it
// failed, broken down by model and terminal status.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/synopticspread/spread/internal/domain"
)

var (
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "synopticspread",
		Subsystem: "ingest",
		Name:      "job_duration_seconds",
		Help:      "Wall-clock duration of one ingest_and_process invocation.",
		Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
	}, []string{"model"})

	jobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "synopticspread",
		Subsystem: "ingest",
		Name:      "job_failures_total",
		Help:      "Count of ingest_and_process invocations that finished in the error state.",
	}, []string{"model"})

	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "synopticspread",
		Subsystem: "ingest",
		Name:      "jobs_completed_total",
		Help:      "Count of ingest_and_process invocations that finished complete.",
	}, []string{"model"})
)

// ObserveJobDuration records how long one invocation of modelName's job took.
func ObserveJobDuration(modelName domain.ModelName, seconds float64) {
	jobDuration.WithLabelValues(modelName.String()).Observe(seconds)
}

// RecordOutcome increments the completed or failed counter for modelName
// depending on status.
func RecordOutcome(modelName domain.ModelName, status domain.RunStatus) {
	switch status {
	case domain.StatusComplete:
		jobsCompleted.WithLabelValues(modelName.String()).Inc()
	case domain.StatusError:
		jobFailures.WithLabelValues(modelName.String()).Inc()
	}
}
