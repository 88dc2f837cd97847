// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_completed_total",
			Help: "Total number of completed email pipeline runs",
		},
		[]string{"status"},
	)

	PipelineStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Total number of stage failures by error code",
		},
		[]string{"stage", "error_code"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of pipeline stage execution in seconds",
		},
		[]string{"stage"},
	)

	PipelineRunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_runs_active",
			Help: "Number of email pipeline runs currently in flight",
		},
	)
)
