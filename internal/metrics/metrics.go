// Package metrics records per-run pipeline metrics in a dedicated Prometheus
// registry that can be exported as a node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

// Recorder holds the metrics of one run.
type Recorder struct {
	registry      *prometheus.Registry
	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	artifacts     prometheus.Counter
}

// NewRecorder returns a Recorder whose series carry runID as a constant label.
func NewRecorder(runID string) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, registry))

	return &Recorder{
		registry: registry,
		stageRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_pipeline_stage_runs_total",
				Help: "Stage invocations by outcome",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "content_pipeline_stage_duration_seconds",
				Help:    "Duration of stage invocations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_pipeline_fallbacks_total",
				Help: "Deterministic fallbacks taken per collaborator",
			},
			[]string{"collaborator"},
		),
		artifacts: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_pipeline_artifacts_verified_total",
			Help: "Artifacts checked by verify",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records one invocation of stage that started at start.
func (r *Recorder) ObserveStage(stage string, start time.Time, err error) {
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	r.stageRuns.WithLabelValues(stage, outcome(err)).Inc()
}

// Fallback counts a fallback taken because collaborator was unavailable.
func (r *Recorder) Fallback(collaborator string) {
	r.fallbacks.WithLabelValues(collaborator).Inc()
}

// ArtifactsVerified adds n checked artifacts.
func (r *Recorder) ArtifactsVerified(n int) {
	r.artifacts.Add(float64(n))
}

// WriteTextfile writes every series to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.IsWriteFailed(err):
		return "write_failed"
	case apperr.IsInvalidArgument(err):
		return "invalid_argument"
	default:
		return "error"
	}
}
