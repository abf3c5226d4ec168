// Package metrics exports narration counters and latencies to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
)

const namespace = "narrative"

// Metrics observes engines and records counters on its own registry. One
// value may be shared by many engines.
type Metrics struct {
	Registry *prometheus.Registry

	narrations *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	issues     *prometheus.CounterVec
	retries    prometheus.Histogram
	duration   *prometheus.HistogramVec
	quality    prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		narrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrations_total",
			Help:      "Narrate calls by outcome (done, failed, error).",
		}, []string{"outcome"}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Generation attempts by entry rule and acceptance.",
		}, []string{"rule", "accepted"}),
		issues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repetition_issues_total",
			Help:      "Repetition issues flagged by kind.",
		}, []string{"kind"}),
		retries: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retries",
			Help:      "Retries spent per completed narration.",
			Buckets:   []float64{0, 1, 2, 3},
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narration_duration_seconds",
			Help:      "Wall time of Narrate calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"outcome"}),
		quality: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_quality",
			Help:      "Quality score of each attempt.",
			Buckets:   prometheus.LinearBuckets(0, 0.2, 6),
		}),
	}
}

// AttemptFinished implements orchestrator.Observer.
func (m *Metrics) AttemptFinished(rep orchestrator.AttemptReport) {
	accepted := "false"
	if rep.Accepted {
		accepted = "true"
	}
	m.attempts.WithLabelValues(rep.Rule, accepted).Inc()
	m.quality.Observe(float64(rep.Evaluation.Quality))
	for _, is := range rep.Evaluation.Issues {
		m.issues.WithLabelValues(string(is.Kind)).Inc()
	}
}

// NarrationFinished implements orchestrator.Observer.
func (m *Metrics) NarrationFinished(rep orchestrator.NarrationReport) {
	m.narrations.WithLabelValues(rep.Outcome).Inc()
	m.duration.WithLabelValues(rep.Outcome).Observe(rep.Duration.Seconds())
	if rep.Outcome != "error" {
		m.retries.Observe(float64(rep.Retries))
	}
}
