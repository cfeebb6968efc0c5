// Package metrics exposes prediction counters and latencies to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeEncodingError  = "encoding_error"
	OutcomeUnavailable    = "model_unavailable"
	OutcomeClassification = "classification_error"
	OutcomeInternal       = "internal_error"
)

// Metrics groups the collectors of the prediction pipeline.
type Metrics struct {
	Registry *prometheus.Registry

	predictions *prometheus.CounterVec
	classify    prometheus.Histogram
	inputChars  prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "address",
			Name:      "predictions_total",
			Help:      "Predictions by outcome.",
		}, []string{"outcome"}),
		classify: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "address",
			Name:      "classify_duration_seconds",
			Help:      "Time spent in the sequence classifier per prediction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		inputChars: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "address",
			Name:      "input_characters",
			Help:      "Length of predicted addresses in characters.",
			Buckets:   prometheus.LinearBuckets(10, 20, 10),
		}),
	}
	m.Registry.MustRegister(m.predictions, m.classify, m.inputChars)
	return m
}

// ObservePrediction counts one prediction with its outcome.
func (m *Metrics) ObservePrediction(outcome string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

// ObserveClassify records the classifier latency and the input length.
func (m *Metrics) ObserveClassify(d time.Duration, chars int) {
	if m == nil {
		return
	}
	m.classify.Observe(d.Seconds())
	m.inputChars.Observe(float64(chars))
}
