package grading

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records grading outcomes. A nil *Metrics records nothing.
type Metrics struct {
	classifications *prometheus.CounterVec
	duration        prometheus.Histogram
	batches         *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grader",
			Name:      "classifications_total",
			Help:      "Graded candidates by printable code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grader",
			Name:      "evaluation_seconds",
			Help:      "Wall time of a single bounded evaluation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 9),
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grader",
			Name:      "batches_total",
			Help:      "Batches by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.classifications, m.duration, m.batches)
	}
	return m
}

func (m *Metrics) observe(c Classification, d time.Duration) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(c.String()).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) batch(outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
}
