// Package metrics exposes submission counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/mbolis/quick-forms/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnroutable  = "unroutable"
	OutcomeWriteFailed = "write_failed"
	OutcomeFailed      = "failed"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	submissions   *prometheus.CounterVec
	compensations *prometheus.CounterVec
	projections   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qforms",
			Name:      "submissions_total",
			Help:      "Submission attempts by location and outcome.",
		}, []string{"location", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qforms",
			Name:      "compensations_total",
			Help:      "Rollbacks of partially written submissions by outcome.",
		}, []string{"outcome"}),
		projections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qforms",
			Name:      "table_projections_total",
			Help:      "Submission table pages rendered.",
		}),
	}
	m.registry.MustRegister(m.submissions, m.compensations, m.projections)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Submission(loc model.SectionLocation, outcome string) {
	if m == nil {
		return
	}
	if loc == "" {
		loc = "NONE"
	}
	m.submissions.WithLabelValues(string(loc), outcome).Inc()
}

func (m *Metrics) Compensation(outcome string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Projection() {
	if m == nil {
		return
	}
	m.projections.Inc()
}
