// Package metrics exposes the progress of the checker to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	expanded   prometheus.Counter
	eliminated prometheus.Counter
	accepting  prometheus.Gauge
	iterations prometheus.Gauge
	runs       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		expanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ltlmc",
			Name:      "states_expanded_total",
			Help:      "Number of state expansions over all iterations.",
		}),
		eliminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ltlmc",
			Name:      "states_eliminated_total",
			Help:      "Number of accepting states proven not to lie on an accepting cycle.",
		}),
		accepting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ltlmc",
			Name:      "accepting_states",
			Help:      "Number of reachable accepting states of the current run.",
		}),
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ltlmc",
			Name:      "iterations",
			Help:      "Outer iteration of the current run.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ltlmc",
			Name:      "runs_total",
			Help:      "Completed runs by verdict.",
		}, []string{"verdict"}),
	}
	if reg != nil {
		reg.MustRegister(m.expanded, m.eliminated, m.accepting, m.iterations, m.runs)
	}
	return m
}

func (m *Metrics) Expanded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.expanded.Add(float64(n))
}

func (m *Metrics) Eliminated(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.eliminated.Add(float64(n))
}

func (m *Metrics) Accepting(n int64) {
	if m == nil {
		return
	}
	m.accepting.Set(float64(n))
}

func (m *Metrics) Iteration(i int) {
	if m == nil {
		return
	}
	m.iterations.Set(float64(i))
}

func (m *Metrics) Run(verdict string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(verdict).Inc()
}
