// Package metrics exposes Prometheus instrumentation for the scoring pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for rule evaluation and declaration scoring.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Rule outcomes by rule id and outcome: "fired", "clear", "error"
	RuleOutcome *prometheus.CounterVec

	// Rule evaluation latency by rule id
	RuleLatency *prometheus.HistogramVec

	// Declarations scored by assessment status
	Declarations *prometheus.CounterVec

	// Full declaration scoring latency
	ScoreLatency prometheus.Histogram

	// Failed upsert attempts that were retried
	SaveRetries prometheus.Counter
}

// New creates a Metrics instance registered with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RuleOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pepscore_rule_outcomes_total",
			Help: "Total rule evaluations by rule and outcome",
		}, []string{"rule_id", "outcome"}),

		RuleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pepscore_rule_duration_seconds",
			Help:    "Duration of a single rule evaluation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"rule_id"}),

		Declarations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pepscore_declarations_scored_total",
			Help: "Total declarations scored by assessment status",
		}, []string{"status"}),

		ScoreLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pepscore_declaration_duration_seconds",
			Help:    "Duration of scoring one declaration including persistence",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		SaveRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "pepscore_save_retries_total",
			Help: "Total retried scoring upserts",
		}),
	}
}

// ObserveRule records one rule evaluation.
func (m *Metrics) ObserveRule(ruleID, outcome string, d time.Duration) {
	if m != nil {
		m.RuleOutcome.WithLabelValues(ruleID, outcome).Inc()
		m.RuleLatency.WithLabelValues(ruleID).Observe(d.Seconds())
	}
}

// ObserveDeclaration records one scored declaration.
func (m *Metrics) ObserveDeclaration(status string, d time.Duration) {
	if m != nil {
		m.Declarations.WithLabelValues(status).Inc()
		m.ScoreLatency.Observe(d.Seconds())
	}
}

// IncrementSaveRetry records a retried upsert.
func (m *Metrics) IncrementSaveRetry() {
	if m != nil {
		m.SaveRetries.Inc()
	}
}
