// Package observability holds the Prometheus metrics recorded by the scoring
// pipeline. All recording methods are safe to call on a nil *Metrics, so
// components can run without a registry in tests and one-off CLI runs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation outcomes used as the "outcome" label.
const (
	OutcomeScored = "scored"
	OutcomeAbsent = "absent"
	OutcomeFailed = "failed"
)

// Metrics groups the collectors for evaluator runs, judge calls and human
// annotation data quality.
//
// Usage:
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordEvaluation("formatting", "formatting", observability.OutcomeScored, elapsed.Seconds())
type Metrics struct {
	// EvaluationsTotal counts evaluator invocations.
	// Labels: evaluator, axis, outcome (scored|absent|failed)
	EvaluationsTotal *prometheus.CounterVec

	// EvaluatorFailures counts evaluator errors and panics that were excluded from results.
	// Labels: evaluator, axis
	EvaluatorFailures *prometheus.CounterVec

	// EvaluationDuration measures evaluator latency in seconds.
	// Labels: evaluator
	EvaluationDuration *prometheus.HistogramVec

	// LLMRequestCounter counts judge requests.
	// Labels: provider, model, status (success|error|cached)
	LLMRequestCounter *prometheus.CounterVec

	// LLMRequestDuration measures judge request latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// HumanRowsDropped counts annotation rows dropped because their label had no mapping.
	// Labels: question
	HumanRowsDropped *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Call it once per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragscore_evaluations_total",
				Help: "Evaluator invocations by evaluator, axis and outcome",
			},
			[]string{"evaluator", "axis", "outcome"},
		),
		EvaluatorFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragscore_evaluator_failures_total",
				Help: "Evaluator errors excluded from results",
			},
			[]string{"evaluator", "axis"},
		),
		EvaluationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragscore_evaluation_duration_seconds",
				Help:    "Duration of evaluator runs in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"evaluator"},
		),
		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragscore_llm_requests_total",
				Help: "Judge model requests by provider, model and status",
			},
			[]string{"provider", "model", "status"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragscore_llm_request_duration_seconds",
				Help:    "Duration of judge model requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMTokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragscore_llm_tokens_total",
				Help: "Tokens used by judge requests",
			},
			[]string{"provider", "model", "type"},
		),
		HumanRowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragscore_human_rows_dropped_total",
				Help: "Annotation rows dropped for unmapped labels",
			},
			[]string{"question"},
		),
	}
}

// RecordEvaluation records one evaluator invocation.
func (m *Metrics) RecordEvaluation(evaluator, axis, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(evaluator, axis, outcome).Inc()
	m.EvaluationDuration.WithLabelValues(evaluator).Observe(durationSeconds)
	if outcome == OutcomeFailed {
		m.EvaluatorFailures.WithLabelValues(evaluator, axis).Inc()
	}
}

// RecordLLMRequest records metrics for one judge request.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int64) {
	if m == nil {
		return
	}
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordDroppedRows adds n dropped annotation rows for question.
func (m *Metrics) RecordDroppedRows(question string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.HumanRowsDropped.WithLabelValues(question).Add(float64(n))
}
