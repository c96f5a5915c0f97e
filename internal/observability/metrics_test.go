package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvaluation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordEvaluation("vectara", "faithfulness", OutcomeScored, 0.2)
	m.RecordEvaluation("vectara", "faithfulness", OutcomeFailed, 0.1)
	m.RecordEvaluation("vectara", "faithfulness", OutcomeFailed, 0.1)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.EvaluatorFailures.WithLabelValues("vectara", "faithfulness")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("vectara", "faithfulness", OutcomeScored)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.EvaluationDuration))
}

func TestRecordDroppedRows(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordDroppedRows("faithfulness", 3)
	m.RecordDroppedRows("faithfulness", 0)

	expected := `
		# HELP ragscore_human_rows_dropped_total Annotation rows dropped for unmapped labels
		# TYPE ragscore_human_rows_dropped_total counter
		ragscore_human_rows_dropped_total{question="faithfulness"} 3
	`
	require.NoError(t, testutil.CollectAndCompare(m.HumanRowsDropped, strings.NewReader(expected)))
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordLLMRequest("google", "gemini", "success", 1.5, 100, 1)

	assert.InDelta(t, 100.0, testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("google", "gemini", "prompt")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.LLMRequestCounter.WithLabelValues("google", "gemini", "success")), 0)
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEvaluation("x", "y", OutcomeFailed, 1)
		m.RecordLLMRequest("p", "m", "error", 1, 1, 1)
		m.RecordDroppedRows("q", 1)
	})
}
