package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/evaluator"
	"github.com/ahrav/go-ragscore/internal/llm"
	"github.com/ahrav/go-ragscore/internal/observability"
	pkgactivity "github.com/ahrav/go-ragscore/pkg/activity"
	"github.com/ahrav/go-ragscore/pkg/events"
)

func newTestActivities(deps evaluator.Dependencies) (*Activities, *events.MemorySink, *observability.Metrics) {
	sink := events.NewMemorySink()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	acts := NewActivities(pkgactivity.NewBaseActivities(sink), evaluator.NewRegistry(deps), metrics)
	return acts, sink, metrics
}

func requireApplicationError(t *testing.T, err error, errType string) {
	t.Helper()
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr), "expected an application error, got %v", err)
	assert.Equal(t, errType, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestRunEvaluator_EmitsScoreRecorded(t *testing.T) {
	acts, sink, metrics := newTestActivities(evaluator.Dependencies{})
	gen := testGeneration(1)

	out, err := acts.RunEvaluator(context.Background(), RunEvaluatorInput{
		Generation: gen,
		Evaluator:  evaluator.NameSystemResponse,
	})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.InDelta(t, 1.0, out.Records[0].Value, 0)

	recorded := sink.EventsByType(string(domain.EventTypeScoreRecorded))
	require.Len(t, recorded, 1)
	env := recorded[0]
	assert.Equal(t, "activity.run_evaluator", env.Source)
	assert.Equal(t, "1.0.0", env.Version)
	assert.Equal(t, pkgactivity.DefaultTenantID, env.TenantID)
	assert.Equal(t, env.IdempotencyKey, env.ID)

	var payload domain.ScoreRecord
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, out.Records[0], payload)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.EvaluationsTotal.WithLabelValues(
		evaluator.NameSystemResponse, evaluator.AxisSystemResponse, observability.OutcomeScored)), 0)
}

func TestRunEvaluator_UnknownEvaluatorIsNonRetryable(t *testing.T) {
	acts, sink, _ := newTestActivities(evaluator.Dependencies{})

	_, err := acts.RunEvaluator(context.Background(), RunEvaluatorInput{
		Generation: testGeneration(1),
		Evaluator:  "does_not_exist",
	})
	require.Error(t, err)
	requireApplicationError(t, err, ErrTypeUnknownEvaluator)
	assert.Empty(t, sink.Events())
}

func TestRunEvaluator_InvalidGeneration(t *testing.T) {
	acts, _, _ := newTestActivities(evaluator.Dependencies{})

	_, err := acts.RunEvaluator(context.Background(), RunEvaluatorInput{
		Generation: domain.Generation{ID: "x"},
		Evaluator:  evaluator.NameSystemResponse,
	})
	requireApplicationError(t, err, ErrTypeInvalidInput)
}

func TestRunEvaluator_ModelFailureEmitsEvaluatorFailed(t *testing.T) {
	boom := errors.New("quota exceeded")
	model := llm.CompleterFunc(func(context.Context, string) (string, error) { return "", boom })
	acts, sink, metrics := newTestActivities(evaluator.Dependencies{Model: model})
	gen := testGeneration(1)

	_, err := acts.RunEvaluator(context.Background(), RunEvaluatorInput{
		Generation: gen,
		Evaluator:  evaluator.NameGEvalFaithfulness,
	})
	requireApplicationError(t, err, ErrTypeEvaluatorFailed)
	assert.ErrorIs(t, err, boom)

	failed := sink.EventsByType(string(domain.EventTypeEvaluatorFailed))
	require.Len(t, failed, 1)
	var payload domain.EvaluatorFailedPayload
	require.NoError(t, json.Unmarshal(failed[0].Payload, &payload))
	assert.Equal(t, gen.ID, payload.GenerationID)
	assert.Equal(t, evaluator.NameGEvalFaithfulness, payload.Evaluator)
	assert.Contains(t, payload.Error, "quota exceeded")

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.EvaluatorFailures.WithLabelValues(
		evaluator.NameGEvalFaithfulness, evaluator.AxisFaithfulnessGemini)), 0)
}

func TestRunEvaluator_AbsentEmitsNothing(t *testing.T) {
	model := llm.CompleterFunc(func(context.Context, string) (string, error) { return "cannot say", nil })
	acts, sink, _ := newTestActivities(evaluator.Dependencies{Model: model})

	out, err := acts.RunEvaluator(context.Background(), RunEvaluatorInput{
		Generation: testGeneration(1),
		Evaluator:  evaluator.NameCoherence,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Empty(t, sink.Events())
}
