package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/scoring"
)

// RunEvaluatorActivity is the registered name of scoring.Activities.RunEvaluator.
const RunEvaluatorActivity = "RunEvaluator"

// DefaultActivityTimeout bounds a single evaluator run when the input sets none.
const DefaultActivityTimeout = 2 * time.Minute

// ErrNoEvaluators is returned when the input names no evaluators.
var ErrNoEvaluators = errors.New("at least one evaluator is required")

// EvaluationInput names the generation to score and the evaluators to run on it.
type EvaluationInput struct {
	Generation domain.Generation `json:"generation"`
	Evaluators []string          `json:"evaluators"`
	// TimeoutSeconds overrides DefaultActivityTimeout when positive.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// EvaluationOutput holds the records of successful evaluators in request
// order, and the names of evaluators that failed.
type EvaluationOutput struct {
	Scores []domain.ScoreRecord `json:"scores"`
	Failed []string             `json:"failed,omitempty"`
}

// EvaluationWorkflow runs every requested evaluator on one generation.
func EvaluationWorkflow(ctx workflow.Context, input EvaluationInput) (*EvaluationOutput, error) {
	// Version gate enables safe evolution and backward compatibility.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "evaluation.v", workflow.DefaultVersion, currentVersion)

	if err := input.Generation.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid evaluation input", "Validation", err)
	}
	if len(input.Evaluators) == 0 {
		return nil, temporal.NewNonRetryableApplicationError("invalid evaluation input", "Validation", ErrNoEvaluators)
	}

	timeout := DefaultActivityTimeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    30 * time.Second,
		// A failed evaluation is reported, never retried.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	logger := workflow.GetLogger(ctx)

	futures := make([]workflow.Future, len(input.Evaluators))
	for i, name := range input.Evaluators {
		futures[i] = workflow.ExecuteActivity(ctx, RunEvaluatorActivity, scoring.RunEvaluatorInput{
			Generation: input.Generation,
			Evaluator:  name,
		})
	}

	out := &EvaluationOutput{Scores: []domain.ScoreRecord{}}
	for i, f := range futures {
		var res scoring.RunEvaluatorOutput
		if err := f.Get(ctx, &res); err != nil {
			logger.Error("Evaluator failed",
				"generation_id", input.Generation.ID,
				"evaluator", input.Evaluators[i],
				"error", err)
			out.Failed = append(out.Failed, input.Evaluators[i])
			continue
		}
		out.Scores = append(out.Scores, res.Records...)
	}

	logger.Info("Evaluation complete",
		"generation_id", input.Generation.ID,
		"scores", len(out.Scores),
		"failed", len(out.Failed))
	return out, nil
}
