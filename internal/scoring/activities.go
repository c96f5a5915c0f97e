package scoring

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/evaluator"
	"github.com/ahrav/go-ragscore/internal/observability"
	pkgactivity "github.com/ahrav/go-ragscore/pkg/activity"
)

// Application error types attached to activity failures.
const (
	ErrTypeInvalidInput     = "InvalidInput"
	ErrTypeUnknownEvaluator = "UnknownEvaluator"
	ErrTypeEvaluatorFailed  = "EvaluatorFailed"
)

// RunEvaluatorInput names one evaluator to run on one generation.
type RunEvaluatorInput struct {
	Generation domain.Generation `json:"generation"`
	Evaluator  string            `json:"evaluator"`
}

// RunEvaluatorOutput carries the records produced. An empty slice means the
// evaluator had no opinion.
type RunEvaluatorOutput struct {
	Records []domain.ScoreRecord `json:"records"`
}

// Activities exposes evaluator runs as Temporal activities.
//
// Every failure is returned as a non-retryable application error: retrying a
// failed evaluation is the scheduler's decision, never this activity's.
type Activities struct {
	pkgactivity.BaseActivities
	registry *evaluator.Registry
	events   *EventEmitter
	metrics  *observability.Metrics
}

// NewActivities creates the activity set over registry. metrics may be nil.
func NewActivities(
	base pkgactivity.BaseActivities,
	registry *evaluator.Registry,
	metrics *observability.Metrics,
) *Activities {
	return &Activities{
		BaseActivities: base,
		registry:       registry,
		events:         NewEventEmitter(base),
		metrics:        metrics,
	}
}

// RunEvaluator runs a single registered evaluator against a generation and
// emits a ScoreRecorded event per record, or an EvaluatorFailed event.
func (a *Activities) RunEvaluator(ctx context.Context, input RunEvaluatorInput) (*RunEvaluatorOutput, error) {
	if err := input.Generation.Validate(); err != nil {
		return nil, nonRetryable(ErrTypeInvalidInput, err, "invalid generation")
	}

	ev, err := a.registry.Get(input.Evaluator)
	if err != nil {
		return nil, nonRetryable(ErrTypeUnknownEvaluator, err, fmt.Sprintf("cannot build evaluator %q", input.Evaluator))
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Starting RunEvaluator activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"generation_id", input.Generation.ID,
		"evaluator", ev.Name())

	start := time.Now()
	records, err := evaluateSafely(ctx, ev, input.Generation)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		a.metrics.RecordEvaluation(ev.Name(), ev.Axis(), observability.OutcomeFailed, elapsed)
		pkgactivity.SafeLogError(ctx, fmt.Sprintf("Error evaluating %s with %s/%s", input.Generation.ID, ev.Name(), ev.Axis()),
			"error", err)
		a.events.EmitEvaluatorFailed(ctx, input.Generation.ID, ev.Name(), err, wfCtx)
		return nil, nonRetryable(ErrTypeEvaluatorFailed, err, fmt.Sprintf("evaluator %s failed", ev.Name()))
	}

	outcome := observability.OutcomeScored
	if len(records) == 0 {
		outcome = observability.OutcomeAbsent
	}
	a.metrics.RecordEvaluation(ev.Name(), ev.Axis(), outcome, elapsed)
	a.events.EmitScoreRecorded(ctx, records, wfCtx)
	a.RecordHeartbeat(ctx, ev.Name())

	pkgactivity.SafeLog(ctx, "RunEvaluator completed",
		"generation_id", input.Generation.ID,
		"evaluator", ev.Name(),
		"records", len(records))

	return &RunEvaluatorOutput{Records: records}, nil
}

// evaluateSafely runs ev, converting a panic into an error and rejecting
// records that fail validation.
func evaluateSafely(ctx context.Context, ev evaluator.Evaluator, gen domain.Generation) (records []domain.ScoreRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("%w: %v", ErrEvaluatorPanic, r)
		}
	}()
	records, err = ev.Evaluate(ctx, gen)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if verr := rec.Validate(); verr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, verr)
		}
	}
	return records, nil
}

// nonRetryable wraps an error as a Temporal non-retryable application error.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}
