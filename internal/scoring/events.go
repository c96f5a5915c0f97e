package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/pkg/activity"
	"github.com/ahrav/go-ragscore/pkg/events"
)

// eventProducer identifies RunEvaluator as the source of its events.
const eventProducer = "activity.run_evaluator"

// EventEmitter turns scoring results into envelopes on the activity event sink.
// Emission is best-effort: failures are logged and never reach the caller.
type EventEmitter struct {
	base activity.BaseActivities
	now  func() time.Time
}

// NewEventEmitter creates an emitter over base.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base, now: time.Now}
}

// EmitScoreRecorded emits one ScoreRecorded event per record.
//
// Each event's idempotency key is derived from the workflow execution and the
// record's persistence key (generation, evaluator name, axis), so a replayed
// activity re-emits identical keys and deduplicating sinks store the record
// once. A record that fails validation is logged and skipped; the remaining
// records are still emitted.
func (e *EventEmitter) EmitScoreRecorded(
	ctx context.Context,
	records []domain.ScoreRecord,
	wfCtx activity.WorkflowContext,
) {
	for _, rec := range records {
		domainEvent, err := domain.NewScoreRecordedEvent(
			wfCtx.TenantID,
			wfCtx.WorkflowID,
			wfCtx.RunID,
			rec,
			eventProducer,
			e.now(),
		)
		if err != nil {
			activity.SafeLogError(ctx, "Failed to create ScoreRecorded event",
				"generation_id", rec.GenerationID,
				"evaluator", rec.EvaluatorName,
				"error", err)
			continue
		}
		e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent), "ScoreRecorded")
	}
}

// EmitEvaluatorFailed emits an EvaluatorFailed event carrying the
// generation id, evaluator name and the error text. A nil cause yields an
// empty error field.
func (e *EventEmitter) EmitEvaluatorFailed(
	ctx context.Context,
	generationID, evaluatorName string,
	cause error,
	wfCtx activity.WorkflowContext,
) {
	payload := domain.EvaluatorFailedPayload{
		GenerationID: generationID,
		Evaluator:    evaluatorName,
	}
	if cause != nil {
		payload.Error = cause.Error()
	}
	domainEvent, err := domain.NewEvaluatorFailedEvent(
		wfCtx.TenantID,
		wfCtx.WorkflowID,
		wfCtx.RunID,
		payload,
		eventProducer,
		e.now(),
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create EvaluatorFailed event",
			"generation_id", generationID,
			"evaluator", evaluatorName,
			"error", err)
		return
	}
	e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent), "EvaluatorFailed")
}

// convertDomainEventToEnvelope maps a domain envelope onto the transport envelope.
// The idempotency key doubles as the event ID so replays are deduplicated.
func convertDomainEventToEnvelope(domainEvent domain.EventEnvelope) events.Envelope {
	return events.Envelope{
		ID:             domainEvent.IdempotencyKey,
		Type:           string(domainEvent.EventType),
		Source:         domainEvent.Producer,
		Version:        fmt.Sprintf("%d.0.0", domainEvent.Version),
		Timestamp:      domainEvent.OccurredAt,
		IdempotencyKey: domainEvent.IdempotencyKey,
		TenantID:       domainEvent.TenantID,
		WorkflowID:     domainEvent.WorkflowID,
		RunID:          domainEvent.RunID,
		Payload:        domainEvent.Payload,
	}
}
