package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event emitted by the system.
type EventType string

const (
	// EventTypeScoreRecorded is emitted once per score record an evaluator produces.
	EventTypeScoreRecorded EventType = "ScoreRecorded"

	// EventTypeEvaluatorFailed is emitted when an evaluator errors on a generation.
	EventTypeEvaluatorFailed EventType = "EvaluatorFailed"
)

// EventEnvelope wraps scoring events with workflow context and an idempotency key
// so projections can deduplicate replays.
type EventEnvelope struct {
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	EventType      EventType       `json:"event_type" validate:"required"`
	Version        int             `json:"version" validate:"required,min=1"`
	OccurredAt     time.Time       `json:"occurred_at" validate:"required"`
	TenantID       string          `json:"tenant_id" validate:"required"`
	WorkflowID     string          `json:"workflow_id" validate:"required"`
	RunID          string          `json:"run_id" validate:"required"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
	Producer       string          `json:"producer" validate:"required"`
}

// Validate checks if the event envelope meets all requirements.
func (e *EventEnvelope) Validate() error {
	return validate.Struct(e)
}

// EvaluatorFailedPayload describes an evaluator error for one generation.
type EvaluatorFailedPayload struct {
	GenerationID string `json:"gen_uuid" validate:"required"`
	Evaluator    string `json:"evaluator" validate:"required"`
	Error        string `json:"error"`
}

// GenerateIdempotencyKey hashes a client key and an event suffix into a
// deterministic key, so retries and replays produce identical keys.
func GenerateIdempotencyKey(clientIdempotencyKey, eventSuffix string) string {
	hasher := sha256.New()
	hasher.Write([]byte(clientIdempotencyKey + eventSuffix))
	return hex.EncodeToString(hasher.Sum(nil))
}

// NewScoreRecordedEvent wraps one score record in an envelope keyed by the
// record's persistence key.
func NewScoreRecordedEvent(
	tenantID, workflowID, runID string,
	record ScoreRecord,
	producer string,
	now time.Time,
) (EventEnvelope, error) {
	if err := record.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid score recorded payload: %w", err)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	k := record.Key()
	suffix := fmt.Sprintf(":score:%s:%s:%s", k.GenerationID, k.EvaluatorName, k.Axis)
	return newEnvelope(EventTypeScoreRecorded, tenantID, workflowID, runID, payload, producer, now, suffix)
}

// NewEvaluatorFailedEvent wraps an evaluator failure in an envelope.
func NewEvaluatorFailedEvent(
	tenantID, workflowID, runID string,
	p EvaluatorFailedPayload,
	producer string,
	now time.Time,
) (EventEnvelope, error) {
	if err := validate.Struct(p); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid evaluator failed payload: %w", err)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	suffix := fmt.Sprintf(":failed:%s:%s", p.GenerationID, p.Evaluator)
	return newEnvelope(EventTypeEvaluatorFailed, tenantID, workflowID, runID, payload, producer, now, suffix)
}

func newEnvelope(
	eventType EventType,
	tenantID, workflowID, runID string,
	payload json.RawMessage,
	producer string,
	now time.Time,
	suffix string,
) (EventEnvelope, error) {
	env := EventEnvelope{
		IdempotencyKey: GenerateIdempotencyKey(workflowID+":"+runID, suffix),
		EventType:      eventType,
		Version:        1,
		OccurredAt:     now,
		TenantID:       tenantID,
		WorkflowID:     workflowID,
		RunID:          runID,
		Payload:        payload,
		Producer:       producer,
	}
	if err := env.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	return env, nil
}
