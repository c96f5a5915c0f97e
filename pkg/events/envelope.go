// Package events defines the transport-neutral event envelope emitted by
// activities and the sink interface that receives it.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Envelope carries one domain event with routing and deduplication metadata.
type Envelope struct {
	// ID uniquely identifies the event. Activities reuse the idempotency key
	// so replays produce the same ID.
	ID string `json:"id"`

	// Type routes the event, e.g. "ScoreRecorded".
	Type string `json:"type"`

	// Source names the emitting component, e.g. "activity.run_evaluator".
	Source string `json:"source"`

	// Version is the payload schema version ("1.0.0").
	Version string `json:"version"`

	Timestamp      time.Time `json:"timestamp"`
	IdempotencyKey string    `json:"idempotency_key"`
	TenantID       string    `json:"tenant_id"`
	WorkflowID     string    `json:"workflow_id"`
	RunID          string    `json:"run_id"`

	// Payload is the event body; its schema depends on Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// EventSink receives emitted events. Implementations should treat a repeated
// idempotency key as a no-op and return quickly.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink returns a sink that discards events.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}

// MemorySink keeps events in memory, deduplicated by idempotency key.
type MemorySink struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Envelope
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append implements EventSink.
func (m *MemorySink) Append(_ context.Context, envelope Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[envelope.IdempotencyKey]; dup {
		return nil
	}
	m.seen[envelope.IdempotencyKey] = struct{}{}
	m.events = append(m.events, envelope)
	return nil
}

// Events returns a copy of the stored events in arrival order.
func (m *MemorySink) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, len(m.events))
	copy(out, m.events)
	return out
}

// EventsByType returns stored events of the given type.
func (m *MemorySink) EventsByType(eventType string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
