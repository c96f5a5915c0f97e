package activity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ragscore/pkg/events"
)

type flakySink struct {
	failures int32
	calls    atomic.Int32
	stored   []events.Envelope
}

func (f *flakySink) Append(_ context.Context, env events.Envelope) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("sink unavailable")
	}
	f.stored = append(f.stored, env)
	return nil
}

func TestGetWorkflowContext_OutsideActivity(t *testing.T) {
	base := NewBaseActivities(nil)
	wfCtx := base.GetWorkflowContext(context.Background())

	assert.Equal(t, testWorkflowID, wfCtx.WorkflowID)
	assert.Equal(t, testActivityID, wfCtx.ActivityID)
	assert.Equal(t, DefaultTenantID, wfCtx.TenantID)
	assert.Contains(t, wfCtx.RunID, "test-run-")
}

func TestEmitEventSafe_RetriesOnce(t *testing.T) {
	sink := &flakySink{failures: 1}
	base := NewBaseActivities(sink)

	base.EmitEventSafe(context.Background(), events.Envelope{ID: "e1", IdempotencyKey: "k"}, "score recorded")

	assert.Equal(t, int32(2), sink.calls.Load())
	require.Len(t, sink.stored, 1)
	assert.Equal(t, "e1", sink.stored[0].ID)
}

func TestEmitEventSafe_GivesUpSilently(t *testing.T) {
	sink := &flakySink{failures: 10}
	base := NewBaseActivities(sink)

	assert.NotPanics(t, func() {
		base.EmitEventSafe(context.Background(), events.Envelope{ID: "e1"}, "score recorded")
	})
	assert.Equal(t, int32(2), sink.calls.Load())
	assert.Empty(t, sink.stored)
}

func TestEmitEventSafe_CancelledDuringRetry(t *testing.T) {
	sink := &flakySink{failures: 10}
	base := NewBaseActivities(sink)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base.EmitEventSafe(ctx, events.Envelope{ID: "e1"}, "score recorded")
	assert.Equal(t, int32(1), sink.calls.Load())
}

func TestEmitEventSafe_NilSink(t *testing.T) {
	base := NewBaseActivities(nil)
	assert.NotPanics(t, func() {
		base.EmitEventSafe(context.Background(), events.Envelope{}, "noop")
	})
}

func TestSafeHelpers_OutsideActivity(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		SafeLog(ctx, "hello", "k", "v")
		SafeLogError(ctx, "oops", "k", "v")
		RecordHeartbeat(ctx, "detail")
	})
}
