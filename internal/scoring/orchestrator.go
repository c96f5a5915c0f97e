// Package scoring runs evaluators against generations. The Orchestrator is
// the in-process engine used by the batch CLI; Activities expose single
// evaluator runs to Temporal workflows.
//
// Evaluator failures never abort a run. An evaluator that errors or panics
// is logged with the generation id, counted, and contributes no records.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/evaluator"
	"github.com/ahrav/go-ragscore/internal/observability"
)

// Mode selects how an Orchestrator schedules evaluators.
type Mode string

const (
	// ModeSequential runs evaluators one after another in list order.
	ModeSequential Mode = "sequential"
	// ModeFanOut runs evaluators concurrently on a bounded worker pool.
	ModeFanOut Mode = "fanout"
)

// DefaultWorkers bounds fan-out concurrency when no limit is configured.
const DefaultWorkers = 8

var (
	// ErrEvaluatorPanic wraps a panic recovered from an evaluator.
	ErrEvaluatorPanic = errors.New("evaluator panicked")

	// ErrInvalidRecord indicates an evaluator produced a record that fails validation.
	ErrInvalidRecord = errors.New("evaluator produced invalid record")

	// ErrUnknownMode is returned for a Mode other than sequential or fanout.
	ErrUnknownMode = errors.New("unknown orchestration mode")
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSequential, ModeFanOut:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Failure records one evaluator that produced no result for a generation.
type Failure struct {
	Evaluator string
	Axis      string
	Err       error
}

// Outcome is the result of evaluating one generation.
type Outcome struct {
	GenerationID string
	Records      []domain.ScoreRecord
	Failures     []Failure
}

// FailedEvaluators lists the names of failed evaluators in evaluator order.
func (o Outcome) FailedEvaluators() []string {
	names := make([]string, len(o.Failures))
	for i, f := range o.Failures {
		names[i] = f.Evaluator
	}
	return names
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMode sets the scheduling mode. The default is ModeSequential.
func WithMode(m Mode) Option { return func(o *Orchestrator) { o.mode = m } }

// WithWorkers bounds fan-out concurrency.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l.With("component", "orchestrator")
		}
	}
}

// WithMetrics records per-evaluator outcomes into m.
func WithMetrics(m *observability.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// Orchestrator runs an ordered list of evaluators against generations.
// It holds no per-run state and may be shared across goroutines.
type Orchestrator struct {
	evaluators []evaluator.Evaluator
	mode       Mode
	workers    int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewOrchestrator returns an orchestrator over evaluators, kept in order.
func NewOrchestrator(evaluators []evaluator.Evaluator, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		evaluators: append([]evaluator.Evaluator(nil), evaluators...),
		mode:       ModeSequential,
		workers:    DefaultWorkers,
		logger:     slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if _, err := ParseMode(string(o.mode)); err != nil {
		return nil, err
	}
	return o, nil
}

// Evaluators returns the evaluators in run order.
func (o *Orchestrator) Evaluators() []evaluator.Evaluator {
	return append([]evaluator.Evaluator(nil), o.evaluators...)
}

// result holds one evaluator's output slot.
type result struct {
	records []domain.ScoreRecord
	err     error
}

// Evaluate runs every evaluator on gen and returns the union of their
// records in evaluator order.
//
// In ModeSequential evaluators run one after another on the calling
// goroutine. In ModeFanOut each evaluator is a separate task on a pool of at
// most the configured worker count; Evaluate waits for every task, then
// assembles the outcome in list order, so both modes produce identical
// outcomes for the same inputs.
//
// An evaluator that returns an error, panics, or produces a record failing
// validation contributes no records. It is logged with the generation id,
// counted as a failure, and listed in Outcome.Failures; the remaining
// evaluators are unaffected. An evaluator returning no records had no
// opinion and is not a failure. Once ctx is done, evaluators that have not
// started are recorded as failed with the context error.
//
// The returned error is non-nil only when the worker pool cannot be created.
func (o *Orchestrator) Evaluate(ctx context.Context, gen domain.Generation) (Outcome, error) {
	results := make([]result, len(o.evaluators))

	switch o.mode {
	case ModeFanOut:
		if err := o.fanOut(ctx, gen, results); err != nil {
			return Outcome{}, err
		}
	default:
		for i, ev := range o.evaluators {
			results[i] = o.runOne(ctx, ev, gen)
		}
	}

	out := Outcome{GenerationID: gen.ID}
	for i, ev := range o.evaluators {
		r := results[i]
		if r.err != nil {
			out.Failures = append(out.Failures, Failure{Evaluator: ev.Name(), Axis: ev.Axis(), Err: r.err})
			continue
		}
		out.Records = append(out.Records, r.records...)
	}
	return out, nil
}

// fanOut runs each evaluator as its own task on a pool sized to the smaller
// of the worker limit and the evaluator count. Each task writes only its own
// slot, so results need no locking. A task that fails does not cancel the
// others.
func (o *Orchestrator) fanOut(ctx context.Context, gen domain.Generation, results []result) error {
	if len(o.evaluators) == 0 {
		return nil
	}
	pool, err := ants.NewPool(min(o.workers, len(o.evaluators)))
	if err != nil {
		return fmt.Errorf("failed to create evaluator pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, ev := range o.evaluators {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = o.runOne(ctx, ev, gen)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			results[i] = result{err: fmt.Errorf("submit evaluator task: %w", err)}
			o.recordFailure(ctx, ev, gen, results[i].err, 0)
		}
	}
	wg.Wait()
	return nil
}

// runOne invokes ev, converting panics and invalid records into failures.
func (o *Orchestrator) runOne(ctx context.Context, ev evaluator.Evaluator, gen domain.Generation) result {
	start := time.Now()
	var records []domain.ScoreRecord
	err := ctx.Err()
	if err == nil {
		records, err = evaluateSafely(ctx, ev, gen)
	}
	elapsed := time.Since(start)

	if err != nil {
		o.recordFailure(ctx, ev, gen, err, elapsed)
		return result{err: err}
	}
	outcome := observability.OutcomeScored
	if len(records) == 0 {
		outcome = observability.OutcomeAbsent
	}
	o.metrics.RecordEvaluation(ev.Name(), ev.Axis(), outcome, elapsed.Seconds())
	return result{records: records}
}

func (o *Orchestrator) recordFailure(
	ctx context.Context,
	ev evaluator.Evaluator,
	gen domain.Generation,
	err error,
	elapsed time.Duration,
) {
	o.metrics.RecordEvaluation(ev.Name(), ev.Axis(), observability.OutcomeFailed, elapsed.Seconds())
	o.logger.ErrorContext(ctx, fmt.Sprintf("Error evaluating %s with %s/%s", gen.ID, ev.Name(), ev.Axis()),
		"generation_id", gen.ID,
		"evaluator", ev.Name(),
		"axis", ev.Axis(),
		"error", err)
}

// EvaluateBatch evaluates gens in order, calling emit after each generation.
// Cancellation is checked between generations; the error returned is the
// context error or the first error from emit.
func (o *Orchestrator) EvaluateBatch(
	ctx context.Context,
	gens []domain.Generation,
	emit func(Outcome) error,
) error {
	for _, gen := range gens {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := o.Evaluate(ctx, gen)
		if err != nil {
			return err
		}
		if emit != nil {
			if err := emit(out); err != nil {
				return err
			}
		}
	}
	return nil
}
