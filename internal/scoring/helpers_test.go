package scoring

import (
	"context"
	"fmt"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// stubEvaluator is a configurable evaluator for orchestration tests.
type stubEvaluator struct {
	name string
	axis string
	fn   func(ctx context.Context, gen domain.Generation) ([]domain.ScoreRecord, error)
}

func (s *stubEvaluator) Name() string { return s.name }
func (s *stubEvaluator) Axis() string { return s.axis }
func (s *stubEvaluator) Evaluate(ctx context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
	return s.fn(ctx, gen)
}

// fixedScore returns an evaluator that always scores value.
func fixedScore(name, axis string, value float64) *stubEvaluator {
	return &stubEvaluator{name: name, axis: axis, fn: func(_ context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
		rec, err := domain.NewScoreRecord(gen.ID, axis, name, value, value > 0.5, nil)
		if err != nil {
			return nil, err
		}
		return []domain.ScoreRecord{rec}, nil
	}}
}

func failing(name, axis string, err error) *stubEvaluator {
	return &stubEvaluator{name: name, axis: axis, fn: func(context.Context, domain.Generation) ([]domain.ScoreRecord, error) {
		return nil, err
	}}
}

func panicking(name, axis string) *stubEvaluator {
	return &stubEvaluator{name: name, axis: axis, fn: func(context.Context, domain.Generation) ([]domain.ScoreRecord, error) {
		panic("index out of range")
	}}
}

func absent(name, axis string) *stubEvaluator {
	return &stubEvaluator{name: name, axis: axis, fn: func(context.Context, domain.Generation) ([]domain.ScoreRecord, error) {
		return nil, nil
	}}
}

func testGeneration(i int) domain.Generation {
	answer := fmt.Sprintf("Answer number %d [0].", i)
	return domain.NewGeneration("", fmt.Sprintf("question %d", i), "doc-1", &answer,
		[]domain.Passage{{Text: "supporting passage"}})
}
