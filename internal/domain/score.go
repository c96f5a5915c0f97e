// Package domain defines the value types shared by every scoring component:
// score records produced by evaluators, the generations they score, human
// rater responses, and the label tables used to map annotations to numbers.
//
// Types in this package are plain data. They carry JSON tags matching the
// wire formats consumed by downstream analysis and validation rules enforced
// through a package-level validator instance.
package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Score-specific errors returned when constructing or validating records.
var (
	// ErrInvalidScore indicates that a score record contains invalid data.
	ErrInvalidScore = errors.New("invalid score record")

	// ErrNonFiniteScore indicates a NaN or infinite score value.
	ErrNonFiniteScore = errors.New("score value must be finite")
)

// ScoreRecord is the result of one evaluator scoring one generation on one axis.
// Records are immutable once built: components derive new records instead of
// mutating existing ones.
type ScoreRecord struct {
	// Value is the normalized score in [0, 1].
	Value float64 `json:"score" validate:"min=0,max=1"`

	// Success is the evaluator's pass/fail verdict for this record.
	Success bool `json:"success"`

	// Axis names the quality dimension, e.g. "faithfulness" or "formatting".
	Axis string `json:"type" validate:"required"`

	// EvaluatorName identifies the method that produced the value.
	// Several evaluators may share an axis.
	EvaluatorName string `json:"name" validate:"required"`

	// GenerationID references the scored generation.
	GenerationID string `json:"gen_uuid" validate:"required"`

	// Comments holds free-text diagnostics. Nil when there is nothing to report.
	Comments []string `json:"comments"`
}

// RecordKey uniquely identifies a persisted score record.
type RecordKey struct {
	GenerationID  string
	EvaluatorName string
	Axis          string
}

// NewScoreRecord builds a validated record, clamping value into [0, 1].
// Empty comment slices are normalized to nil so the wire form carries null.
func NewScoreRecord(
	generationID, axis, evaluatorName string,
	value float64,
	success bool,
	comments []string,
) (ScoreRecord, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ScoreRecord{}, fmt.Errorf("%w: %w", ErrInvalidScore, ErrNonFiniteScore)
	}

	rec := ScoreRecord{
		Value:         Clamp01(value),
		Success:       success,
		Axis:          axis,
		EvaluatorName: evaluatorName,
		GenerationID:  generationID,
	}
	if len(comments) > 0 {
		rec.Comments = slices.Clone(comments)
	}

	if err := rec.Validate(); err != nil {
		return ScoreRecord{}, err
	}
	return rec, nil
}

// Validate checks that the record satisfies its invariants.
func (s ScoreRecord) Validate() error {
	if math.IsNaN(s.Value) {
		return fmt.Errorf("%w: %w", ErrInvalidScore, ErrNonFiniteScore)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScore, err)
	}
	return nil
}

// Key returns the persistence key (generation, evaluator, axis).
func (s ScoreRecord) Key() RecordKey {
	return RecordKey{
		GenerationID:  s.GenerationID,
		EvaluatorName: s.EvaluatorName,
		Axis:          s.Axis,
	}
}

// WithComments returns a copy of the record with extra comments appended.
func (s ScoreRecord) WithComments(comments ...string) ScoreRecord {
	out := s
	out.Comments = append(slices.Clone(s.Comments), comments...)
	if len(out.Comments) == 0 {
		out.Comments = nil
	}
	return out
}

// Clamp01 restricts v to the closed unit interval.
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// FilterByAxis returns the records whose axis equals axis, preserving order.
func FilterByAxis(records []ScoreRecord, axis string) []ScoreRecord {
	out := make([]ScoreRecord, 0, len(records))
	for _, r := range records {
		if r.Axis == axis {
			out = append(out, r)
		}
	}
	return out
}
