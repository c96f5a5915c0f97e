// Package ensemble combines the scores of several evaluators on one axis into
// a single derived score per generation.
package ensemble

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// Strategy selects how per-evaluator scores are combined.
type Strategy string

// Supported strategies.
const (
	StrategyAll             Strategy = "all"
	StrategyAny             Strategy = "any"
	StrategyAverage         Strategy = "average"
	StrategyWeightedAverage Strategy = "weighted_average"
)

// passThreshold is the strict lower bound a score must exceed to count as a
// pass under ALL and ANY.
const passThreshold = 0.5

var (
	// ErrMixedAxes indicates input records span more than one axis.
	ErrMixedAxes = errors.New("records span multiple axes")
	// ErrMissingWeights indicates WEIGHTED_AVERAGE without usable weights.
	ErrMissingWeights = errors.New("weights must be provided for weighted average ensembling")
	// ErrUnknownStrategy indicates an unsupported strategy name.
	ErrUnknownStrategy = errors.New("unknown ensembling strategy")
	// ErrTooFewEvaluators indicates fewer than two evaluator names.
	ErrTooFewEvaluators = errors.New("ensembling needs at least two evaluators")
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(s)); st {
	case StrategyAll, StrategyAny, StrategyAverage, StrategyWeightedAverage:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Name returns the derived record name, ensemble:<strategy>:<n1>-<n2>-...
func Name(strategy Strategy, names []string) string {
	return fmt.Sprintf("ensemble:%s:%s", strategy, strings.Join(names, "-"))
}

type combiner func(values []float64) float64

// Ensemble pivots records into a generation × evaluator matrix and combines
// each generation's row with strategy. Generations that lack a score from
// any of names are skipped. Duplicate (generation, evaluator) scores are
// averaged. Output is ordered by generation id.
//
// Strategies combine a row as follows:
//   - all: 1 when every score exceeds 0.5, else 0
//   - any: 1 when at least one score exceeds 0.5, else 0
//   - average: the arithmetic mean
//   - weighted_average: the mean weighted by weights[name], normalized by
//     the weight sum
//
// Each derived record keeps the input axis, is named by Name, and succeeds
// when its value exceeds 0.5. Records whose evaluator is not in names are
// ignored.
//
// Precondition violations are returned before any record is produced, even
// for empty input: fewer than two names (ErrTooFewEvaluators), records on
// more than one axis (ErrMixedAxes), an unknown strategy
// (ErrUnknownStrategy), and weighted_average without a non-negative weight
// for every name summing above zero (ErrMissingWeights).
func Ensemble(
	records []domain.ScoreRecord,
	names []string,
	strategy Strategy,
	weights map[string]float64,
) ([]domain.ScoreRecord, error) {
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewEvaluators, len(names))
	}
	axis, err := singleAxis(records)
	if err != nil {
		return nil, err
	}
	combine, err := combinerFor(strategy, names, weights)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	matrix := pivot(records)
	genIDs := make([]string, 0, len(matrix))
	for id := range matrix {
		genIDs = append(genIDs, id)
	}
	slices.Sort(genIDs)

	name := Name(strategy, names)
	out := make([]domain.ScoreRecord, 0, len(genIDs))
	row := make([]float64, len(names))
	for _, id := range genIDs {
		cells := matrix[id]
		complete := true
		for i, n := range names {
			v, ok := cells[n]
			if !ok {
				complete = false
				break
			}
			row[i] = v
		}
		if !complete {
			continue
		}
		value := combine(row)
		rec, err := domain.NewScoreRecord(id, axis, name, value, value > passThreshold, nil)
		if err != nil {
			return nil, fmt.Errorf("ensembling generation %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func singleAxis(records []domain.ScoreRecord) (string, error) {
	var axis string
	for i, r := range records {
		if i == 0 {
			axis = r.Axis
			continue
		}
		if r.Axis != axis {
			return "", fmt.Errorf("%w: %q and %q", ErrMixedAxes, axis, r.Axis)
		}
	}
	return axis, nil
}

func combinerFor(strategy Strategy, names []string, weights map[string]float64) (combiner, error) {
	switch strategy {
	case StrategyAll:
		return func(values []float64) float64 {
			for _, v := range values {
				if v <= passThreshold {
					return 0
				}
			}
			return 1
		}, nil
	case StrategyAny:
		return func(values []float64) float64 {
			for _, v := range values {
				if v > passThreshold {
					return 1
				}
			}
			return 0
		}, nil
	case StrategyAverage:
		return func(values []float64) float64 { return stat.Mean(values, nil) }, nil
	case StrategyWeightedAverage:
		w, err := weightVector(names, weights)
		if err != nil {
			return nil, err
		}
		return func(values []float64) float64 { return stat.Mean(values, w) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// weightVector orders weights to match names.
func weightVector(names []string, weights map[string]float64) ([]float64, error) {
	if weights == nil {
		return nil, ErrMissingWeights
	}
	w := make([]float64, len(names))
	var total float64
	for i, n := range names {
		v, ok := weights[n]
		if !ok {
			return nil, fmt.Errorf("%w: no weight for %s", ErrMissingWeights, n)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative weight for %s", ErrMissingWeights, n)
		}
		w[i] = v
		total += v
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", ErrMissingWeights)
	}
	return w, nil
}

// pivot maps generation id → evaluator name → mean score.
func pivot(records []domain.ScoreRecord) map[string]map[string]float64 {
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[string]map[string]*acc)
	for _, r := range records {
		row, ok := sums[r.GenerationID]
		if !ok {
			row = make(map[string]*acc)
			sums[r.GenerationID] = row
		}
		a, ok := row[r.EvaluatorName]
		if !ok {
			a = &acc{}
			row[r.EvaluatorName] = a
		}
		a.sum += r.Value
		a.n++
	}

	out := make(map[string]map[string]float64, len(sums))
	for id, row := range sums {
		cells := make(map[string]float64, len(row))
		for name, a := range row {
			cells[name] = a.sum / float64(a.n)
		}
		out[id] = cells
	}
	return out
}
