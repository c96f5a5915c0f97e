// Package analysis summarizes score records across evaluators.
package analysis

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// Correlations maps axis → "n1-n2" → Pearson correlation. A nil value means
// the correlation is undefined, e.g. a constant column or a single shared
// generation.
type Correlations map[string]map[string]*float64

// Correlate computes, for every axis, the Pearson correlation between each
// pair of evaluators scoring it. Evaluator names are sorted, so a pair is
// keyed "a-b" with a < b. Only generations scored by both evaluators of a
// pair count; pairs with no such generation are omitted. Duplicate
// (generation, evaluator) scores are averaged.
func Correlate(records []domain.ScoreRecord) Correlations {
	byAxis := make(map[string][]domain.ScoreRecord)
	for _, r := range records {
		byAxis[r.Axis] = append(byAxis[r.Axis], r)
	}

	out := make(Correlations, len(byAxis))
	for axis, recs := range byAxis {
		matrix, names := pivot(recs)
		pairs := make(map[string]*float64)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				x, y := completeRows(matrix, names[i], names[j])
				if len(x) == 0 {
					continue
				}
				pairs[names[i]+"-"+names[j]] = finite(stat.Correlation(x, y, nil))
			}
		}
		out[axis] = pairs
	}
	return out
}

// pivot returns generation id → evaluator → mean score, and the sorted
// evaluator names.
func pivot(records []domain.ScoreRecord) (map[string]map[string]float64, []string) {
	sums := make(map[string]map[string][2]float64)
	seen := make(map[string]struct{})
	for _, r := range records {
		row, ok := sums[r.GenerationID]
		if !ok {
			row = make(map[string][2]float64)
			sums[r.GenerationID] = row
		}
		acc := row[r.EvaluatorName]
		row[r.EvaluatorName] = [2]float64{acc[0] + r.Value, acc[1] + 1}
		seen[r.EvaluatorName] = struct{}{}
	}

	matrix := make(map[string]map[string]float64, len(sums))
	for id, row := range sums {
		cells := make(map[string]float64, len(row))
		for name, acc := range row {
			cells[name] = acc[0] / acc[1]
		}
		matrix[id] = cells
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return matrix, names
}

// completeRows returns the paired scores of a and b over generations that
// have both, in generation id order.
func completeRows(matrix map[string]map[string]float64, a, b string) ([]float64, []float64) {
	ids := make([]string, 0, len(matrix))
	for id := range matrix {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var x, y []float64
	for _, id := range ids {
		va, okA := matrix[id][a]
		vb, okB := matrix[id][b]
		if okA && okB {
			x = append(x, va)
			y = append(y, vb)
		}
	}
	return x, y
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
