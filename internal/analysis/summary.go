package analysis

import (
	"slices"
	"strings"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// Summary aggregates one evaluator's records on one axis.
type Summary struct {
	Axis      string  `json:"axis"`
	Evaluator string  `json:"name"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	// PassRate is the share of records marked successful.
	PassRate float64 `json:"pass_rate"`
}

// Summarize groups records by axis and evaluator, sorted by axis then name.
func Summarize(records []domain.ScoreRecord) []Summary {
	type key struct{ axis, name string }
	acc := make(map[key]*Summary)
	for _, r := range records {
		k := key{r.Axis, r.EvaluatorName}
		s, ok := acc[k]
		if !ok {
			s = &Summary{Axis: r.Axis, Evaluator: r.EvaluatorName}
			acc[k] = s
		}
		s.Count++
		s.Mean += r.Value
		if r.Success {
			s.PassRate++
		}
	}

	out := make([]Summary, 0, len(acc))
	for _, s := range acc {
		s.Mean /= float64(s.Count)
		s.PassRate /= float64(s.Count)
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := strings.Compare(a.Axis, b.Axis); c != 0 {
			return c
		}
		return strings.Compare(a.Evaluator, b.Evaluator)
	})
	return out
}
