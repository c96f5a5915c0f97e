// Package human turns rater annotations into score records.
//
// Raw labels are first mapped onto the shared [0, 1] scale through
// domain.LabelValues; rows whose label has no mapping are dropped and
// counted. The remaining responses are grouped by item and collapsed with an
// aggregation strategy into one "human" record per item.
package human

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/observability"
)

// EvaluatorName is the name carried by every human score record.
const EvaluatorName = "human"

// Strategy selects how a question group is collapsed.
type Strategy string

// Supported strategies.
const (
	StrategyAverage  Strategy = "average"
	StrategyComplete Strategy = "complete"
	StrategyMajority Strategy = "majority"
)

// ErrUnknownStrategy indicates an unsupported strategy name.
var ErrUnknownStrategy = errors.New("unknown aggregation strategy")

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(s)); st {
	case StrategyAverage, StrategyComplete, StrategyMajority:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// DropStats counts the rows of one question that did not survive mapping.
type DropStats struct {
	Question string `json:"question"`
	Total    int    `json:"total"`
	Kept     int    `json:"kept"`
	// Rejected rows carried an abstention label such as DONT_KNOW.
	Rejected int `json:"rejected"`
	// Unmapped rows carried any other label missing from the label table.
	Unmapped int `json:"unmapped"`
}

// Dropped is the total number of rows removed.
func (s DropStats) Dropped() int { return s.Rejected + s.Unmapped }

// MapLabels selects the rows for question and maps their labels to values.
func MapLabels(rows []domain.RawAnnotation, question string) ([]domain.RaterResponse, DropStats) {
	stats := DropStats{Question: question}
	var out []domain.RaterResponse
	for _, row := range rows {
		if row.Question != question {
			continue
		}
		stats.Total++
		v, ok := domain.LabelValues[row.Label]
		if !ok {
			if domain.IsRejectLabel(row.Label) {
				stats.Rejected++
			} else {
				stats.Unmapped++
			}
			continue
		}
		out = append(out, domain.RaterResponse{RaterID: row.RaterID, ItemID: row.ItemID, Value: v})
	}
	stats.Kept = len(out)
	return out, stats
}

// Aggregate collapses one question group. ok is false when MAJORITY finds
// no value held by strictly more than half the group. A single response is
// returned as is under every strategy.
func Aggregate(values []float64, strategy Strategy) (value float64, ok bool, err error) {
	if len(values) == 0 {
		return 0, false, nil
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return 0, false, err
	}
	if len(values) == 1 {
		return values[0], true, nil
	}

	switch strategy {
	case StrategyAverage:
		return stat.Mean(values, nil), true, nil
	case StrategyComplete:
		for _, v := range values {
			if v == 0 {
				return 0, true, nil
			}
		}
		return 1, true, nil
	default:
		return majority(values)
	}
}

// majority returns the modal value when its count exceeds half the group.
// Among equally frequent values the first seen is considered.
func majority(values []float64) (float64, bool, error) {
	counts := make(map[float64]int, len(values))
	var mode float64
	best := 0
	for _, v := range values {
		counts[v]++
		if counts[v] > best {
			best = counts[v]
			mode = v
		}
	}
	if 2*best > len(values) {
		return mode, true, nil
	}
	return 0, false, nil
}

// ToScores groups responses by item and aggregates each group into a record
// with axis question. Items are emitted in sorted id order; abstaining
// groups produce no record.
func ToScores(responses []domain.RaterResponse, question string, strategy Strategy) ([]domain.ScoreRecord, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	groups := make(map[string][]float64)
	for _, r := range responses {
		groups[r.ItemID] = append(groups[r.ItemID], r.Value)
	}
	items := make([]string, 0, len(groups))
	for id := range groups {
		items = append(items, id)
	}
	slices.Sort(items)

	var out []domain.ScoreRecord
	for _, id := range items {
		v, ok, err := Aggregate(groups[id], strategy)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec, err := domain.NewScoreRecord(id, question, EvaluatorName, v, v > 0.5, nil)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// FilterRaters removes rows from the excluded raters.
func FilterRaters(rows []domain.RawAnnotation, excluded []string) []domain.RawAnnotation {
	if len(excluded) == 0 {
		return rows
	}
	return slices.DeleteFunc(slices.Clone(rows), func(r domain.RawAnnotation) bool {
		return slices.Contains(excluded, r.RaterID)
	})
}

// FilterLabels removes rows carrying any of labels, e.g. domain.RejectLabels.
func FilterLabels(rows []domain.RawAnnotation, labels []string) []domain.RawAnnotation {
	if len(labels) == 0 {
		return rows
	}
	return slices.DeleteFunc(slices.Clone(rows), func(r domain.RawAnnotation) bool {
		return slices.Contains(labels, r.Label)
	})
}

// Aggregator runs the mapping and aggregation steps for several questions,
// logging and counting dropped rows.
type Aggregator struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator. Both arguments may be nil.
func NewAggregator(logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With("component", "human_aggregator"), metrics: metrics}
}

// Scores produces records for each question in order, with the drop
// statistics of each.
func (a *Aggregator) Scores(
	rows []domain.RawAnnotation,
	questions []string,
	strategy Strategy,
) ([]domain.ScoreRecord, []DropStats, error) {
	var (
		out   []domain.ScoreRecord
		stats []DropStats
	)
	for _, q := range questions {
		responses, st := MapLabels(rows, q)
		stats = append(stats, st)
		if st.Dropped() > 0 {
			a.logger.Warn("dropped annotations without a label mapping",
				"question", q,
				"total", st.Total,
				"rejected", st.Rejected,
				"unmapped", st.Unmapped)
			a.metrics.RecordDroppedRows(q, st.Dropped())
		}

		recs, err := ToScores(responses, q, strategy)
		if err != nil {
			return nil, nil, fmt.Errorf("question %s: %w", q, err)
		}
		out = append(out, recs...)
	}
	return out, stats, nil
}
