// Package agreement measures how consistently human raters label the same
// items. For one question it reports Krippendorff's alpha, the average
// pairwise agreement, the average pairwise Cohen's kappa, and diagnostics
// describing how imbalanced the response distribution is.
//
// Raters need not rate the same items: alpha only uses items with at least
// two ratings, and pairwise statistics only use the items both raters in a
// pair answered.
package agreement

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// DefaultScale is the span used to bound ordinal distances.
const DefaultScale = 5

// ErrNoResponses is returned when a question has no responses to analyse.
var ErrNoResponses = errors.New("no responses")

// Report is one row of the agreement table. Statistics that are undefined
// for the input are nil and encode as null.
type Report struct {
	Question                 string   `json:"question"`
	Count                    int      `json:"count"`
	AgreementAlpha           *float64 `json:"agreement_alpha"`
	AveragePairwiseAgreement *float64 `json:"average_pairwise_agreement"`
	AveragePairwiseKappa     *float64 `json:"average_pairwise_cohen_kappa"`
	Skew                     *float64 `json:"skew"`
	ImbalanceRatio           *float64 `json:"imbalance_ratio"`
	Entropy                  *float64 `json:"entropy"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithScale sets the span used by the ordinal distance |a-b|/scale.
func WithScale(scale float64) Option {
	return func(e *Engine) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.With("component", "agreement")
		}
	}
}

// Engine computes agreement reports. It is stateless and safe for
// concurrent use.
type Engine struct {
	scale  float64
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{scale: DefaultScale, logger: slog.Default().With("component", "agreement")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute reports agreement for all responses to one question.
//
// Categorical questions use binary distance for alpha and exact match for
// pairwise agreement, and report the average pairwise Cohen's kappa.
// Ordinal questions use interval distance |a-b|/scale and never report
// kappa, which ignores the ordering of values; a warning is logged instead.
// Statistics that are undefined for the input (for example pairwise
// agreement when no two raters share an item) are nil in the Report.
//
// An empty triples slice returns a Report carrying only the question and an
// error wrapping ErrNoResponses.
func (e *Engine) Compute(question string, triples []domain.RaterResponse, qtype domain.QuestionType) (Report, error) {
	if len(triples) == 0 {
		return Report{Question: question}, fmt.Errorf("question %s: %w", question, ErrNoResponses)
	}

	dist := e.distance(qtype)
	rep := Report{
		Question:                 question,
		Count:                    len(triples),
		AgreementAlpha:           finite(Alpha(triples, dist)),
		AveragePairwiseAgreement: finite(PairwiseAgreement(triples, e.agreement(qtype))),
	}
	if qtype == domain.QuestionOrdinal {
		e.logger.Warn("Cohen's kappa is not suitable for ordinal questions", "question", question)
	} else {
		rep.AveragePairwiseKappa = finite(PairwiseKappa(triples))
	}

	imb := MeasureImbalance(values(triples))
	rep.Skew = finite(imb.Skew)
	rep.ImbalanceRatio = finite(imb.Ratio)
	rep.Entropy = finite(imb.Entropy)
	return rep, nil
}

// Distance measures the disagreement between two values in [0, 1].
type Distance func(a, b float64) float64

// BinaryDistance is 0 for equal values and 1 otherwise.
func BinaryDistance(a, b float64) float64 {
	if a == b {
		return 0
	}
	return 1
}

// IntervalDistance returns |a-b|/scale.
func IntervalDistance(scale float64) Distance {
	return func(a, b float64) float64 { return math.Abs(a-b) / scale }
}

func (e *Engine) distance(qtype domain.QuestionType) Distance {
	if qtype == domain.QuestionOrdinal {
		return IntervalDistance(e.scale)
	}
	return BinaryDistance
}

// agreement is 1 minus the question's distance.
func (e *Engine) agreement(qtype domain.QuestionType) func(a, b float64) float64 {
	d := e.distance(qtype)
	return func(a, b float64) float64 { return 1 - d(a, b) }
}

// Alpha computes Krippendorff's alpha. Items rated fewer than twice are
// ignored. A single distinct value, or zero expected disagreement, yields 1.
// With no pairable ratings alpha is undefined and NaN is returned.
func Alpha(triples []domain.RaterResponse, dist Distance) float64 {
	distinct := make(map[float64]struct{})
	items := make(map[string]map[float64]int)
	var order []string
	for _, t := range triples {
		distinct[t.Value] = struct{}{}
		freqs, ok := items[t.ItemID]
		if !ok {
			freqs = make(map[float64]int)
			items[t.ItemID] = freqs
			order = append(order, t.ItemID)
		}
		freqs[t.Value]++
	}
	if len(distinct) == 1 {
		return 1
	}

	pooled := make(map[float64]int)
	var observed float64
	var n int
	for _, id := range order {
		freqs := items[id]
		count := total(freqs)
		if count < 2 {
			continue
		}
		for v, c := range freqs {
			pooled[v] += c
		}
		observed += disagreement(freqs, dist) * float64(count)
		n += count
	}
	if n == 0 {
		return math.NaN()
	}

	do := observed / float64(n)
	de := disagreement(pooled, dist)
	if de == 0 {
		return 1
	}
	return 1 - do/de
}

// disagreement is the mean distance over all ordered pairs of distinct
// ratings drawn from freqs.
func disagreement(freqs map[float64]int, dist Distance) float64 {
	n := total(freqs)
	if n < 2 {
		return 0
	}
	var pairs float64
	for a, na := range freqs {
		for b, nb := range freqs {
			pairs += float64(na*nb) * dist(a, b)
		}
	}
	return pairs / float64(n*(n-1))
}

func total(freqs map[float64]int) int {
	n := 0
	for _, c := range freqs {
		n += c
	}
	return n
}

// ratingsByRater holds each rater's first response per item, with raters
// in first-seen order.
type ratingsByRater struct {
	raters []string
	byItem map[string]map[string]float64
}

func groupByRater(triples []domain.RaterResponse) ratingsByRater {
	g := ratingsByRater{byItem: make(map[string]map[string]float64)}
	for _, t := range triples {
		items, ok := g.byItem[t.RaterID]
		if !ok {
			items = make(map[string]float64)
			g.byItem[t.RaterID] = items
			g.raters = append(g.raters, t.RaterID)
		}
		if _, seen := items[t.ItemID]; !seen {
			items[t.ItemID] = t.Value
		}
	}
	return g
}

// sharedItems returns the items rated by both raters, sorted.
func (g ratingsByRater) sharedItems(r1, r2 string) []string {
	var shared []string
	for item := range g.byItem[r1] {
		if _, ok := g.byItem[r2][item]; ok {
			shared = append(shared, item)
		}
	}
	slices.Sort(shared)
	return shared
}

// forEachPair calls fn for every rater pair that shares at least one item
// and returns the mean of the results. It returns NaN when no pair
// qualifies.
func (g ratingsByRater) forEachPair(fn func(a, b []float64) float64) float64 {
	var results []float64
	for i := 0; i < len(g.raters); i++ {
		for j := i + 1; j < len(g.raters); j++ {
			r1, r2 := g.raters[i], g.raters[j]
			shared := g.sharedItems(r1, r2)
			if len(shared) == 0 {
				continue
			}
			a := make([]float64, len(shared))
			b := make([]float64, len(shared))
			for k, item := range shared {
				a[k] = g.byItem[r1][item]
				b[k] = g.byItem[r2][item]
			}
			results = append(results, fn(a, b))
		}
	}
	if len(results) == 0 {
		return math.NaN()
	}
	return stat.Mean(results, nil)
}

// PairwiseAgreement averages, over rater pairs, the mean item-wise
// agreement on the items each pair shares. agree must return 1 for identical
// values. The Engine passes exact match for categorical questions and
// 1 - |a-b|/scale for ordinal ones: an agreement, not the interval distance
// itself, so identical ordinal responses score 1 just as categorical ones do.
// A result of NaN means no pair of raters shares an item.
func PairwiseAgreement(triples []domain.RaterResponse, agree func(a, b float64) float64) float64 {
	return groupByRater(triples).forEachPair(func(a, b []float64) float64 {
		var sum float64
		for i := range a {
			sum += agree(a[i], b[i])
		}
		return sum / float64(len(a))
	})
}

// PairwiseKappa averages Cohen's kappa over rater pairs, each computed on
// the items that pair shares. A pair whose joint responses hold a single
// value has kappa 1 by convention.
func PairwiseKappa(triples []domain.RaterResponse) float64 {
	return groupByRater(triples).forEachPair(func(a, b []float64) float64 {
		return CohenKappa(labels(a), labels(b))
	})
}

// CohenKappa computes Cohen's kappa for two equally long label sequences.
func CohenKappa(a, b []string) float64 {
	n := float64(len(a))
	if n == 0 {
		return math.NaN()
	}
	rows := make(map[string]float64)
	cols := make(map[string]float64)
	var agree float64
	for i := range a {
		rows[a[i]]++
		cols[b[i]]++
		if a[i] == b[i] {
			agree++
		}
	}
	if len(rows) == 1 && len(cols) == 1 && a[0] == b[0] {
		return 1
	}

	po := agree / n
	var pe float64
	for label, r := range rows {
		pe += (r / n) * (cols[label] / n)
	}
	if pe == 1 {
		return 1
	}
	return (po - pe) / (1 - pe)
}

func labels(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}

// Imbalance describes the distribution of observed response values.
type Imbalance struct {
	// Skew is the population (biased) skewness; 0 for constant data.
	Skew float64
	// Ratio is the most frequent value's probability over the least frequent's.
	Ratio float64
	// Entropy is the Shannon entropy of the value distribution in nats.
	Entropy float64
}

// MeasureImbalance computes imbalance diagnostics. With no observations
// every field is NaN.
func MeasureImbalance(observations []float64) Imbalance {
	if len(observations) == 0 {
		nan := math.NaN()
		return Imbalance{Skew: nan, Ratio: nan, Entropy: nan}
	}

	counts := make(map[float64]int)
	var keys []float64
	for _, v := range observations {
		if _, ok := counts[v]; !ok {
			keys = append(keys, v)
		}
		counts[v]++
	}
	slices.Sort(keys)
	probs := make([]float64, len(keys))
	n := float64(len(observations))
	for i, k := range keys {
		probs[i] = float64(counts[k]) / n
	}

	imb := Imbalance{
		Ratio:   slices.Max(probs) / slices.Min(probs),
		Entropy: stat.Entropy(probs),
	}
	if m2 := stat.Moment(2, observations, nil); m2 > 0 {
		imb.Skew = stat.Moment(3, observations, nil) / math.Pow(m2, 1.5)
	}
	return imb
}

func values(triples []domain.RaterResponse) []float64 {
	out := make([]float64, len(triples))
	for i, t := range triples {
		out[i] = t.Value
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
