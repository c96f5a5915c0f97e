package agreement

import (
	"errors"
	"slices"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/human"
)

// rejectValue encodes an abstention label as its own category when
// TableOptions.IncludeDontKnow is set. It lies outside the mapped [0, 1]
// scale on purpose so it can never collide with a real label, which means
// triples carrying it do not pass domain.RaterResponse validation; they are
// only ever consumed by this package.
const rejectValue = -1

// TableOptions selects the annotations a table is computed over.
type TableOptions struct {
	// ExcludeRaters drops every annotation from these raters.
	ExcludeRaters []string
	// IncludeDontKnow counts abstention labels (DONT_KNOW, NOT_APPLICABLE)
	// as a category of their own on categorical questions. By default they
	// have no mapped value and are dropped like any other unmapped label.
	IncludeDontKnow bool
	// Ordinal forces these questions to be treated as ordinal in addition
	// to domain.LikertQuestions.
	Ordinal []string
}

// Filter drops the annotations of excluded raters.
func (o TableOptions) Filter(rows []domain.RawAnnotation) []domain.RawAnnotation {
	return human.FilterRaters(rows, o.ExcludeRaters)
}

// Triples maps the annotations of one question under these options.
func (o TableOptions) Triples(rows []domain.RawAnnotation, question string) []domain.RaterResponse {
	return Triples(rows, question, o.QuestionType(question), o.IncludeDontKnow)
}

// QuestionType resolves the type of question under these options.
func (o TableOptions) QuestionType(question string) domain.QuestionType {
	if slices.Contains(o.Ordinal, question) {
		return domain.QuestionOrdinal
	}
	return domain.QuestionTypeFor(question)
}

// Table computes one report per question, in order. Running it twice with
// different options gives the before/after comparison for a filter. A
// question left with no responses is reported with a zero count.
func (e *Engine) Table(rows []domain.RawAnnotation, questions []string, opts TableOptions) ([]Report, error) {
	rows = opts.Filter(rows)

	reports := make([]Report, 0, len(questions))
	for _, q := range questions {
		qtype := opts.QuestionType(q)
		rep, err := e.Compute(q, Triples(rows, q, qtype, opts.IncludeDontKnow), qtype)
		if err != nil && !errors.Is(err, ErrNoResponses) {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Triples maps the annotations of one question onto rater/item/value
// triples through domain.LabelValues, dropping unmapped labels. With
// withRejects set, abstention labels on categorical questions are kept as
// rejectValue instead; ordinal questions have no position for them and
// always drop them.
func Triples(
	rows []domain.RawAnnotation,
	question string,
	qtype domain.QuestionType,
	withRejects bool,
) []domain.RaterResponse {
	keepRejects := withRejects && qtype == domain.QuestionCategorical
	var out []domain.RaterResponse
	for _, r := range rows {
		if r.Question != question {
			continue
		}
		v, ok := domain.LabelValues[r.Label]
		if !ok {
			if !keepRejects || !domain.IsRejectLabel(r.Label) {
				continue
			}
			v = rejectValue
		}
		out = append(out, domain.RaterResponse{RaterID: r.RaterID, ItemID: r.ItemID, Value: v})
	}
	return out
}
