package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/llm"
)

const (
	gEvalRecordName = "g_eval"

	minRating = 1
	maxRating = 5

	// Success thresholds on the normalized score.
	faithfulnessThreshold = 0.8
	policyThreshold       = 0.8
	defaultThreshold      = 0.5

	// ruleSeparator splits a markdown bullet list policy into rules.
	ruleSeparator = "\n- "
)

var (
	numericRE  = regexp.MustCompile(`^\d+$`)
	digitRunRE = regexp.MustCompile(`\d+`)
)

// ParseOutcome says how a judge rating was obtained.
type ParseOutcome int

const (
	// ParseFailed means no usable rating was found.
	ParseFailed ParseOutcome = iota
	// ParseOK means the trimmed output was a bare integer.
	ParseOK
	// ParseFallback means the rating was taken from the first digit run.
	ParseFallback
)

func (o ParseOutcome) String() string {
	switch o {
	case ParseOK:
		return "ok"
	case ParseFallback:
		return "fallback"
	default:
		return "failed"
	}
}

// ParseResult is the outcome of parsing judge output.
type ParseResult struct {
	Rating  int
	Outcome ParseOutcome
}

// OK reports whether a rating was obtained.
func (r ParseResult) OK() bool { return r.Outcome != ParseFailed }

// ParseRating extracts a 1..5 rating from raw judge output. Purely numeric
// text parses directly; otherwise the first run of digits is used. Ratings
// outside 1..5 are treated as unparseable.
func ParseRating(raw string) ParseResult {
	text := strings.TrimSpace(raw)
	outcome := ParseOK
	if !numericRE.MatchString(text) {
		text = digitRunRE.FindString(text)
		outcome = ParseFallback
	}
	if text == "" {
		return ParseResult{Outcome: ParseFailed}
	}
	rating, err := strconv.Atoi(text)
	if err != nil || rating < minRating || rating > maxRating {
		return ParseResult{Outcome: ParseFailed}
	}
	return ParseResult{Rating: rating, Outcome: outcome}
}

// NormalizeRating maps a 1..5 rating onto [0, 1].
func NormalizeRating(rating int) float64 {
	return float64(rating-minRating) / float64(maxRating-minRating)
}

// GEval asks the judge model for a 1..5 rating on one criterion and records
// the normalized score.
type GEval struct {
	name      string
	axis      string
	template  string
	threshold float64
	policy    string
	model     llm.Completer
	logger    *slog.Logger
}

// NewGEvalFaithfulness rates whether the answer is supported by the passages.
func NewGEvalFaithfulness(deps Dependencies) (Evaluator, error) {
	return newGEval(deps, NameGEvalFaithfulness, AxisFaithfulnessGemini, tmplFaithfulness, faithfulnessThreshold)
}

// NewGEvalPolicy rates compliance with the whole generation policy.
func NewGEvalPolicy(deps Dependencies) (Evaluator, error) {
	if strings.TrimSpace(deps.PolicyText) == "" {
		return nil, fmt.Errorf("%w: policy text", ErrMissingDependency)
	}
	return newGEval(deps, NameGEvalPolicy, AxisPolicy, tmplPolicy, policyThreshold)
}

// NewCoherence rates how well the answer is organized.
func NewCoherence(deps Dependencies) (Evaluator, error) {
	return newGEval(deps, NameCoherence, AxisCoherence, tmplCoherence, defaultThreshold)
}

func newGEval(deps Dependencies, name, axis, tmpl string, threshold float64) (Evaluator, error) {
	model, err := deps.judgeModel()
	if err != nil {
		return nil, err
	}
	return &GEval{
		name:      name,
		axis:      axis,
		template:  tmpl,
		threshold: threshold,
		policy:    deps.PolicyText,
		model:     model,
		logger:    deps.logger(name),
	}, nil
}

// Name implements Evaluator.
func (g *GEval) Name() string { return g.name }

// Axis implements Evaluator.
func (g *GEval) Axis() string { return g.axis }

// Evaluate implements Evaluator.
func (g *GEval) Evaluate(ctx context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
	if !gen.HasResponse {
		return nil, nil
	}
	prompt, err := renderPrompt(g.template, promptData{
		Query:   gen.Query,
		Context: gen.PassagesString(),
		Answer:  gen.Answer(),
		Policy:  g.policy,
	})
	if err != nil {
		return nil, err
	}
	rec, ok, err := judge(ctx, g.model, g.logger, gen.ID, prompt, g.axis, gEvalRecordName, g.threshold)
	if err != nil || !ok {
		return nil, err
	}
	return []domain.ScoreRecord{rec}, nil
}

// RuleLevelPolicy rates each rule of a bullet list policy separately,
// emitting one record per rule named g_eval-rule-<i>.
type RuleLevelPolicy struct {
	rules  []string
	model  llm.Completer
	logger *slog.Logger
}

// NewRuleLevelPolicy splits deps.PolicyText into rules. The text before the
// first bullet is a preamble and is not scored.
func NewRuleLevelPolicy(deps Dependencies) (Evaluator, error) {
	model, err := deps.judgeModel()
	if err != nil {
		return nil, err
	}
	rules := SplitPolicyRules(deps.PolicyText)
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: policy text with at least one rule", ErrMissingDependency)
	}
	return &RuleLevelPolicy{
		rules:  rules,
		model:  model,
		logger: deps.logger(NameGEvalRuleLevelPolicy),
	}, nil
}

// SplitPolicyRules returns the bullet items of a policy, dropping the preamble.
func SplitPolicyRules(policy string) []string {
	parts := strings.Split(policy, ruleSeparator)
	if len(parts) < 2 {
		return nil
	}
	return parts[1:]
}

// Name implements Evaluator.
func (r *RuleLevelPolicy) Name() string { return NameGEvalRuleLevelPolicy }

// Axis implements Evaluator.
func (r *RuleLevelPolicy) Axis() string { return AxisPolicy }

// Evaluate implements Evaluator. Rules whose rating cannot be parsed are
// skipped; a model error aborts the whole generation.
func (r *RuleLevelPolicy) Evaluate(ctx context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
	if !gen.HasResponse {
		return nil, nil
	}
	var out []domain.ScoreRecord
	for i, rule := range r.rules {
		prompt, err := renderPrompt(tmplRulePolicy, promptData{
			Query:   gen.Query,
			Context: gen.PassagesString(),
			Answer:  gen.AnswerText,
			Rule:    rule,
		})
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s-rule-%d", gEvalRecordName, i)
		rec, ok, err := judge(ctx, r.model, r.logger, gen.ID, prompt, AxisPolicy, name, policyThreshold)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// judge sends prompt to the model and turns the parsed rating into a record.
// ok is false when the output held no usable rating.
func judge(
	ctx context.Context,
	model llm.Completer,
	logger *slog.Logger,
	generationID, prompt, axis, recordName string,
	threshold float64,
) (domain.ScoreRecord, bool, error) {
	raw, err := model.Complete(ctx, prompt)
	if err != nil {
		return domain.ScoreRecord{}, false, fmt.Errorf("%s judge call: %w", recordName, err)
	}

	res := ParseRating(raw)
	switch res.Outcome {
	case ParseFailed:
		logger.WarnContext(ctx, "unparseable judge rating",
			"generation_id", generationID, "record", recordName, "raw", raw)
		return domain.ScoreRecord{}, false, nil
	case ParseFallback:
		logger.DebugContext(ctx, "judge rating recovered from free text",
			"generation_id", generationID, "record", recordName, "rating", res.Rating)
	}

	value := NormalizeRating(res.Rating)
	rec, err := domain.NewScoreRecord(generationID, axis, recordName, value, value >= threshold, nil)
	if err != nil {
		return domain.ScoreRecord{}, false, err
	}
	return rec, true, nil
}
