package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/llm"
)

const lynxRecordName = "patronus_lynx"

// Lynx verdicts.
const (
	verdictPass = "PASS"
	verdictFail = "FAIL"
)

// Lynx asks a hallucination detection model for a PASS/FAIL faithfulness
// verdict with reasoning, returned as JSON.
type Lynx struct {
	model  llm.Completer
	logger *slog.Logger
}

// NewLynx requires a judge model.
func NewLynx(deps Dependencies) (Evaluator, error) {
	model, err := deps.judgeModel()
	if err != nil {
		return nil, err
	}
	return &Lynx{model: model, logger: deps.logger(NamePatronusLynx)}, nil
}

// Name implements Evaluator.
func (l *Lynx) Name() string { return NamePatronusLynx }

// Axis implements Evaluator.
func (l *Lynx) Axis() string { return AxisFaithfulness }

// Evaluate implements Evaluator.
func (l *Lynx) Evaluate(ctx context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
	if !gen.HasResponse {
		return nil, nil
	}
	prompt, err := renderPrompt(tmplLynx, promptData{
		Query:   gen.Query,
		Context: gen.PassagesString(),
		Answer:  gen.Answer(),
	})
	if err != nil {
		return nil, err
	}
	raw, err := l.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s judge call: %w", lynxRecordName, err)
	}

	verdict, err := ParseLynxVerdict(raw)
	if err != nil {
		l.logger.WarnContext(ctx, "unparseable lynx verdict",
			"generation_id", gen.ID, "error", err)
		return nil, nil
	}

	rec, err := domain.NewScoreRecord(gen.ID, AxisFaithfulness, lynxRecordName, verdict.Score,
		verdict.Score == 1, verdict.Reasoning)
	if err != nil {
		return nil, err
	}
	return []domain.ScoreRecord{rec}, nil
}

// LynxVerdict is the decoded model output.
type LynxVerdict struct {
	Score     float64
	Reasoning []string
}

// ParseLynxVerdict decodes {"REASONING": [..] | "..", "SCORE": "PASS" | "FAIL"},
// tolerating a surrounding markdown code fence.
func ParseLynxVerdict(raw string) (LynxVerdict, error) {
	var out struct {
		Reasoning json.RawMessage `json:"REASONING"`
		Score     string          `json:"SCORE"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return LynxVerdict{}, fmt.Errorf("decoding verdict: %w", err)
	}

	var v LynxVerdict
	switch strings.ToUpper(strings.TrimSpace(out.Score)) {
	case verdictPass:
		v.Score = 1
	case verdictFail:
		v.Score = 0
	default:
		return LynxVerdict{}, fmt.Errorf("unexpected SCORE %q", out.Score)
	}

	if len(out.Reasoning) > 0 {
		var list []string
		if err := json.Unmarshal(out.Reasoning, &list); err == nil {
			v.Reasoning = list
		} else {
			var s string
			if err := json.Unmarshal(out.Reasoning, &s); err == nil && s != "" {
				v.Reasoning = []string{s}
			}
		}
	}
	return v, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
