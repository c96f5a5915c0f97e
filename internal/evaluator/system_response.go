package evaluator

import (
	"context"
	"strings"

	"github.com/ahrav/go-ragscore/internal/domain"
)

const systemResponseRecordName = "substring_match"

// Scores assigned by SystemResponse.
const (
	systemRefused          = 0.0
	systemRefusedContinued = 0.5
	systemResponded        = 1.0
)

var (
	defaultRefusalPhrases = []string{"I cannot provide an answer"}
	negationTerms         = []string{"but", "however"}
)

// SystemResponse detects whether the system declined to answer. A refusal
// phrase scores 0, or 0.5 when followed up with a negation connective
// ("but", "however"); any other answer scores 1. It never returns an error.
type SystemResponse struct {
	phrases []string
}

// NewSystemResponse returns the evaluator with the default refusal phrases.
func NewSystemResponse(phrases ...string) *SystemResponse {
	if len(phrases) == 0 {
		phrases = defaultRefusalPhrases
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &SystemResponse{phrases: lowered}
}

// Name implements Evaluator.
func (s *SystemResponse) Name() string { return NameSystemResponse }

// Axis implements Evaluator.
func (s *SystemResponse) Axis() string { return AxisSystemResponse }

// Evaluate implements Evaluator.
func (s *SystemResponse) Evaluate(_ context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
	value := systemRefused
	if gen.HasResponse {
		value = s.Score(gen.AnswerText)
	}
	rec, err := domain.NewScoreRecord(gen.ID, AxisSystemResponse, systemResponseRecordName, value,
		value == systemResponded, nil)
	if err != nil {
		return nil, err
	}
	return []domain.ScoreRecord{rec}, nil
}

// Score classifies a single answer text.
func (s *SystemResponse) Score(answer string) float64 {
	text := strings.ToLower(answer)
	if !containsAny(text, s.phrases) {
		return systemResponded
	}
	if containsAny(text, negationTerms) {
		return systemRefusedContinued
	}
	return systemRefused
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
