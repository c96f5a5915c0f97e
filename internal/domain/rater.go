package domain

import (
	"fmt"
	"math"
	"strings"
)

// QuestionType declares how rater values for a question are compared.
type QuestionType string

const (
	// QuestionCategorical compares values for exact equality.
	QuestionCategorical QuestionType = "categorical"
	// QuestionOrdinal compares values by bounded absolute interval distance.
	QuestionOrdinal QuestionType = "ordinal"
)

// ParseQuestionType converts a string into a QuestionType.
func ParseQuestionType(s string) (QuestionType, error) {
	switch qt := QuestionType(strings.ToLower(strings.TrimSpace(s))); qt {
	case QuestionCategorical, QuestionOrdinal:
		return qt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownQuestionType, s)
	}
}

// LikertQuestions lists the questions whose labels sit on an ordinal scale.
var LikertQuestions = []string{"overall-quality"}

// QuestionTypeFor returns ordinal for known Likert questions, categorical otherwise.
func QuestionTypeFor(question string) QuestionType {
	for _, q := range LikertQuestions {
		if q == question {
			return QuestionOrdinal
		}
	}
	return QuestionCategorical
}

// LabelValues maps annotation labels onto the shared [0, 1] scale.
// The table is a fixed policy decision and must not be re-derived.
var LabelValues = map[string]float64{
	"YES":             1,
	"NO":              0,
	"NO_WITH_CONTEXT": 0.5,
	"PARTIAL":         0.5,
	"0":               0.0 / 5,
	"1":               1.0 / 5,
	"2":               2.0 / 5,
	"3":               3.0 / 5,
	"4":               4.0 / 5,
	"5":               5.0 / 5,
}

// RejectLabels are labels raters use to abstain from answering a question.
var RejectLabels = []string{"DONT_KNOW", "NOT_APPLICABLE"}

// IsRejectLabel reports whether label is one of RejectLabels.
func IsRejectLabel(label string) bool {
	for _, r := range RejectLabels {
		if r == label {
			return true
		}
	}
	return false
}

// RaterResponse is one rater's mapped value for one item.
type RaterResponse struct {
	RaterID string  `json:"rater_id" validate:"required"`
	ItemID  string  `json:"item_id" validate:"required"`
	Value   float64 `json:"value" validate:"min=0,max=1"`
}

// Validate checks the response identifies a rater and item and has a unit-interval value.
func (r RaterResponse) Validate() error {
	if math.IsNaN(r.Value) {
		return fmt.Errorf("%w: value is NaN", ErrInvalidResponse)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

// RawAnnotation is one unmapped label exported from the annotation tool.
// Each line of an annotations file carries one rater's label for one
// question on one item.
type RawAnnotation struct {
	RaterID  string `json:"user"`
	ItemID   string `json:"q_id"`
	Question string `json:"question"`
	Label    string `json:"value"`
}
