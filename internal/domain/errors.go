package domain

import "errors"

// ErrInvalidGeneration indicates that a generation could not be decoded or is missing required data.
var ErrInvalidGeneration = errors.New("invalid generation")

// ErrInvalidResponse indicates that a rater response contains invalid data.
var ErrInvalidResponse = errors.New("invalid rater response")

// ErrUnknownQuestionType indicates a question type other than categorical or ordinal.
var ErrUnknownQuestionType = errors.New("unknown question type")
