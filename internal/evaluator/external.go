package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ahrav/go-ragscore/internal/domain"
)

const (
	vectaraRecordName = "vectara"
	vectaraThreshold  = 0.5

	// maxErrorBody bounds how much of a failed response is kept in the error.
	maxErrorBody = 512
)

// ErrExternalService indicates the scoring service answered with a non-2xx status.
var ErrExternalService = errors.New("external scoring service error")

// Vectara posts the passages and answer to a hallucination scoring service
// and records the returned consistency score.
//
// A 2xx response without a "score" field is an error rather than a score of
// 0: a malformed reply says nothing about the answer, so the generation is
// left unscored on this axis instead of being marked as hallucinated.
type Vectara struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewVectara requires deps.ExternalURL.
func NewVectara(deps Dependencies) (Evaluator, error) {
	if deps.ExternalURL == "" {
		return nil, fmt.Errorf("%w: external scoring service URL", ErrMissingDependency)
	}
	return &Vectara{
		url:    deps.ExternalURL,
		client: deps.httpClient(),
		logger: deps.logger(NameVectara),
	}, nil
}

// Name implements Evaluator.
func (v *Vectara) Name() string { return NameVectara }

// Axis implements Evaluator.
func (v *Vectara) Axis() string { return AxisFaithfulness }

type vectaraRequest struct {
	Context  string `json:"context"`
	Response string `json:"response"`
}

type vectaraResponse struct {
	Score *float64 `json:"score"`
}

// Evaluate implements Evaluator.
func (v *Vectara) Evaluate(ctx context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
	if !gen.HasResponse {
		return nil, nil
	}
	score, err := v.score(ctx, gen.PassagesString(), gen.Answer())
	if err != nil {
		return nil, err
	}
	value := domain.Clamp01(score)
	if value != score {
		v.logger.DebugContext(ctx, "scoring service value clamped", "generation_id", gen.ID, "raw", score)
	}
	rec, err := domain.NewScoreRecord(gen.ID, AxisFaithfulness, vectaraRecordName, value, value >= vectaraThreshold, nil)
	if err != nil {
		return nil, err
	}
	return []domain.ScoreRecord{rec}, nil
}

func (v *Vectara) score(ctx context.Context, passages, answer string) (float64, error) {
	body, err := json.Marshal(vectaraRequest{Context: passages, Response: answer})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring service request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, fmt.Errorf("%w: status %d: %s", ErrExternalService, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out vectaraResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode scoring response: %w", err)
	}
	if out.Score == nil {
		return 0, fmt.Errorf("%w: response has no score", ErrExternalService)
	}
	return *out.Score, nil
}
