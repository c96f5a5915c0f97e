package evaluator

import (
	"context"
	"sync"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// scriptedModel returns canned completions in order and records prompts.
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	out := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return out, nil
}

func newGeneration(answer string, passages ...string) domain.Generation {
	ps := make([]domain.Passage, len(passages))
	for i, p := range passages {
		ps[i] = domain.Passage{Text: p}
	}
	return domain.NewGeneration("gen-1", "What does the report say about sea levels?", "doc-1", &answer, ps)
}

func newGenerationWithoutResponse() domain.Generation {
	return domain.NewGeneration("gen-none", "What does the report say?", "doc-1", nil,
		[]domain.Passage{{Text: "passage"}})
}
