package llm

import (
	"context"
	"sync"
)

// Mock implements Collaborator for testing. Generate pops responses from a
// scripted queue; Rank returns a fixed order. Both honor an injected error.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	RankOrder []int
	Err       error
	RankErr   error

	// Prompts records every Generate prompt for assertions.
	Prompts []string
}

// NewMock creates an empty mock collaborator.
func NewMock(responses ...string) *Mock {
	return &Mock{Responses: responses}
}

// Generate implements Collaborator.
func (m *Mock) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "mock response", nil
	}
	next := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return next, nil
}

// Rank implements Collaborator.
func (m *Mock) Rank(ctx context.Context, instruction string, candidates []string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RankErr != nil {
		return nil, m.RankErr
	}
	if m.RankOrder != nil {
		return m.RankOrder, nil
	}
	order := make([]int, len(candidates))
	for i := range candidates {
		order[i] = i
	}
	return order, nil
}

// GenerateCalls returns how many times Generate ran.
func (m *Mock) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
