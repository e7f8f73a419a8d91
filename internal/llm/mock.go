package llm

import (
	"context"

	"botforge/internal/domain"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Completion Completion
	Err        error

	Embedding []float32
	EmbedErr  error

	LastSystem string
	LastTurns  []domain.ContextTurn
}

func (m *MockClient) Generate(_ context.Context, system string, turns []domain.ContextTurn) (Completion, error) {
	m.LastSystem = system
	m.LastTurns = turns
	return m.Completion, m.Err
}

func (m *MockClient) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.Embedding, m.EmbedErr
}

var _ LLMClient = (*MockClient)(nil)
