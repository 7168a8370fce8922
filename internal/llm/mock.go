package llm

import (
	"context"

	"chatbot-api/internal/domain"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error

	LastMessage string
	LastHistory []domain.Message
	Calls       int
}

func (m *MockClient) Chat(_ context.Context, message string, history []domain.Message) (string, error) {
	m.Calls++
	m.LastMessage = message
	m.LastHistory = history
	return m.Response, m.Err
}
