package llm

import (
	"context"

	"github.com/claimgate/claimgate/internal/domain"
)

// MockClient is a configurable chat client for testing. Queue responses
// to script a conversation; once the queue is drained DefaultResponse is
// returned.
type MockClient struct {
	Responses       []string
	DefaultResponse string
	Err             error

	// Call tracking for assertions
	Calls [][]domain.Message
}

func NewMockClient() *MockClient {
	return &MockClient{DefaultResponse: `{"final": {"answer": "mock answer"}}`}
}

func (c *MockClient) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	copied := make([]domain.Message, len(messages))
	copy(copied, messages)
	c.Calls = append(c.Calls, copied)

	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp, nil
	}
	return c.DefaultResponse, nil
}

// Reset clears recorded calls and queued responses and restores the
// default response.
func (c *MockClient) Reset() {
	c.Responses = nil
	c.Err = nil
	c.Calls = nil
	c.DefaultResponse = `{"final": {"answer": "mock answer"}}`
}
