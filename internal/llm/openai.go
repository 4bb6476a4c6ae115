package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/claimgate/claimgate/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
// Local servers reject fancier request fields, so the payload stays
// minimal: no tools, no response_format.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "llama-3.2-1b-instruct"
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.1,
		timeout:     60 * time.Second,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: c.temperature,
	}
	for _, m := range messages {
		role := m.Role
		if role == domain.RoleTool {
			// the tool role requires native tool-call plumbing; results
			// travel as user turns instead
			role = domain.RoleUser
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
