package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/claimgate/claimgate/internal/domain"
)

const (
	cerebrasAPIURL = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasModel  = "llama-3.3-70b"
)

// CerebrasClient talks to the Cerebras inference API, which serves an
// OpenAI-compatible chat completion surface.
type CerebrasClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewCerebrasClient(apiKey, model string) *CerebrasClient {
	if model == "" {
		model = cerebrasModel
	}
	return &CerebrasClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type cerebrasMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cerebrasRequest struct {
	Model       string            `json:"model"`
	Messages    []cerebrasMessage `json:"messages"`
	Temperature float32           `json:"temperature"`
}

type cerebrasResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *CerebrasClient) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	converted := make([]cerebrasMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == domain.RoleTool {
			role = domain.RoleUser
		}
		converted = append(converted, cerebrasMessage{Role: role, Content: m.Content})
	}

	body, err := json.Marshal(cerebrasRequest{
		Model:       c.model,
		Messages:    converted,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal cerebras request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cerebrasAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create cerebras request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cerebras request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read cerebras response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cerebras API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result cerebrasResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal cerebras response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("cerebras API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("cerebras API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
