package llm

import (
	"fmt"

	"github.com/claimgate/claimgate/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderMock      = "mock"
)

// NewClient creates a chat client based on the provider name. The openai
// provider also covers OpenAI-compatible local servers (LM Studio,
// ollama) via baseURL; the other providers ignore baseURL. An empty
// model falls back to each provider's default. Returns an error if the
// provider is unknown or the API key is empty (except for mock).
func NewClient(provider, apiKey, baseURL, model string) (domain.ChatClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the openai provider")
		}
		return NewOpenAIClient(apiKey, baseURL, model), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the anthropic provider")
		}
		return NewAnthropicClient(apiKey, model), nil

	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the gemini provider")
		}
		return NewGeminiClient(apiKey, model), nil

	case ProviderCerebras:
		if apiKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the cerebras provider")
		}
		return NewCerebrasClient(apiKey, model), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, anthropic, gemini, cerebras, mock)", provider)
	}
}
