package providers

import (
	"context"

	"aicore/internal/models"
)

const openAIDefaultBaseURL = "https://api.openai.com"

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs
type OpenAIProvider struct {
	backend *httpBackend
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(config ProviderConfig) (Provider, error) {
	auth := NewSimpleAPIKeyAuth(config.APIKey, "Authorization", "Bearer ")

	return &OpenAIProvider{
		backend: newHTTPBackend(config, openAIDefaultBaseURL, auth, nil),
	}, nil
}

// Type returns the provider type
func (p *OpenAIProvider) Type() models.ProviderType {
	return models.ProviderTypeOpenAI
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends a chat completion request to OpenAI
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := openAIRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var out openAIResponse
	status, latency, err := p.backend.postJSON(ctx, "/v1/chat/completions", payload, &out)
	if err != nil {
		return nil, err
	}

	if len(out.Choices) == 0 {
		return nil, badResponse(status, "provider response has no choices")
	}

	return &ChatResponse{
		Content: out.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
		StatusCode:      status,
		ProviderLatency: latency,
	}, nil
}

// Close cleans up resources
func (p *OpenAIProvider) Close() error {
	p.backend.close()
	return nil
}
