package providers

import (
	"context"
	"strings"

	"aicore/internal/models"
)

const (
	claudeDefaultBaseURL = "https://api.anthropic.com"
	claudeAPIVersion     = "2023-06-01"

	// Claude requires max_tokens on every request
	claudeFallbackMaxTokens = 1024
)

// ClaudeProvider implements the Provider interface for the Anthropic Messages API
type ClaudeProvider struct {
	backend *httpBackend
}

// NewClaudeProvider creates a new Claude provider instance
func NewClaudeProvider(config ProviderConfig) (Provider, error) {
	auth := NewSimpleAPIKeyAuth(config.APIKey, "x-api-key", "")
	headers := map[string]string{"anthropic-version": claudeAPIVersion}

	return &ClaudeProvider{
		backend: newHTTPBackend(config, claudeDefaultBaseURL, auth, headers),
	}, nil
}

// Type returns the provider type
func (p *ClaudeProvider) Type() models.ProviderType {
	return models.ProviderTypeClaude
}

type claudeRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat sends a request to the Messages API. System turns are lifted into the
// top-level system field since the API only accepts user and assistant roles.
func (p *ClaudeProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := claudeRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages:  make([]Message, 0, len(req.Messages)),
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = claudeFallbackMaxTokens
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		payload.Messages = append(payload.Messages, m)
	}
	payload.System = strings.Join(system, "\n\n")

	var out claudeResponse
	status, latency, err := p.backend.postJSON(ctx, "/v1/messages", payload, &out)
	if err != nil {
		return nil, err
	}

	if len(out.Content) == 0 {
		return nil, badResponse(status, "provider response has no content")
	}

	return &ChatResponse{
		Content: out.Content[0].Text,
		Usage: Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		},
		StatusCode:      status,
		ProviderLatency: latency,
	}, nil
}

// Close cleans up resources
func (p *ClaudeProvider) Close() error {
	p.backend.close()
	return nil
}
