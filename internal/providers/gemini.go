package providers

import (
	"context"
	"net/url"

	"aicore/internal/models"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

	geminiTopP = 0.95
	geminiTopK = 40
)

// GeminiProvider implements the Provider interface for the Gemini generateContent API
type GeminiProvider struct {
	backend *httpBackend
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(config ProviderConfig) (Provider, error) {
	auth := NewQueryKeyAuth(config.APIKey, "key")

	return &GeminiProvider{
		backend: newHTTPBackend(config, geminiDefaultBaseURL, auth, nil),
	}, nil
}

// Type returns the provider type
func (p *GeminiProvider) Type() models.ProviderType {
	return models.ProviderTypeGemini
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// geminiRole maps normalized roles onto Gemini's user/model pair
func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

// Chat sends a generateContent request to Gemini
func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Messages)),
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            geminiTopP,
			TopK:            geminiTopK,
		},
	}
	for _, m := range req.Messages {
		payload.Contents = append(payload.Contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	path := "/v1beta/models/" + url.PathEscape(req.Model) + ":generateContent"

	var out geminiResponse
	status, latency, err := p.backend.postJSON(ctx, path, payload, &out)
	if err != nil {
		return nil, err
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, badResponse(status, "provider response has no candidates")
	}

	prompt := out.UsageMetadata.PromptTokenCount
	completion := out.UsageMetadata.CandidatesTokenCount

	return &ChatResponse{
		Content: out.Candidates[0].Content.Parts[0].Text,
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		StatusCode:      status,
		ProviderLatency: latency,
	}, nil
}

// Close cleans up resources
func (p *GeminiProvider) Close() error {
	p.backend.close()
	return nil
}
