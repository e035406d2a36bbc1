package providers

import (
	"context"
	"time"

	"aicore/internal/models"
)

// Message is one turn of a conversation in the normalized shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a normalized internal request to a provider.
type ChatRequest struct {
	Model       string // provider-specific model identifier
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Usage is the token accounting reported by a vendor
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is a normalized provider response.
type ChatResponse struct {
	Content         string
	Usage           Usage
	StatusCode      int
	ProviderLatency time.Duration
}

// Provider is implemented by each concrete vendor adapter (OpenAI, Claude, Gemini, ...).
// Chat returns a *Error for every vendor or transport failure.
type Provider interface {
	// Type returns the provider type this adapter speaks
	Type() models.ProviderType

	// Chat sends a chat completion request to the vendor
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// Authenticator handles authentication for a provider.
// Vendors differ only in where the key goes: a bearer header (OpenAI),
// a custom header (Claude) or a query parameter (Gemini).
type Authenticator interface {
	// Authenticate prepares authentication for a request
	Authenticate(ctx context.Context) (AuthContext, error)
}

// AuthContext holds authentication information for a request
type AuthContext interface {
	// ApplyToRequest applies authentication to an HTTP request
	ApplyToRequest(ctx context.Context, req any) error
}

// ProviderConfig holds configuration for creating a provider instance
type ProviderConfig struct {
	ID     int64
	Name   string
	Type   models.ProviderType
	APIKey string // decrypted

	// BaseURL overrides the vendor default when set
	BaseURL string

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// ConfigFromProvider builds a ProviderConfig from a catalog row and its decrypted key
func ConfigFromProvider(p *models.Provider, apiKey string, connectTimeout, requestTimeout time.Duration) ProviderConfig {
	cfg := ProviderConfig{
		ID:             p.ID,
		Name:           p.Name,
		Type:           p.ProviderType,
		APIKey:         apiKey,
		ConnectTimeout: connectTimeout,
		RequestTimeout: requestTimeout,
	}
	if p.EndpointURL != nil {
		cfg.BaseURL = *p.EndpointURL
	}
	return cfg
}
