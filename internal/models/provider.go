package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderType enumerates supported provider types.
type ProviderType string

const (
	ProviderTypeOpenAI ProviderType = "openai"
	ProviderTypeClaude ProviderType = "claude"
	ProviderTypeGemini ProviderType = "gemini"
	ProviderTypeLocal  ProviderType = "local"
	ProviderTypeCustom ProviderType = "custom"
)

// IsValid reports whether t is one of the known vendor types.
func (t ProviderType) IsValid() bool {
	switch t {
	case ProviderTypeOpenAI, ProviderTypeClaude, ProviderTypeGemini, ProviderTypeLocal, ProviderTypeCustom:
		return true
	default:
		return false
	}
}

// Provider is an upstream AI vendor account (ai_providers table).
type Provider struct {
	ID                int64           `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	ProviderType      ProviderType    `db:"provider_type" json:"provider_type"`
	EncryptedAPIKey   string          `db:"encrypted_api_key" json:"-"`
	EndpointURL       *string         `db:"endpoint_url" json:"endpoint_url,omitempty"`
	RequestsPerMinute int             `db:"requests_per_minute" json:"requests_per_minute"`
	TokensPerRequest  int             `db:"tokens_per_request" json:"tokens_per_request"`
	CostPerToken      decimal.Decimal `db:"cost_per_token" json:"cost_per_token"`
	Priority          int             `db:"priority" json:"priority"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// DailyRequestCap is the number of requests the provider's per-minute
// limit allows over a full day. Zero means no cap is configured.
func (p *Provider) DailyRequestCap() int64 {
	if p.RequestsPerMinute <= 0 {
		return 0
	}
	return int64(p.RequestsPerMinute) * 60 * 24
}
