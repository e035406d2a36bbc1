package models

import "time"

// ModuleConfiguration holds per-module AI defaults (ai_module_configurations table).
type ModuleConfiguration struct {
	ID                int64     `db:"id" json:"id"`
	ModuleName        string    `db:"module_name" json:"module_name"`
	DefaultProviderID *int64    `db:"default_provider_id" json:"default_provider_id,omitempty"`
	DefaultModelID    *int64    `db:"default_model_id" json:"default_model_id,omitempty"`
	MaxTokens         int       `db:"max_tokens" json:"max_tokens"`
	Temperature       float64   `db:"temperature" json:"temperature"`
	StreamingEnabled  bool      `db:"streaming_enabled" json:"streaming_enabled"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	Priority          int       `db:"priority" json:"priority"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
