package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestLog is the mutable audit record of a chat request (ai_request_logs).
// It is created pending and moved to success or error once the vendor answers.
type RequestLog struct {
	ID               int64           `db:"id" json:"id"`
	RequestID        string          `db:"request_id" json:"request_id"`
	UserID           *int64          `db:"user_id" json:"user_id,omitempty"`
	ModuleName       string          `db:"module_name" json:"module_name"`
	OperationType    string          `db:"operation_type" json:"operation_type"`
	ModelID          *int64          `db:"model_id" json:"model_id,omitempty"`
	Prompt           string          `db:"prompt" json:"prompt"`
	Response         *string         `db:"response" json:"response,omitempty"`
	RequestMetadata  JSONB           `db:"request_metadata" json:"request_metadata,omitempty"`
	ResponseMetadata JSONB           `db:"response_metadata" json:"response_metadata,omitempty"`
	PromptTokens     int             `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int             `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int             `db:"total_tokens" json:"total_tokens"`
	Cost             decimal.Decimal `db:"cost" json:"cost"`
	Status           UsageStatus     `db:"status" json:"status"`
	ErrorMessage     *string         `db:"error_message" json:"error_message,omitempty"`
	IPAddress        *string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent        *string         `db:"user_agent" json:"user_agent,omitempty"`
	ReviewedBy       *int64          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	IsFlagged        bool            `db:"is_flagged" json:"is_flagged"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
