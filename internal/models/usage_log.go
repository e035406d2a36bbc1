package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UsageStatus is the outcome recorded for a dispatched request.
type UsageStatus string

const (
	UsageStatusPending UsageStatus = "pending"
	UsageStatusSuccess UsageStatus = "success"
	UsageStatusError   UsageStatus = "error"
)

// MaxErrorMessageLength caps error_message on usage and request logs.
const MaxErrorMessageLength = 500

// UsageLog is one row of the append-only ai_usage_logs fact table.
// ModelID is a weak reference: rows outlive the catalog entry.
type UsageLog struct {
	ID               int64           `db:"id" json:"id"`
	ModuleName       string          `db:"module_name" json:"module_name"`
	OperationType    string          `db:"operation_type" json:"operation_type"`
	ModelID          int64           `db:"model_id" json:"model_id"`
	UserID           *int64          `db:"user_id" json:"user_id,omitempty"`
	CompanyID        *int64          `db:"company_id" json:"company_id,omitempty"`
	PromptTokens     int             `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int             `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int             `db:"total_tokens" json:"total_tokens"`
	Cost             decimal.Decimal `db:"cost" json:"cost"`
	ProcessingTimeMs int64           `db:"processing_time_ms" json:"processing_time_ms"`
	Status           UsageStatus     `db:"status" json:"status"`
	ErrorMessage     *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}
