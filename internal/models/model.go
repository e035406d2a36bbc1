package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskType is the kind of work a model can serve.
type TaskType string

const (
	TaskTypeText       TaskType = "text"
	TaskTypeImage      TaskType = "image"
	TaskTypeEmbedding  TaskType = "embedding"
	TaskTypeMultimodal TaskType = "multimodal"
)

// IsValid reports whether t is a known task type.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeText, TaskTypeImage, TaskTypeEmbedding, TaskTypeMultimodal:
		return true
	default:
		return false
	}
}

//
// Model (ai_models table)
//

type Model struct {
	ID                 int64           `db:"id" json:"id"`
	ProviderID         int64           `db:"provider_id" json:"provider_id"`
	Name               string          `db:"name" json:"name"`
	ModelIdentifier    string          `db:"model_identifier" json:"model_identifier"`
	TaskType           TaskType        `db:"task_type" json:"task_type"`
	MaxTokens          int             `db:"max_tokens" json:"max_tokens"`
	SupportsStreaming  bool            `db:"supports_streaming" json:"supports_streaming"`
	CostPerInputToken  decimal.Decimal `db:"cost_per_input_token" json:"cost_per_input_token"`
	CostPerOutputToken decimal.Decimal `db:"cost_per_output_token" json:"cost_per_output_token"`
	IsActive           bool            `db:"is_active" json:"is_active"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`

	// Joined in code, not a DB column:
	Provider *Provider `db:"-" json:"provider,omitempty"`
}

// CalculateCost prices a request at the model's per-token rates.
// The result is exact; rounding belongs to whoever displays it.
func (m *Model) CalculateCost(promptTokens, completionTokens int) decimal.Decimal {
	input := m.CostPerInputToken.Mul(decimal.NewFromInt(int64(promptTokens)))
	output := m.CostPerOutputToken.Mul(decimal.NewFromInt(int64(completionTokens)))
	return input.Add(output)
}

// IsSelectable reports whether the model and its provider are both active.
func (m *Model) IsSelectable() bool {
	return m.IsActive && m.Provider != nil && m.Provider.IsActive
}

// Accepts reports whether the model can serve a task needing maxTokens.
// A nil maxTokens means the caller has no token requirement.
func (m *Model) Accepts(task TaskType, maxTokens *int) bool {
	if m.TaskType != task {
		return false
	}
	if maxTokens != nil && m.MaxTokens < *maxTokens {
		return false
	}
	return true
}

// RoundCost rounds a cost for display. Accumulate with the unrounded value.
func RoundCost(cost decimal.Decimal, places int32) decimal.Decimal {
	return cost.Round(places)
}
