package analytics

import (
	"github.com/shopspring/decimal"
)

// QuotaKind names the limit that was exceeded
type QuotaKind string

const (
	QuotaDailyTokens           QuotaKind = "daily_tokens"
	QuotaMonthlyCost           QuotaKind = "monthly_cost"
	QuotaProviderDailyRequests QuotaKind = "provider_daily_requests"
)

// Limits configures quota checks. Zero disables a check.
type Limits struct {
	DailyTokenLimit   int64
	MonthlyCostBudget decimal.Decimal
}

// QuotaViolation is one exceeded limit
type QuotaViolation struct {
	Kind    QuotaKind       `json:"kind"`
	Subject string          `json:"subject,omitempty"`
	Limit   decimal.Decimal `json:"limit"`
	Current decimal.Decimal `json:"current"`
}

// QuotaStatus is the outcome of a quota check
type QuotaStatus struct {
	DailyTokens int64            `json:"daily_tokens"`
	MonthlyCost decimal.Decimal  `json:"monthly_cost"`
	Violations  []QuotaViolation `json:"violations"`
}

// Exceeded reports whether any limit was crossed
func (s *QuotaStatus) Exceeded() bool {
	return len(s.Violations) > 0
}
