package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestModelCalculateCost tests the cost calculation functionality
func TestModelCalculateCost(t *testing.T) {
	tests := []struct {
		name             string
		inputRate        string
		outputRate       string
		promptTokens     int
		completionTokens int
		expectedCost     string
	}{
		{
			name:             "openai style pricing",
			inputRate:        "0.00002",
			outputRate:       "0.00004",
			promptTokens:     10,
			completionTokens: 5,
			expectedCost:     "0.0004", // 10*0.00002 + 5*0.00004
		},
		{
			name:             "zero tokens cost nothing",
			inputRate:        "0.01",
			outputRate:       "0.03",
			promptTokens:     0,
			completionTokens: 0,
			expectedCost:     "0",
		},
		{
			name:             "output only",
			inputRate:        "0.0000025",
			outputRate:       "0.00001",
			promptTokens:     0,
			completionTokens: 1000,
			expectedCost:     "0.01",
		},
		{
			name:             "free model",
			inputRate:        "0",
			outputRate:       "0",
			promptTokens:     12345,
			completionTokens: 678,
			expectedCost:     "0",
		},
		{
			name:             "no rounding applied",
			inputRate:        "0.0000001",
			outputRate:       "0.0000003",
			promptTokens:     7,
			completionTokens: 3,
			expectedCost:     "0.0000016",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &Model{
				CostPerInputToken:  decimal.RequireFromString(tt.inputRate),
				CostPerOutputToken: decimal.RequireFromString(tt.outputRate),
			}

			cost := model.CalculateCost(tt.promptTokens, tt.completionTokens)
			expected := decimal.RequireFromString(tt.expectedCost)
			if !cost.Equal(expected) {
				t.Errorf("CalculateCost(%d, %d) = %s, want %s", tt.promptTokens, tt.completionTokens, cost, expected)
			}
		})
	}
}

// TestModelCalculateCost_Linear checks the formula over a grid of token counts.
func TestModelCalculateCost_Linear(t *testing.T) {
	model := &Model{
		CostPerInputToken:  decimal.RequireFromString("0.00003"),
		CostPerOutputToken: decimal.RequireFromString("0.00006"),
	}

	for _, p := range []int{0, 1, 17, 1000, 128000} {
		for _, c := range []int{0, 1, 42, 4096} {
			want := model.CostPerInputToken.Mul(decimal.NewFromInt(int64(p))).
				Add(model.CostPerOutputToken.Mul(decimal.NewFromInt(int64(c))))
			got := model.CalculateCost(p, c)
			assert.Truef(t, got.Equal(want), "p=%d c=%d: got %s want %s", p, c, got, want)
			assert.False(t, got.IsNegative())
		}
	}
}

func TestRoundCost(t *testing.T) {
	cost := decimal.RequireFromString("0.123456")
	assert.Equal(t, "0.12", RoundCost(cost, 2).String())
	assert.Equal(t, "0.1235", RoundCost(cost, 4).String())
	// rounding returns a new value
	assert.Equal(t, "0.123456", cost.String())
}
