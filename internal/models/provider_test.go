package models

import (
	"testing"
)

func TestProviderType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider ProviderType
		expected bool
	}{
		{"OpenAI", ProviderTypeOpenAI, true},
		{"Claude", ProviderTypeClaude, true},
		{"Gemini", ProviderTypeGemini, true},
		{"Local", ProviderTypeLocal, true},
		{"Custom", ProviderTypeCustom, true},
		{"Unknown", ProviderType("bedrock"), false},
		{"Empty", ProviderType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.provider.IsValid(); got != tt.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tt.provider, got, tt.expected)
			}
		})
	}
}

func TestProvider_DailyRequestCap(t *testing.T) {
	tests := []struct {
		name string
		rpm  int
		want int64
	}{
		{"unset", 0, 0},
		{"negative treated as unset", -5, 0},
		{"sixty per minute", 60, 86400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Provider{RequestsPerMinute: tt.rpm}
			if got := p.DailyRequestCap(); got != tt.want {
				t.Errorf("DailyRequestCap() = %d, want %d", got, tt.want)
			}
		})
	}
}
