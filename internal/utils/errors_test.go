package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{
			name:     "short string untouched",
			input:    "unauthorized",
			max:      500,
			expected: "unauthorized",
		},
		{
			name:     "exact length untouched",
			input:    "abcde",
			max:      5,
			expected: "abcde",
		},
		{
			name:     "long string gets suffix",
			input:    "abcdefghij",
			max:      8,
			expected: "abcde...",
		},
		{
			name:     "zero max",
			input:    "abc",
			max:      0,
			expected: "",
		},
		{
			name:     "max smaller than suffix",
			input:    "abcdef",
			max:      2,
			expected: "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.max)
			if got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	input := strings.Repeat("é", 100)
	got := Truncate(input, 51)
	if !utf8.ValidString(got) {
		t.Fatalf("Truncate produced invalid UTF-8: %q", got)
	}
	if len(got) > 51 {
		t.Errorf("Truncate returned %d bytes, want <= 51", len(got))
	}
}

func TestRedact(t *testing.T) {
	msg := `Post "https://example.test/v1beta/models/g:generateContent?key=sk-secret": dial tcp: timeout`
	got := Redact(msg, "sk-secret", "")
	if strings.Contains(got, "sk-secret") {
		t.Errorf("secret not redacted: %s", got)
	}
	if !strings.Contains(got, "key=[REDACTED]") {
		t.Errorf("expected redaction marker, got %s", got)
	}
}
