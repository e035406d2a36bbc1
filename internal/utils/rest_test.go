package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		message string
	}{
		{name: "bad request", code: http.StatusBadRequest, message: "Invalid input"},
		{name: "unauthorized", code: http.StatusUnauthorized, message: "Authentication required"},
		{name: "bad gateway", code: http.StatusBadGateway, message: "AI request failed: unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithError(w, tt.code, tt.message)

			if w.Code != tt.code {
				t.Errorf("RespondWithError() status = %d, want %d", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("RespondWithError() Content-Type = %s, want application/json", ct)
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Error != tt.message {
				t.Errorf("RespondWithError() message = %s, want %s", response.Error, tt.message)
			}
		})
	}
}

func TestRespondWithErrorCode(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithErrorCode(w, http.StatusServiceUnavailable, "ai_disabled", "AI features are disabled")

	var response ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Code != "ai_disabled" {
		t.Errorf("code = %s, want ai_disabled", response.Code)
	}
}

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	payload := map[string]any{"success": true, "count": 42}

	if err := RespondWithJSON(w, http.StatusCreated, payload); err != nil {
		t.Errorf("RespondWithJSON() error = %v, want nil", err)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("RespondWithJSON() status = %d, want %d", w.Code, http.StatusCreated)
	}

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if int(response["count"].(float64)) != 42 {
		t.Errorf("RespondWithJSON() count = %v, want 42", response["count"])
	}
}

func TestDecodeJSONBody(t *testing.T) {
	type body struct {
		Message string `json:"message"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`))
		var b body
		if err := DecodeJSONBody(r, &b); err != nil {
			t.Fatalf("DecodeJSONBody() error = %v", err)
		}
		if b.Message != "hi" {
			t.Errorf("Message = %q, want hi", b.Message)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"msg":"hi"}`))
		var b body
		if err := DecodeJSONBody(r, &b); err == nil {
			t.Error("expected error for unknown field")
		}
	})
}
