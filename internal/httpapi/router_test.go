package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicore/internal/analytics"
	"aicore/internal/auth"
	"aicore/internal/dispatcher"
	"aicore/internal/models"
	"aicore/internal/providers"
	"aicore/internal/storage"
)

var testSecret = []byte("httpapi-test-secret")

type fakeChat struct {
	result  *dispatcher.Result
	err     error
	message string
	history []providers.Message
	opts    dispatcher.Options
}

func (f *fakeChat) Chat(ctx context.Context, message string, history []providers.Message, opts dispatcher.Options) (*dispatcher.Result, error) {
	f.message, f.history, f.opts = message, history, opts
	return f.result, f.err
}

type fakeModules struct{}

func (fakeModules) GetModuleConfiguration(ctx context.Context, moduleName string) (*models.ModuleConfiguration, error) {
	return &models.ModuleConfiguration{ModuleName: moduleName, MaxTokens: 2048, Temperature: 0.7}, nil
}

type fakeAnalytics struct {
	reportFrom, reportTo time.Time
	period               analytics.Period
}

func (f *fakeAnalytics) CurrentUsage(ctx context.Context, period analytics.Period) (*analytics.UsageSummary, error) {
	f.period = period
	return &analytics.UsageSummary{Period: period, UsageTotals: storage.UsageTotals{Requests: 3, Cost: decimal.RequireFromString("0.12")}}, nil
}

func (f *fakeAnalytics) TopModels(ctx context.Context, limit int, since time.Time) ([]storage.ModelUsage, error) {
	return []storage.ModelUsage{{ModelID: 1, ModelIdentifier: "gpt-4o-mini", Requests: int64(limit)}}, nil
}

func (f *fakeAnalytics) TopProviders(ctx context.Context, limit int, since time.Time) ([]storage.ProviderUsage, error) {
	return []storage.ProviderUsage{}, nil
}

func (f *fakeAnalytics) CostTrend(ctx context.Context, days int) (*analytics.Trend, error) {
	return &analytics.Trend{Days: days, Direction: analytics.TrendStable}, nil
}

func (f *fakeAnalytics) CheckQuotas(ctx context.Context) (*analytics.QuotaStatus, error) {
	return &analytics.QuotaStatus{Violations: []analytics.QuotaViolation{{Kind: analytics.QuotaDailyTokens}}}, nil
}

func (f *fakeAnalytics) Report(ctx context.Context, from, to time.Time) (*analytics.Report, error) {
	f.reportFrom, f.reportTo = from, to
	if !to.After(from) {
		return nil, analytics.ErrInvalidRange
	}
	return &analytics.Report{From: from, To: to}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(ctx context.Context) error { return f.err }

func newTestRouter(chat *fakeChat, stats *fakeAnalytics, health error) http.Handler {
	return NewRouter(&Dependencies{
		Chat:      chat,
		Modules:   fakeModules{},
		Analytics: stats,
		Health:    fakeHealth{err: health},
		JWTSecret: testSecret,
	})
}

func bearer(t *testing.T, roles ...auth.Role) string {
	t.Helper()
	company := int64(42)
	token, _, err := auth.GenerateServiceToken(testSecret, "crm", roles, &company, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, path, body, authz string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(&fakeChat{}, &fakeAnalytics{}, nil), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, newTestRouter(&fakeChat{}, &fakeAnalytics{}, errors.New("db down")), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChat_Success(t *testing.T) {
	chat := &fakeChat{result: &dispatcher.Result{Content: "hi", Cost: decimal.RequireFromString("0.0004"), ModelID: 9}}
	h := newTestRouter(chat, &fakeAnalytics{}, nil)

	body := `{"message":"hello","history":[{"role":"system","content":"be brief"}],"max_tokens":64}`
	w := do(t, h, http.MethodPost, "/v1/chat", body, bearer(t, auth.RoleService))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got dispatcher.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "hi", got.Content)
	assert.True(t, got.Cost.Equal(decimal.RequireFromString("0.0004")))

	assert.Equal(t, "hello", chat.message)
	assert.Len(t, chat.history, 1)
	assert.Equal(t, "crm", chat.opts.ModuleName)
	require.NotNil(t, chat.opts.CompanyID)
	assert.EqualValues(t, 42, *chat.opts.CompanyID)
	require.NotNil(t, chat.opts.MaxTokens)
	assert.Equal(t, 64, *chat.opts.MaxTokens)
}

func TestChat_Validation(t *testing.T) {
	h := newTestRouter(&fakeChat{}, &fakeAnalytics{}, nil)
	authz := bearer(t, auth.RoleService)

	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message":"  "}`},
		{"bad json", `{"message":`},
		{"unknown field", `{"message":"hi","prompt":"x"}`},
		{"negative max tokens", `{"message":"hi","max_tokens":-1}`},
		{"temperature range", `{"message":"hi","temperature":3}`},
		{"unknown provider", `{"message":"hi","provider_type":"acme"}`},
		{"empty history turn", `{"message":"hi","history":[{"role":"user"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/v1/chat", tt.body, authz)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"disabled", dispatcher.ErrAIDisabled, http.StatusServiceUnavailable, "ai_disabled"},
		{"no model", &dispatcher.NoAvailableModelError{Module: "crm", TaskType: models.TaskTypeText}, http.StatusServiceUnavailable, "no_available_model"},
		{"unauthorized upstream", &dispatcher.UpstreamError{Kind: providers.KindUnauthorized, Message: "unauthorized: bad key"}, http.StatusBadGateway, "unauthorized"},
		{"rate limited", &dispatcher.UpstreamError{Kind: providers.KindRateLimited, Message: "slow down"}, http.StatusTooManyRequests, "rate_limited"},
		{"timeout", &dispatcher.UpstreamError{Kind: providers.KindTimeout, Message: "timeout"}, http.StatusGatewayTimeout, "timeout"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&fakeChat{err: tt.err}, &fakeAnalytics{}, nil)
			w := do(t, h, http.MethodPost, "/v1/chat", `{"message":"hi"}`, bearer(t, auth.RoleService))
			assert.Equal(t, tt.status, w.Code)

			var body struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestRoleEnforcement(t *testing.T) {
	h := newTestRouter(&fakeChat{result: &dispatcher.Result{}}, &fakeAnalytics{}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		authz  string
		status int
	}{
		{"chat without token", http.MethodPost, "/v1/chat", "", http.StatusUnauthorized},
		{"chat as viewer", http.MethodPost, "/v1/chat", bearer(t, auth.RoleViewer), http.StatusForbidden},
		{"usage as service", http.MethodGet, "/v1/usage/current", bearer(t, auth.RoleService), http.StatusForbidden},
		{"usage as viewer", http.MethodGet, "/v1/usage/current", bearer(t, auth.RoleViewer), http.StatusOK},
		{"usage as admin", http.MethodGet, "/v1/usage/quota", bearer(t, auth.RoleAdmin), http.StatusOK},
		{"module config as service", http.MethodGet, "/v1/modules/crm/configuration", bearer(t, auth.RoleService), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, `{"message":"hi"}`, tt.authz)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestModuleConfiguration(t *testing.T) {
	h := newTestRouter(&fakeChat{}, &fakeAnalytics{}, nil)
	w := do(t, h, http.MethodGet, "/v1/modules/billing/configuration", "", bearer(t, auth.RoleViewer))
	require.Equal(t, http.StatusOK, w.Code)

	var cfg models.ModuleConfiguration
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "billing", cfg.ModuleName)
	assert.Equal(t, 2048, cfg.MaxTokens)
}

func TestUsageEndpoints(t *testing.T) {
	stats := &fakeAnalytics{}
	h := newTestRouter(&fakeChat{}, stats, nil)
	authz := bearer(t, auth.RoleViewer)

	w := do(t, h, http.MethodGet, "/v1/usage/current?period=weekly", "", authz)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, analytics.PeriodWeekly, stats.period)

	w = do(t, h, http.MethodGet, "/v1/usage/current?period=yearly", "", authz)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/usage/top-models?limit=5", "", authz)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requests":5`)

	w = do(t, h, http.MethodGet, "/v1/usage/top-models?limit=abc", "", authz)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/usage/top-providers", "", authz)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/v1/usage/trend?days=7", "", authz)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"days":7`)

	w = do(t, h, http.MethodGet, "/v1/usage/quota", "", authz)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exceeded":true`)
}

func TestUsageReport(t *testing.T) {
	stats := &fakeAnalytics{}
	h := newTestRouter(&fakeChat{}, stats, nil)
	authz := bearer(t, auth.RoleViewer)

	w := do(t, h, http.MethodGet, "/v1/usage/report?from=2026-03-01&to=2026-03-31", "", authz)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), stats.reportFrom)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), stats.reportTo)

	w = do(t, h, http.MethodGet, "/v1/usage/report?from=2026-03-31&to=2026-03-01", "", authz)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/usage/report?from=yesterday&to=2026-03-01", "", authz)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
