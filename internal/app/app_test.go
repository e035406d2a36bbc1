package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicore/internal/auth"
	"aicore/internal/config"
	"aicore/internal/models"
	"aicore/internal/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:     []byte("app-test-secret"),
		EncryptionKey: "app-test-passphrase",
		LogLevel:      "error",
		Database: config.DatabaseConfig{
			Driver:       "sqlite3",
			URL:          "file:" + filepath.Join(t.TempDir(), "aicore.db") + "?_busy_timeout=5000&_journal_mode=WAL",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			QueryTimeout: 5 * time.Second,
		},
		Usage: config.UsageConfig{
			MaxOpenConns:      2,
			WriteTimeout:      2 * time.Second,
			DeadLetterBackend: "memory",
		},
		Cache: config.CacheConfig{
			CatalogCacheTTL:      time.Millisecond,
			ResponseCacheEnabled: true,
			ResponseCacheBackend: "memory",
			ResponseCacheSize:    16,
			ResponseCacheTTL:     time.Minute,
		},
		AI: config.AIConfig{
			Enabled:            true,
			LogRequests:        true,
			DefaultMaxTokens:   1024,
			DefaultTemperature: 0.7,
			ConnectTimeout:     time.Second,
			RequestTimeout:     5 * time.Second,
		},
	}
}

func buildApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestBuild_RequiresEncryptionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.EncryptionKey = ""
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuild_UnknownCacheBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.ResponseCacheBackend = "memcached"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuild_RedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Address = mr.Addr()
	cfg.Cache.ResponseCacheBackend = "redis"
	cfg.Usage.DeadLetterBackend = "redis"

	a := buildApp(t, cfg)
	assert.NotNil(t, a.Dispatcher)
	assert.Equal(t, 3, a.Jobs.Jobs())
}

func TestEndToEnd_ChatThroughHTTP(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-live", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "pong"}}},
			"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(vendor.Close)

	cfg := testConfig(t)
	a := buildApp(t, cfg)
	ctx := context.Background()

	_, err := RegisterProvider(ctx, a.DB, a.Encryption, ProviderSpec{
		Name: "openai-main", Type: models.ProviderTypeOpenAI, APIKey: "sk-live",
		EndpointURL: vendor.URL, RequestsPerMinute: 60, Priority: 1,
	})
	require.NoError(t, err)
	_, err = RegisterModel(ctx, a.DB, ModelSpec{
		Provider: "openai-main", Identifier: "gpt-4o-mini", MaxTokens: 4096,
		CostPerInputToken:  decimal.RequireFromString("0.00002"),
		CostPerOutputToken: decimal.RequireFromString("0.00004"),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	service, _, err := auth.GenerateServiceToken(cfg.JWTSecret, "crm", []auth.Role{auth.RoleService}, nil, time.Hour)
	require.NoError(t, err)
	viewer, _, err := auth.GenerateServiceToken(cfg.JWTSecret, "dashboard", []auth.Role{auth.RoleViewer}, nil, time.Hour)
	require.NoError(t, err)

	call := func(method, path, token, body string) (int, string) {
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(data)
	}

	status, body := call(http.MethodPost, "/v1/chat", service, `{"message":"ping"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"content":"pong"`)
	assert.Contains(t, body, `"cost":"0.0004"`)

	status, body = call(http.MethodGet, "/v1/usage/current?period=daily", viewer, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"requests":1`)
	assert.Contains(t, body, `"total_tokens":15`)

	status, body = call(http.MethodGet, "/v1/modules/crm/configuration", viewer, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"max_tokens":1024`)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterModel_Validation(t *testing.T) {
	a := buildApp(t, testConfig(t))
	ctx := context.Background()

	_, err := RegisterModel(ctx, a.DB, ModelSpec{Provider: "missing", Identifier: "x"})
	assert.Error(t, err)

	_, err = RegisterModel(ctx, a.DB, ModelSpec{Provider: "missing", Identifier: "x", TaskType: "video"})
	assert.Error(t, err)

	_, err = RegisterModel(ctx, a.DB, ModelSpec{Provider: "missing", Identifier: "x", CostPerInputToken: decimal.NewFromInt(-1)})
	assert.Error(t, err)

	_, err = RegisterProvider(ctx, a.DB, a.Encryption, ProviderSpec{Name: "p", Type: models.ProviderTypeOpenAI})
	assert.Error(t, err)
}

func TestSyncManifest(t *testing.T) {
	a := buildApp(t, testConfig(t))
	ctx := context.Background()

	p, err := RegisterProvider(ctx, a.DB, a.Encryption, ProviderSpec{Name: "claude-main", Type: models.ProviderTypeClaude, APIKey: "k", Priority: 1})
	require.NoError(t, err)
	m, err := RegisterModel(ctx, a.DB, ModelSpec{Provider: "claude-main", Identifier: "claude-3-haiku", MaxTokens: 4096})
	require.NoError(t, err)

	inactive := false
	manifest := &config.ModuleManifest{Modules: []config.ModuleEntry{
		{Name: "crm", Provider: "claude-main", Model: "claude-3-haiku", MaxTokens: utils.IntPtr(256), Temperature: utils.Float64Ptr(0.2)},
		{Name: "hr", Provider: "ghost", Model: "nope"},
		{Name: "legacy", Active: &inactive},
	}}

	n, err := SyncManifest(ctx, a.DB, manifest, a.Config.AI, utils.NewLoggerWithWriter(io.Discard, "test", utils.Error))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	configs := a.DB.NewModuleConfigRepository()

	crm, err := configs.GetActiveByModule(ctx, "crm")
	require.NoError(t, err)
	require.NotNil(t, crm.DefaultProviderID)
	require.NotNil(t, crm.DefaultModelID)
	assert.Equal(t, p.ID, *crm.DefaultProviderID)
	assert.Equal(t, m.ID, *crm.DefaultModelID)
	assert.Equal(t, 256, crm.MaxTokens)

	hr, err := configs.GetActiveByModule(ctx, "hr")
	require.NoError(t, err)
	assert.Nil(t, hr.DefaultProviderID)
	assert.Equal(t, 1024, hr.MaxTokens)

	_, err = configs.GetActiveByModule(ctx, "legacy")
	assert.Error(t, err)

	// idempotent
	n, err = SyncManifest(ctx, a.DB, manifest, a.Config.AI, utils.NewLoggerWithWriter(io.Discard, "test", utils.Error))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	all, err := configs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
