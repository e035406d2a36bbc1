package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/aicore")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.AI.Enabled)
	assert.False(t, cfg.AI.LogRequests)
	assert.Equal(t, 2048, cfg.AI.DefaultMaxTokens)
	assert.Equal(t, 0.7, cfg.AI.DefaultTemperature)
	assert.Equal(t, 60*time.Second, cfg.AI.RequestTimeout)
	assert.False(t, cfg.Cache.ResponseCacheEnabled)
	assert.Equal(t, time.Hour, cfg.Cache.ResponseCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Usage.WriteTimeout)
	assert.True(t, cfg.Quota.MonthlyCostBudget.IsZero())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("AI_ENABLED", "false")
	t.Setenv("AI_CACHE_ENABLED", "true")
	t.Setenv("AI_CACHE_BACKEND", "Redis")
	t.Setenv("AI_DEFAULT_TEMPERATURE", "0.2")
	t.Setenv("QUOTA_MONTHLY_COST_BUDGET", "150.50")
	t.Setenv("USAGE_WRITE_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.False(t, cfg.AI.Enabled)
	assert.True(t, cfg.Cache.ResponseCacheEnabled)
	assert.Equal(t, "redis", cfg.Cache.ResponseCacheBackend)
	assert.Equal(t, 0.2, cfg.AI.DefaultTemperature)
	assert.Equal(t, "150.5", cfg.Quota.MonthlyCostBudget.String())
	assert.Equal(t, 250*time.Millisecond, cfg.Usage.WriteTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad driver", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "x")
		t.Setenv("DATABASE_DRIVER", "mysql")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad budget", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "x")
		t.Setenv("QUOTA_MONTHLY_COST_BUDGET", "lots")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unparseable numbers fall back to defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "x")
		t.Setenv("AI_DEFAULT_MAX_TOKENS", "many")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 2048, cfg.AI.DefaultMaxTokens)
	})
}

func TestLoadManifest(t *testing.T) {
	t.Run("missing file is empty", func(t *testing.T) {
		m, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, m.Modules)
	})

	t.Run("parses modules", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ai-modules.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
modules:
  - name: crm
    provider: openai-main
    model: gpt-4o-mini
    max_tokens: 1024
    temperature: 0.3
    priority: 10
  - name: hr
    provider: claude-main
    active: false
  - name: warehouse
`), 0o644))

		m, err := LoadManifest(path)
		require.NoError(t, err)
		require.Len(t, m.Modules, 3)

		crm := m.Modules[0]
		assert.Equal(t, "crm", crm.Name)
		assert.Equal(t, "openai-main", crm.Provider)
		assert.Equal(t, "gpt-4o-mini", crm.Model)
		require.NotNil(t, crm.MaxTokens)
		assert.Equal(t, 1024, *crm.MaxTokens)
		require.NotNil(t, crm.Temperature)
		assert.Equal(t, 0.3, *crm.Temperature)
		assert.True(t, crm.IsActive())

		assert.False(t, m.Modules[1].IsActive())
		assert.Nil(t, m.Modules[2].MaxTokens)
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dup.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
modules:
  - name: crm
  - name: crm
`), 0o644))

		_, err := LoadManifest(path)
		assert.Error(t, err)
	})

	t.Run("temperature out of range rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "temp.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
modules:
  - name: crm
    temperature: 3.5
`), 0o644))

		_, err := LoadManifest(path)
		assert.Error(t, err)
	})
}
