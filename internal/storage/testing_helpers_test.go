package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"aicore/internal/models"
)

// newTestDB opens a migrated SQLite database in a temp dir
func newTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := DefaultDBConfig()
	cfg.Driver = DriverSQLite
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "aicore.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	cfg.MaxOpenConns = 4

	db, err := NewDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func seedProvider(t *testing.T, db *DB, name string, typ models.ProviderType, priority int) *models.Provider {
	t.Helper()
	p := &models.Provider{
		Name:              name,
		ProviderType:      typ,
		EncryptedAPIKey:   "ciphertext",
		RequestsPerMinute: 60,
		CostPerToken:      decimal.Zero,
		Priority:          priority,
		IsActive:          true,
	}
	require.NoError(t, db.NewProviderRepository().Create(context.Background(), p))
	return p
}

func seedModel(t *testing.T, db *DB, providerID int64, identifier string, inputCost, outputCost string) *models.Model {
	t.Helper()
	m := &models.Model{
		ProviderID:         providerID,
		Name:               identifier,
		ModelIdentifier:    identifier,
		TaskType:           models.TaskTypeText,
		MaxTokens:          4096,
		CostPerInputToken:  decimal.RequireFromString(inputCost),
		CostPerOutputToken: decimal.RequireFromString(outputCost),
		IsActive:           true,
	}
	require.NoError(t, db.NewModelRepository().Create(context.Background(), m))
	return m
}

func usageAt(module string, modelID int64, status models.UsageStatus, tokens int, cost string, at time.Time) *models.UsageLog {
	return &models.UsageLog{
		ModuleName:       module,
		OperationType:    "chat",
		ModelID:          modelID,
		PromptTokens:     tokens,
		TotalTokens:      tokens,
		Cost:             decimal.RequireFromString(cost),
		ProcessingTimeMs: 12,
		Status:           status,
		CreatedAt:        at,
	}
}
