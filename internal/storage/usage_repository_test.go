package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicore/internal/models"
)

func TestUsageRepository_CreateAndFreshConn(t *testing.T) {
	db := newTestDB(t)
	repo := db.NewUsageRepository()
	ctx := context.Background()

	first := usageAt("crm", 1, models.UsageStatusSuccess, 150, "0.0004", time.Time{})
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	msg := "AI request failed: timeout"
	second := usageAt("crm", 1, models.UsageStatusError, 0, "0", time.Time{})
	second.ErrorMessage = &msg
	require.NoError(t, repo.CreateOnFreshConn(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := repo.ListByModule(ctx, "crm", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.UsageStatusError, rows[0].Status)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.Equal(t, msg, *rows[0].ErrorMessage)
	assert.True(t, rows[1].Cost.Equal(decimal.RequireFromString("0.0004")))
}

// A rolled back business transaction on the main pool must not take the
// usage row with it.
func TestUsageRepository_SurvivesCallerRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	usageDB, err := NewDB(DBConfig{
		Driver:       DriverSQLite,
		DSN:          db.dsn,
		MaxOpenConns: 1,
		QueryTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer usageDB.Close()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, usageDB.NewUsageRepository().Create(ctx,
		usageAt("orders", 1, models.UsageStatusSuccess, 42, "0.001", time.Time{})))

	_, err = tx.ExecContext(ctx, db.rebind(`INSERT INTO ai_providers
		(name, provider_type, created_at, updated_at) VALUES (?, ?, ?, ?)`),
		"scratch", "openai", time.Now().UTC(), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	n, err := db.NewUsageRepository().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = db.NewProviderRepository().GetByName(ctx, "scratch")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestUsageRepository_Aggregates(t *testing.T) {
	db := newTestDB(t)
	repo := db.NewUsageRepository()
	ctx := context.Background()

	openai := seedProvider(t, db, "openai-main", models.ProviderTypeOpenAI, 1)
	claude := seedProvider(t, db, "claude-main", models.ProviderTypeClaude, 2)
	gpt := seedModel(t, db, openai.ID, "gpt-4o-mini", "0.00000015", "0.0000006")
	haiku := seedModel(t, db, claude.ID, "claude-3-haiku", "0.00000025", "0.00000125")

	now := time.Now().UTC()
	rows := []*models.UsageLog{
		usageAt("crm", gpt.ID, models.UsageStatusSuccess, 100, "0.01", now.Add(-1*time.Hour)),
		usageAt("crm", gpt.ID, models.UsageStatusSuccess, 200, "0.02", now.Add(-2*time.Hour)),
		usageAt("hr", haiku.ID, models.UsageStatusError, 0, "0", now.Add(-3*time.Hour)),
		usageAt("hr", haiku.ID, models.UsageStatusSuccess, 50, "0.005", now.Add(-48*time.Hour)),
	}
	for _, row := range rows {
		require.NoError(t, repo.Create(ctx, row))
	}

	since := now.Add(-24 * time.Hour)
	totals, err := repo.Totals(ctx, since, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Requests)
	assert.Equal(t, int64(2), totals.SuccessCount)
	assert.Equal(t, int64(1), totals.ErrorCount)
	assert.Equal(t, int64(300), totals.TotalTokens)
	assert.True(t, totals.Cost.Round(6).Equal(decimal.RequireFromString("0.03")), totals.Cost.String())

	top, err := repo.TopModels(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, gpt.ID, top[0].ModelID)
	assert.Equal(t, "gpt-4o-mini", top[0].ModelIdentifier)
	assert.Equal(t, int64(2), top[0].Requests)

	providers, err := repo.TopProviders(ctx, since, 0)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "openai-main", providers[0].ProviderName)
	assert.Equal(t, 60, providers[0].RequestsPerMinute)

	modules, err := repo.ByModule(ctx, now.Add(-72*time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "crm", modules[0].ModuleName)

	points, err := repo.CostPoints(ctx, now.Add(-72*time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.True(t, points[0].CreatedAt.Before(points[3].CreatedAt))
}

func TestUsageRepository_EmptyWindow(t *testing.T) {
	db := newTestDB(t)
	repo := db.NewUsageRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	totals, err := repo.Totals(ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Zero(t, totals.Requests)
	assert.True(t, totals.Cost.IsZero())

	top, err := repo.TopModels(ctx, now.Add(-time.Hour), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
