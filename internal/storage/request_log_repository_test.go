package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicore/internal/models"
	"aicore/internal/utils"
)

func TestRequestLogRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := db.NewRequestLogRepository()
	ctx := context.Background()

	entry := &models.RequestLog{
		RequestID:       uuid.NewString(),
		ModuleName:      "crm",
		OperationType:   "chat",
		Prompt:          "Summarize",
		RequestMetadata: models.JSONB{"max_tokens": float64(100)},
		IPAddress:       utils.StringPtr("10.0.0.1"),
	}
	require.NoError(t, repo.Create(ctx, entry))
	assert.Equal(t, models.UsageStatusPending, entry.Status)

	modelID := int64(7)
	require.NoError(t, repo.Complete(ctx, entry.ID, RequestLogCompletion{
		Status:           models.UsageStatusSuccess,
		ModelID:          &modelID,
		Response:         utils.StringPtr("done"),
		ResponseMetadata: models.JSONB{"latency_ms": float64(12)},
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
		Cost:             decimal.RequireFromString("0.0001"),
	}))

	got, err := repo.GetByRequestID(ctx, entry.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.UsageStatusSuccess, got.Status)
	require.NotNil(t, got.ModelID)
	assert.Equal(t, modelID, *got.ModelID)
	assert.Equal(t, float64(100), got.RequestMetadata["max_tokens"])
	assert.Equal(t, 15, got.TotalTokens)

	require.NoError(t, repo.SetFlagged(ctx, entry.ID, true))
	require.NoError(t, repo.MarkReviewed(ctx, entry.ID, 99))

	flagged, err := repo.ListFlagged(ctx, 10)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.NotNil(t, flagged[0].ReviewedBy)
	assert.Equal(t, int64(99), *flagged[0].ReviewedBy)

	assert.ErrorIs(t, repo.Complete(ctx, 12345, RequestLogCompletion{Status: models.UsageStatusError}), ErrRequestLogNotFound)
	_, err = repo.GetByRequestID(ctx, "missing")
	assert.ErrorIs(t, err, ErrRequestLogNotFound)
}
