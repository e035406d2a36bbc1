package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aicore/internal/models"
)

const requestLogColumns = `
	id, request_id, user_id, module_name, operation_type, model_id, prompt, response,
	request_metadata, response_metadata, prompt_tokens, completion_tokens, total_tokens,
	cost, status, error_message, ip_address, user_agent, reviewed_by, reviewed_at,
	is_flagged, created_at, updated_at`

// RequestLogRepository stores the mutable request audit trail
type RequestLogRepository struct {
	db *DB
}

// NewRequestLogRepository creates a new request log repository
func NewRequestLogRepository(db *DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// Create inserts a request log, normally in pending state
func (r *RequestLogRepository) Create(ctx context.Context, entry *models.RequestLog) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = models.UsageStatusPending
	}

	query := `
		INSERT INTO ai_request_logs (
			request_id, user_id, module_name, operation_type, model_id, prompt,
			request_metadata, status, ip_address, user_agent, is_flagged,
			cost, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.conn.QueryRowxContext(ctx, r.db.rebind(query),
		entry.RequestID, entry.UserID, entry.ModuleName, entry.OperationType, entry.ModelID, entry.Prompt,
		entry.RequestMetadata, string(entry.Status), entry.IPAddress, entry.UserAgent, entry.IsFlagged,
		entry.Cost, entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create request log: %w", err)
	}
	return nil
}

// RequestLogCompletion carries the terminal state of a request
type RequestLogCompletion struct {
	Status           models.UsageStatus
	ModelID          *int64
	Response         *string
	ResponseMetadata models.JSONB
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             decimal.Decimal
	ErrorMessage     *string
}

// Complete moves a request log to its terminal state
func (r *RequestLogRepository) Complete(ctx context.Context, id int64, c RequestLogCompletion) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE ai_request_logs SET
			status = ?, model_id = COALESCE(?, model_id), response = ?, response_metadata = ?,
			prompt_tokens = ?, completion_tokens = ?, total_tokens = ?, cost = ?,
			error_message = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(query),
		string(c.Status), c.ModelID, c.Response, c.ResponseMetadata,
		c.PromptTokens, c.CompletionTokens, c.TotalTokens, c.Cost,
		c.ErrorMessage, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete request log: %w", err)
	}
	return expectRow(result, ErrRequestLogNotFound)
}

// GetByRequestID fetches a request log by its public request id
func (r *RequestLogRepository) GetByRequestID(ctx context.Context, requestID string) (*models.RequestLog, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + requestLogColumns + ` FROM ai_request_logs WHERE request_id = ?`

	var entry models.RequestLog
	if err := r.db.conn.GetContext(ctx, &entry, r.db.rebind(query), requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestLogNotFound
		}
		return nil, fmt.Errorf("failed to get request log: %w", err)
	}
	return &entry, nil
}

// MarkReviewed records who reviewed a request log
func (r *RequestLogRepository) MarkReviewed(ctx context.Context, id, reviewerID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	query := `UPDATE ai_request_logs SET reviewed_by = ?, reviewed_at = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(query), reviewerID, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark request log reviewed: %w", err)
	}
	return expectRow(result, ErrRequestLogNotFound)
}

// SetFlagged flags or unflags a request log for admin attention
func (r *RequestLogRepository) SetFlagged(ctx context.Context, id int64, flagged bool) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `UPDATE ai_request_logs SET is_flagged = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(query), flagged, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to flag request log: %w", err)
	}
	return expectRow(result, ErrRequestLogNotFound)
}

// ListFlagged returns flagged request logs, newest first
func (r *RequestLogRepository) ListFlagged(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + requestLogColumns + ` FROM ai_request_logs
		WHERE is_flagged = ? ORDER BY created_at DESC, id DESC LIMIT ?`

	var entries []*models.RequestLog
	if err := r.db.conn.SelectContext(ctx, &entries, r.db.rebind(query), true, limit); err != nil {
		return nil, fmt.Errorf("failed to list flagged request logs: %w", err)
	}
	return entries, nil
}
