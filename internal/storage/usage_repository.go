package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"aicore/internal/models"
)

const insertUsageQuery = `
	INSERT INTO ai_usage_logs (
		module_name, operation_type, model_id, user_id, company_id,
		prompt_tokens, completion_tokens, total_tokens, cost,
		processing_time_ms, status, error_message, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`

// UsageRepository reads and appends ai_usage_logs rows.
// Writes are done on whatever DB the repository was built from; the usage
// recorder builds it from a dedicated pool.
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create inserts a usage row in autocommit mode
func (r *UsageRepository) Create(ctx context.Context, entry *models.UsageLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := insertUsage(ctx, r.db.conn, r.db.rebind(insertUsageQuery), entry); err != nil {
		return fmt.Errorf("failed to create usage log: %w", err)
	}
	return nil
}

// CreateOnFreshConn inserts a usage row on a newly opened connection inside
// an explicit transaction that is committed before returning.
func (r *UsageRepository) CreateOnFreshConn(ctx context.Context, entry *models.UsageLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	fresh, err := r.db.openFresh(ctx)
	if err != nil {
		return err
	}
	defer fresh.Close()

	tx, err := fresh.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin usage transaction: %w", err)
	}

	if err := insertUsage(ctx, tx, fresh.Rebind(insertUsageQuery), entry); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to create usage log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage log: %w", err)
	}
	return nil
}

func insertUsage(ctx context.Context, q sqlx.QueryerContext, query string, entry *models.UsageLog) error {
	return q.QueryRowxContext(ctx, query,
		entry.ModuleName, entry.OperationType, entry.ModelID, entry.UserID, entry.CompanyID,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens, entry.Cost,
		entry.ProcessingTimeMs, string(entry.Status), entry.ErrorMessage, entry.CreatedAt.UTC(),
	).Scan(&entry.ID)
}

// UsageTotals aggregates usage rows over a time window
type UsageTotals struct {
	Requests         int64           `db:"requests" json:"requests"`
	SuccessCount     int64           `db:"success_count" json:"success_count"`
	ErrorCount       int64           `db:"error_count" json:"error_count"`
	PromptTokens     int64           `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int64           `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int64           `db:"total_tokens" json:"total_tokens"`
	Cost             decimal.Decimal `db:"cost" json:"cost"`
}

// ModelUsage is usage grouped by model
type ModelUsage struct {
	ModelID         int64           `db:"model_id" json:"model_id"`
	ModelName       string          `db:"model_name" json:"model_name"`
	ModelIdentifier string          `db:"model_identifier" json:"model_identifier"`
	Requests        int64           `db:"requests" json:"requests"`
	TotalTokens     int64           `db:"total_tokens" json:"total_tokens"`
	Cost            decimal.Decimal `db:"cost" json:"cost"`
}

// ProviderUsage is usage grouped by the provider owning the model
type ProviderUsage struct {
	ProviderID        int64               `db:"provider_id" json:"provider_id"`
	ProviderName      string              `db:"provider_name" json:"provider_name"`
	ProviderType      models.ProviderType `db:"provider_type" json:"provider_type"`
	RequestsPerMinute int                 `db:"requests_per_minute" json:"-"`
	Requests          int64               `db:"requests" json:"requests"`
	TotalTokens       int64               `db:"total_tokens" json:"total_tokens"`
	Cost              decimal.Decimal     `db:"cost" json:"cost"`
}

// ModuleUsage is usage grouped by calling module
type ModuleUsage struct {
	ModuleName  string          `db:"module_name" json:"module_name"`
	Requests    int64           `db:"requests" json:"requests"`
	TotalTokens int64           `db:"total_tokens" json:"total_tokens"`
	Cost        decimal.Decimal `db:"cost" json:"cost"`
}

// CostPoint is the cost of a single usage row
type CostPoint struct {
	CreatedAt time.Time       `db:"created_at"`
	Cost      decimal.Decimal `db:"cost"`
}

// Totals sums usage in [from, to)
func (r *UsageRepository) Totals(ctx context.Context, from, to time.Time) (*UsageTotals, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT
			COUNT(*) AS requests,
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) AS success_count,
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) AS error_count,
			COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
			COALESCE(SUM(completion_tokens), 0) AS completion_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(cost), 0) AS cost
		FROM ai_usage_logs
		WHERE created_at >= ? AND created_at < ?`

	var totals UsageTotals
	if err := r.db.conn.GetContext(ctx, &totals, r.db.rebind(query), from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("failed to sum usage: %w", err)
	}
	return &totals, nil
}

// TopModels ranks models by request count since a point in time
func (r *UsageRepository) TopModels(ctx context.Context, since time.Time, limit int) ([]ModelUsage, error) {
	return r.ModelsBetween(ctx, since, farFuture, limit)
}

// farFuture is the open upper bound used by "since" queries
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// ModelsBetween groups usage in [from, to) by model, busiest first.
// A limit of zero or less returns every model with usage.
func (r *UsageRepository) ModelsBetween(ctx context.Context, from, to time.Time, limit int) ([]ModelUsage, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT
			u.model_id,
			COALESCE(m.name, '') AS model_name,
			COALESCE(m.model_identifier, '') AS model_identifier,
			COUNT(*) AS requests,
			COALESCE(SUM(u.total_tokens), 0) AS total_tokens,
			COALESCE(SUM(u.cost), 0) AS cost
		FROM ai_usage_logs u
		LEFT JOIN ai_models m ON m.id = u.model_id
		WHERE u.created_at >= ? AND u.created_at < ?
		GROUP BY u.model_id, m.name, m.model_identifier
		ORDER BY requests DESC, u.model_id`
	args := []interface{}{from.UTC(), to.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var result []ModelUsage
	if err := r.db.conn.SelectContext(ctx, &result, r.db.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to rank models: %w", err)
	}
	return result, nil
}

// TopProviders ranks providers by request count since a point in time.
// A limit of zero or less returns every provider with usage.
func (r *UsageRepository) TopProviders(ctx context.Context, since time.Time, limit int) ([]ProviderUsage, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT
			p.id AS provider_id,
			p.name AS provider_name,
			p.provider_type,
			p.requests_per_minute,
			COUNT(*) AS requests,
			COALESCE(SUM(u.total_tokens), 0) AS total_tokens,
			COALESCE(SUM(u.cost), 0) AS cost
		FROM ai_usage_logs u
		JOIN ai_models m ON m.id = u.model_id
		JOIN ai_providers p ON p.id = m.provider_id
		WHERE u.created_at >= ?
		GROUP BY p.id, p.name, p.provider_type, p.requests_per_minute
		ORDER BY requests DESC, p.id`
	args := []interface{}{since.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var result []ProviderUsage
	if err := r.db.conn.SelectContext(ctx, &result, r.db.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to rank providers: %w", err)
	}
	return result, nil
}

// ByModule groups usage in [from, to) by calling module
func (r *UsageRepository) ByModule(ctx context.Context, from, to time.Time) ([]ModuleUsage, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT
			module_name,
			COUNT(*) AS requests,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(cost), 0) AS cost
		FROM ai_usage_logs
		WHERE created_at >= ? AND created_at < ?
		GROUP BY module_name
		ORDER BY requests DESC, module_name`

	var result []ModuleUsage
	if err := r.db.conn.SelectContext(ctx, &result, r.db.rebind(query), from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("failed to group usage by module: %w", err)
	}
	return result, nil
}

// CostPoints returns per-row costs in [from, to). Bucketing happens in Go so
// the query stays portable across drivers.
func (r *UsageRepository) CostPoints(ctx context.Context, from, to time.Time) ([]CostPoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT created_at, cost
		FROM ai_usage_logs
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at`

	var result []CostPoint
	if err := r.db.conn.SelectContext(ctx, &result, r.db.rebind(query), from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("failed to load cost points: %w", err)
	}
	return result, nil
}

// ListByModule returns the newest usage rows of a module
func (r *UsageRepository) ListByModule(ctx context.Context, moduleName string, limit int) ([]*models.UsageLog, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, module_name, operation_type, model_id, user_id, company_id,
			prompt_tokens, completion_tokens, total_tokens, cost,
			processing_time_ms, status, error_message, created_at
		FROM ai_usage_logs
		WHERE module_name = ?
		ORDER BY id DESC
		LIMIT ?`

	var result []*models.UsageLog
	if err := r.db.conn.SelectContext(ctx, &result, r.db.rebind(query), moduleName, limit); err != nil {
		return nil, fmt.Errorf("failed to list usage logs: %w", err)
	}
	return result, nil
}

// Count returns the number of usage rows
func (r *UsageRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := r.db.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM ai_usage_logs`); err != nil {
		return 0, fmt.Errorf("failed to count usage logs: %w", err)
	}
	return n, nil
}
