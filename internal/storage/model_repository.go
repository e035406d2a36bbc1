package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aicore/internal/models"
)

const catalogCacheKey = "catalog:active"

const modelColumns = `
	m.id, m.provider_id, m.name, m.model_identifier, m.task_type, m.max_tokens,
	m.supports_streaming, m.cost_per_input_token, m.cost_per_output_token,
	m.is_active, m.created_at, m.updated_at`

const joinedProviderColumns = `
	p.id AS "p.id", p.name AS "p.name", p.provider_type AS "p.provider_type",
	p.encrypted_api_key AS "p.encrypted_api_key", p.endpoint_url AS "p.endpoint_url",
	p.requests_per_minute AS "p.requests_per_minute", p.tokens_per_request AS "p.tokens_per_request",
	p.cost_per_token AS "p.cost_per_token", p.priority AS "p.priority", p.is_active AS "p.is_active",
	p.created_at AS "p.created_at", p.updated_at AS "p.updated_at", p.deleted_at AS "p.deleted_at"`

// modelRow scans a model together with its owning provider
type modelRow struct {
	models.Model
	P models.Provider `db:"p"`
}

func (row *modelRow) toModel() *models.Model {
	model := row.Model
	provider := row.P
	model.Provider = &provider
	return &model
}

// ModelRepository handles model database operations with caching
type ModelRepository struct {
	db    *DB
	cache *LRUCache
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *DB) *ModelRepository {
	return &ModelRepository{
		db:    db,
		cache: db.GetCatalogCache(),
	}
}

// GetByID retrieves a model with its provider
func (r *ModelRepository) GetByID(ctx context.Context, id int64) (*models.Model, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + modelColumns + `, ` + joinedProviderColumns + `
		FROM ai_models m
		JOIN ai_providers p ON p.id = m.provider_id
		WHERE m.id = ?`

	var row modelRow
	if err := r.db.conn.GetContext(ctx, &row, r.db.rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	return row.toModel(), nil
}

// GetByIdentifier finds a provider's model by its vendor model identifier
func (r *ModelRepository) GetByIdentifier(ctx context.Context, providerID int64, identifier string) (*models.Model, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + modelColumns + `, ` + joinedProviderColumns + `
		FROM ai_models m
		JOIN ai_providers p ON p.id = m.provider_id
		WHERE m.provider_id = ? AND m.model_identifier = ?`

	var row modelRow
	if err := r.db.conn.GetContext(ctx, &row, r.db.rebind(query), providerID, identifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	return row.toModel(), nil
}

// GetByProvider lists all models owned by a provider
func (r *ModelRepository) GetByProvider(ctx context.Context, providerID int64) ([]*models.Model, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + modelColumns + `, ` + joinedProviderColumns + `
		FROM ai_models m
		JOIN ai_providers p ON p.id = m.provider_id
		WHERE m.provider_id = ?
		ORDER BY m.id`

	return r.selectModels(ctx, query, providerID)
}

// ListActiveCatalog returns every active model of every active provider.
// The result is a shared snapshot cached for the catalog TTL; callers must not modify it.
func (r *ModelRepository) ListActiveCatalog(ctx context.Context) ([]*models.Model, error) {
	if cached, found := r.cache.Get(catalogCacheKey); found {
		return cached.([]*models.Model), nil
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + modelColumns + `, ` + joinedProviderColumns + `
		FROM ai_models m
		JOIN ai_providers p ON p.id = m.provider_id
		WHERE m.is_active = ? AND p.is_active = ? AND p.deleted_at IS NULL
		ORDER BY m.id`

	catalog, err := r.selectModels(ctx, query, true, true)
	if err != nil {
		return nil, err
	}

	r.cache.Set(catalogCacheKey, catalog)
	return catalog, nil
}

func (r *ModelRepository) selectModels(ctx context.Context, query string, args ...interface{}) ([]*models.Model, error) {
	var rows []modelRow
	if err := r.db.conn.SelectContext(ctx, &rows, r.db.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	result := make([]*models.Model, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

// Create inserts a model under an existing provider
func (r *ModelRepository) Create(ctx context.Context, model *models.Model) error {
	if !model.TaskType.IsValid() {
		return fmt.Errorf("invalid task type %q", model.TaskType)
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now

	query := `
		INSERT INTO ai_models (
			provider_id, name, model_identifier, task_type, max_tokens,
			supports_streaming, cost_per_input_token, cost_per_output_token,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.conn.QueryRowxContext(ctx, r.db.rebind(query),
		model.ProviderID, model.Name, model.ModelIdentifier, string(model.TaskType), model.MaxTokens,
		model.SupportsStreaming, model.CostPerInputToken, model.CostPerOutputToken,
		model.IsActive, model.CreatedAt, model.UpdatedAt,
	).Scan(&model.ID)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	r.InvalidateCache()
	return nil
}

// SetActive toggles a model on or off
func (r *ModelRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `UPDATE ai_models SET is_active = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(query), active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}
	if err := expectRow(result, ErrModelNotFound); err != nil {
		return err
	}

	r.InvalidateCache()
	return nil
}

// Delete removes a model. Usage history keeps its model_id.
func (r *ModelRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(`DELETE FROM ai_models WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	if err := expectRow(result, ErrModelNotFound); err != nil {
		return err
	}

	r.InvalidateCache()
	return nil
}

// InvalidateCache drops the catalog snapshot
func (r *ModelRepository) InvalidateCache() {
	r.db.invalidateCatalog()
}

func (db *DB) invalidateCatalog() {
	db.catalogCache.Delete(catalogCacheKey)
}
