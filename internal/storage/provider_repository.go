package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"aicore/internal/models"
)

const providerColumns = `
	id, name, provider_type, encrypted_api_key, endpoint_url,
	requests_per_minute, tokens_per_request, cost_per_token, priority,
	is_active, created_at, updated_at, deleted_at`

// ProviderRepository handles provider database operations
type ProviderRepository struct {
	db *DB
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetByName retrieves a provider by name. Soft deleted providers are not returned.
func (r *ProviderRepository) GetByName(ctx context.Context, name string) (*models.Provider, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var provider models.Provider
	query := `SELECT ` + providerColumns + ` FROM ai_providers WHERE name = ? AND deleted_at IS NULL`

	err := r.db.conn.GetContext(ctx, &provider, r.db.rebind(query), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	return &provider, nil
}

// GetByID retrieves a provider by ID
func (r *ProviderRepository) GetByID(ctx context.Context, id int64) (*models.Provider, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var provider models.Provider
	query := `SELECT ` + providerColumns + ` FROM ai_providers WHERE id = ? AND deleted_at IS NULL`

	err := r.db.conn.GetContext(ctx, &provider, r.db.rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	return &provider, nil
}

// ProviderListFilters contains filter parameters for listing providers
type ProviderListFilters struct {
	ActiveOnly bool
	Type       models.ProviderType
}

// List returns providers ordered by priority, then name
func (r *ProviderRepository) List(ctx context.Context, filters ProviderListFilters) ([]*models.Provider, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	whereClauses := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filters.ActiveOnly {
		whereClauses = append(whereClauses, "is_active = ?")
		args = append(args, true)
	}
	if filters.Type != "" {
		whereClauses = append(whereClauses, "provider_type = ?")
		args = append(args, string(filters.Type))
	}

	query := `SELECT ` + providerColumns + ` FROM ai_providers WHERE ` +
		strings.Join(whereClauses, " AND ") + ` ORDER BY priority, name`

	var providers []*models.Provider
	if err := r.db.conn.SelectContext(ctx, &providers, r.db.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	return providers, nil
}

// Create inserts a provider. The API key must already be encrypted.
func (r *ProviderRepository) Create(ctx context.Context, provider *models.Provider) error {
	if !provider.ProviderType.IsValid() {
		return fmt.Errorf("invalid provider type %q", provider.ProviderType)
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	provider.CreatedAt = now
	provider.UpdatedAt = now

	query := `
		INSERT INTO ai_providers (
			name, provider_type, encrypted_api_key, endpoint_url,
			requests_per_minute, tokens_per_request, cost_per_token, priority,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.conn.QueryRowxContext(ctx, r.db.rebind(query),
		provider.Name, string(provider.ProviderType), provider.EncryptedAPIKey, provider.EndpointURL,
		provider.RequestsPerMinute, provider.TokensPerRequest, provider.CostPerToken, provider.Priority,
		provider.IsActive, provider.CreatedAt, provider.UpdatedAt,
	).Scan(&provider.ID)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	r.db.invalidateCatalog()
	return nil
}

// Update saves all mutable provider fields
func (r *ProviderRepository) Update(ctx context.Context, provider *models.Provider) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	provider.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE ai_providers SET
			name = ?, provider_type = ?, encrypted_api_key = ?, endpoint_url = ?,
			requests_per_minute = ?, tokens_per_request = ?, cost_per_token = ?,
			priority = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(query),
		provider.Name, string(provider.ProviderType), provider.EncryptedAPIKey, provider.EndpointURL,
		provider.RequestsPerMinute, provider.TokensPerRequest, provider.CostPerToken,
		provider.Priority, provider.IsActive, provider.UpdatedAt, provider.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	if err := expectRow(result, ErrProviderNotFound); err != nil {
		return err
	}

	r.db.invalidateCatalog()
	return nil
}

// SetActive toggles a provider on or off
func (r *ProviderRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `UPDATE ai_providers SET is_active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(query), active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	if err := expectRow(result, ErrProviderNotFound); err != nil {
		return err
	}

	r.db.invalidateCatalog()
	return nil
}

// SoftDelete marks a provider deleted. Providers that still own models cannot be deleted.
func (r *ProviderRepository) SoftDelete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var modelCount int
	if err := r.db.conn.GetContext(ctx, &modelCount,
		r.db.rebind(`SELECT COUNT(*) FROM ai_models WHERE provider_id = ?`), id); err != nil {
		return fmt.Errorf("failed to count provider models: %w", err)
	}
	if modelCount > 0 {
		return ErrProviderHasModels
	}

	now := time.Now().UTC()
	query := `UPDATE ai_providers SET deleted_at = ?, is_active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(query), now, false, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	if err := expectRow(result, ErrProviderNotFound); err != nil {
		return err
	}

	r.db.invalidateCatalog()
	return nil
}

// expectRow maps "no rows affected" to notFound.
func expectRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
