package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aicore/internal/models"
)

const moduleConfigColumns = `
	id, module_name, default_provider_id, default_model_id, max_tokens,
	temperature, streaming_enabled, is_active, priority, created_at, updated_at`

// ModuleConfigRepository handles per-module AI configuration
type ModuleConfigRepository struct {
	db *DB
}

// NewModuleConfigRepository creates a new module configuration repository
func NewModuleConfigRepository(db *DB) *ModuleConfigRepository {
	return &ModuleConfigRepository{db: db}
}

// GetActiveByModule returns the active configuration for a module
func (r *ModuleConfigRepository) GetActiveByModule(ctx context.Context, moduleName string) (*models.ModuleConfiguration, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + moduleConfigColumns + ` FROM ai_module_configurations
		WHERE module_name = ? AND is_active = ?`

	var cfg models.ModuleConfiguration
	if err := r.db.conn.GetContext(ctx, &cfg, r.db.rebind(query), moduleName, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModuleConfigNotFound
		}
		return nil, fmt.Errorf("failed to get module configuration: %w", err)
	}

	return &cfg, nil
}

// List returns every module configuration in display order
func (r *ModuleConfigRepository) List(ctx context.Context) ([]*models.ModuleConfiguration, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + moduleConfigColumns + ` FROM ai_module_configurations ORDER BY priority DESC, module_name`

	var configs []*models.ModuleConfiguration
	if err := r.db.conn.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("failed to list module configurations: %w", err)
	}
	return configs, nil
}

// Upsert creates or replaces the configuration keyed by module name
func (r *ModuleConfigRepository) Upsert(ctx context.Context, cfg *models.ModuleConfiguration) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	query := `
		INSERT INTO ai_module_configurations (
			module_name, default_provider_id, default_model_id, max_tokens,
			temperature, streaming_enabled, is_active, priority, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (module_name) DO UPDATE SET
			default_provider_id = excluded.default_provider_id,
			default_model_id = excluded.default_model_id,
			max_tokens = excluded.max_tokens,
			temperature = excluded.temperature,
			streaming_enabled = excluded.streaming_enabled,
			is_active = excluded.is_active,
			priority = excluded.priority,
			updated_at = excluded.updated_at
		RETURNING id`

	err := r.db.conn.QueryRowxContext(ctx, r.db.rebind(query),
		cfg.ModuleName, cfg.DefaultProviderID, cfg.DefaultModelID, cfg.MaxTokens,
		cfg.Temperature, cfg.StreamingEnabled, cfg.IsActive, cfg.Priority, cfg.CreatedAt, cfg.UpdatedAt,
	).Scan(&cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to save module configuration: %w", err)
	}
	return nil
}
