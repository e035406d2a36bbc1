package storage

import (
	"context"
	"fmt"
	"strings"
)

// dialect holds the column types that differ between PostgreSQL and SQLite.
type dialect struct {
	id        string
	timestamp string
	money     string
	json      string
}

var dialects = map[string]dialect{
	DriverPostgres: {
		id:        "BIGSERIAL PRIMARY KEY",
		timestamp: "TIMESTAMPTZ",
		money:     "NUMERIC(20,10)",
		json:      "JSONB",
	},
	DriverSQLite: {
		id:        "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestamp: "TIMESTAMP",
		money:     "NUMERIC",
		json:      "TEXT",
	},
}

// schemaStatements are applied in order. Usage and request logs keep only
// weak references to models so history survives catalog edits.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ai_providers (
		id {{ID}},
		name VARCHAR(100) NOT NULL UNIQUE,
		provider_type VARCHAR(20) NOT NULL,
		encrypted_api_key TEXT NOT NULL DEFAULT '',
		endpoint_url TEXT,
		requests_per_minute INTEGER NOT NULL DEFAULT 0,
		tokens_per_request INTEGER NOT NULL DEFAULT 0,
		cost_per_token {{MONEY}} NOT NULL DEFAULT 0,
		priority INTEGER NOT NULL DEFAULT 100,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL,
		deleted_at {{TS}}
	)`,
	`CREATE TABLE IF NOT EXISTS ai_models (
		id {{ID}},
		provider_id BIGINT NOT NULL REFERENCES ai_providers(id),
		name VARCHAR(150) NOT NULL,
		model_identifier VARCHAR(150) NOT NULL,
		task_type VARCHAR(20) NOT NULL DEFAULT 'text',
		max_tokens INTEGER NOT NULL DEFAULT 4096,
		supports_streaming BOOLEAN NOT NULL DEFAULT FALSE,
		cost_per_input_token {{MONEY}} NOT NULL DEFAULT 0,
		cost_per_output_token {{MONEY}} NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL,
		UNIQUE (provider_id, model_identifier)
	)`,
	`CREATE TABLE IF NOT EXISTS ai_module_configurations (
		id {{ID}},
		module_name VARCHAR(100) NOT NULL UNIQUE,
		default_provider_id BIGINT,
		default_model_id BIGINT,
		max_tokens INTEGER NOT NULL DEFAULT 2048,
		temperature DOUBLE PRECISION NOT NULL DEFAULT 0.7,
		streaming_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		priority INTEGER NOT NULL DEFAULT 0,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ai_usage_logs (
		id {{ID}},
		module_name VARCHAR(100) NOT NULL,
		operation_type VARCHAR(100) NOT NULL,
		model_id BIGINT NOT NULL,
		user_id BIGINT,
		company_id BIGINT,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		cost {{MONEY}} NOT NULL DEFAULT 0,
		processing_time_ms BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(10) NOT NULL,
		error_message TEXT,
		created_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_usage_logs_created_at ON ai_usage_logs (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_usage_logs_model ON ai_usage_logs (model_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_usage_logs_module ON ai_usage_logs (module_name, created_at)`,
	`CREATE TABLE IF NOT EXISTS ai_request_logs (
		id {{ID}},
		request_id VARCHAR(36) NOT NULL UNIQUE,
		user_id BIGINT,
		module_name VARCHAR(100) NOT NULL,
		operation_type VARCHAR(100) NOT NULL,
		model_id BIGINT,
		prompt TEXT NOT NULL,
		response TEXT,
		request_metadata {{JSON}},
		response_metadata {{JSON}},
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		cost {{MONEY}} NOT NULL DEFAULT 0,
		status VARCHAR(10) NOT NULL,
		error_message TEXT,
		ip_address VARCHAR(45),
		user_agent TEXT,
		reviewed_by BIGINT,
		reviewed_at {{TS}},
		is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_request_logs_flagged ON ai_request_logs (is_flagged, created_at)`,
}

func (d dialect) render(stmt string) string {
	return strings.NewReplacer(
		"{{ID}}", d.id,
		"{{TS}}", d.timestamp,
		"{{MONEY}}", d.money,
		"{{JSON}}", d.json,
	).Replace(stmt)
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	d, ok := dialects[db.driver]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDriver, db.driver)
	}

	for i, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, d.render(stmt)); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
