package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DB wraps the database connection and provides health checks.
// Queries are written with ? placeholders and rebound for the driver.
type DB struct {
	conn         *sqlx.DB
	driver       string
	dsn          string
	queryTimeout time.Duration

	// Snapshot of the active model catalog
	catalogCache *LRUCache
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver string
	DSN    string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeouts
	QueryTimeout time.Duration

	// Cache settings
	CatalogCacheTTL time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() DBConfig {
	return DBConfig{
		Driver: DriverPostgres,
		DSN:    "host=localhost port=5432 dbname=aicore user=postgres sslmode=disable",

		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		QueryTimeout: 5 * time.Second,

		CatalogCacheTTL: 30 * time.Second,
	}
}

// ForUsage returns a copy of cfg sized for the usage recorder's own pool.
// The recorder never shares connections with the main pool.
func (cfg DBConfig) ForUsage(maxOpenConns int) DBConfig {
	usage := cfg
	if maxOpenConns <= 0 {
		maxOpenConns = 2
	}
	usage.MaxOpenConns = maxOpenConns
	usage.MaxIdleConns = maxOpenConns
	return usage
}

// OpenUsageDB opens the dedicated pool used only for usage log writes
func OpenUsageDB(cfg DBConfig, maxOpenConns int) (*DB, error) {
	return NewDB(cfg.ForUsage(maxOpenConns))
}

// NewDB creates a new database connection with caching
func NewDB(cfg DBConfig) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}

	conn, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ttl := cfg.CatalogCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &DB{
		conn:         conn,
		driver:       cfg.Driver,
		dsn:          cfg.DSN,
		queryTimeout: cfg.QueryTimeout,
		catalogCache: NewLRUCache(16, ttl),
	}, nil
}

// Close closes the database connection and clears caches
func (db *DB) Close() error {
	db.catalogCache.Clear()
	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := db.conn.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// Stats returns database statistics
type DBStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration

	CatalogCacheStats CacheStats
}

// GetStats returns current database and cache statistics
func (db *DB) GetStats() DBStats {
	stats := db.conn.Stats()

	return DBStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,

		CatalogCacheStats: db.catalogCache.GetStats(),
	}
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Conn returns the underlying sqlx connection
// Use this for custom queries not covered by repositories
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}

// GetCatalogCache returns the catalog snapshot cache
func (db *DB) GetCatalogCache() *LRUCache {
	return db.catalogCache
}

// CleanupExpiredCacheEntries removes expired entries from all caches
func (db *DB) CleanupExpiredCacheEntries() int {
	return db.catalogCache.CleanupExpired()
}

// rebind converts ? placeholders to the driver's bindvar style.
func (db *DB) rebind(query string) string {
	return db.conn.Rebind(query)
}

// withTimeout bounds a single query by the configured query timeout.
func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// openFresh opens a brand new single connection pool from the same DSN.
// The caller owns the returned handle and must close it.
func (db *DB) openFresh(ctx context.Context) (*sqlx.DB, error) {
	fresh, err := sqlx.Open(db.driver, db.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open fresh connection: %w", err)
	}
	fresh.SetMaxOpenConns(1)
	fresh.SetMaxIdleConns(0)
	if err := fresh.PingContext(ctx); err != nil {
		fresh.Close()
		return nil, fmt.Errorf("failed to reach database on fresh connection: %w", err)
	}
	return fresh, nil
}

// Repository factory methods

// NewModelRepository creates a new model repository
func (db *DB) NewModelRepository() *ModelRepository {
	return NewModelRepository(db)
}

// NewProviderRepository creates a new provider repository
func (db *DB) NewProviderRepository() *ProviderRepository {
	return NewProviderRepository(db)
}

// NewModuleConfigRepository creates a new module configuration repository
func (db *DB) NewModuleConfigRepository() *ModuleConfigRepository {
	return NewModuleConfigRepository(db)
}

// NewUsageRepository creates a new usage repository
func (db *DB) NewUsageRepository() *UsageRepository {
	return NewUsageRepository(db)
}

// NewRequestLogRepository creates a new request log repository
func (db *DB) NewRequestLogRepository() *RequestLogRepository {
	return NewRequestLogRepository(db)
}
