package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds configuration for the AI core service.
type Config struct {
	HTTPPort      string
	JWTSecret     []byte
	EncryptionKey string
	LogLevel      string
	ManifestPath  string
	Database      DatabaseConfig
	Usage         UsageConfig
	Cache         CacheConfig
	Redis         RedisConfig
	AI            AIConfig
	Quota         QuotaConfig
	Telemetry     TelemetryConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite3
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// UsageConfig holds settings for the usage recorder's own database pool.
type UsageConfig struct {
	MaxOpenConns      int
	WriteTimeout      time.Duration
	DeadLetterBackend string // memory or redis
}

// CacheConfig holds cache settings
type CacheConfig struct {
	CatalogCacheTTL      time.Duration
	ResponseCacheEnabled bool
	ResponseCacheBackend string // memory or redis
	ResponseCacheSize    int
	ResponseCacheTTL     time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AIConfig holds the dispatch tunables.
type AIConfig struct {
	Enabled            bool
	LogRequests        bool
	DefaultMaxTokens   int
	DefaultTemperature float64
	ConnectTimeout     time.Duration
	RequestTimeout     time.Duration
}

// QuotaConfig holds the limits checked by usage analytics.
// Zero values disable the corresponding check.
type QuotaConfig struct {
	DailyTokenLimit   int64
	MonthlyCostBudget decimal.Decimal
}

// TelemetryConfig holds OpenTelemetry exporter settings
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvFloat(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	driver := getEnvString("DATABASE_DRIVER", "postgres")
	if driver != "postgres" && driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	budget := decimal.Zero
	if raw := os.Getenv("QUOTA_MONTHLY_COST_BUDGET"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid QUOTA_MONTHLY_COST_BUDGET: %w", err)
		}
		budget = parsed
	}

	cfg := &Config{
		HTTPPort:      getEnvString("HTTP_PORT", "8080"),
		JWTSecret:     []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		ManifestPath:  getEnvString("AI_MODULE_MANIFEST", "ai-modules.yaml"),
		Database: DatabaseConfig{
			Driver:          driver,
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
			QueryTimeout:    getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Usage: UsageConfig{
			MaxOpenConns:      getEnvInt("USAGE_DB_MAX_OPEN_CONNS", 4),
			WriteTimeout:      getEnvDuration("USAGE_WRITE_TIMEOUT", 5*time.Second),
			DeadLetterBackend: strings.ToLower(getEnvString("USAGE_DEAD_LETTER_BACKEND", "memory")),
		},
		Cache: CacheConfig{
			CatalogCacheTTL:      getEnvDuration("CACHE_CATALOG_TTL", 30*time.Second),
			ResponseCacheEnabled: getEnvBool("AI_CACHE_ENABLED", false),
			ResponseCacheBackend: strings.ToLower(getEnvString("AI_CACHE_BACKEND", "memory")),
			ResponseCacheSize:    getEnvInt("AI_CACHE_SIZE", 1000),
			ResponseCacheTTL:     getEnvDuration("AI_CACHE_TTL", time.Hour),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		AI: AIConfig{
			Enabled:            getEnvBool("AI_ENABLED", true),
			LogRequests:        getEnvBool("AI_LOG_REQUESTS", false),
			DefaultMaxTokens:   getEnvInt("AI_DEFAULT_MAX_TOKENS", 2048),
			DefaultTemperature: getEnvFloat("AI_DEFAULT_TEMPERATURE", 0.7),
			ConnectTimeout:     getEnvDuration("AI_CONNECT_TIMEOUT", 10*time.Second),
			RequestTimeout:     getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
		},
		Quota: QuotaConfig{
			DailyTokenLimit:   getEnvInt64("QUOTA_DAILY_TOKEN_LIMIT", 0),
			MonthlyCostBudget: budget,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnvString("OTEL_SERVICE_NAME", "aicore"),
		},
	}

	return cfg, nil
}
