package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"aicore/internal/analytics"
	"aicore/internal/cache"
	"aicore/internal/config"
	"aicore/internal/dispatcher"
	"aicore/internal/httpapi"
	"aicore/internal/jobs"
	"aicore/internal/logging"
	"aicore/internal/providers"
	"aicore/internal/queue"
	"aicore/internal/routing"
	"aicore/internal/storage"
	"aicore/internal/telemetry"
	"aicore/internal/usage"
	"aicore/internal/utils"
)

const deadLetterQueueName = "usage"

// App is the fully wired AI core
type App struct {
	Config     *config.Config
	DB         *storage.DB
	UsageDB    *storage.DB
	Encryption *storage.Encryption
	Resolver   *routing.Resolver
	Dispatcher *dispatcher.Dispatcher
	Recorder   *usage.Recorder
	Analytics  *analytics.Service
	Jobs       *jobs.Scheduler
	Router     http.Handler

	deadLetters       queue.DeadLetterQueue
	redis             *redis.Client
	shutdownTelemetry func(context.Context) error
	logger            *utils.Logger
}

// DBConfig maps service configuration onto the storage layer
func DBConfig(cfg *config.Config) storage.DBConfig {
	return storage.DBConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		QueryTimeout:    cfg.Database.QueryTimeout,
		CatalogCacheTTL: cfg.Cache.CatalogCacheTTL,
	}
}

// OpenDB connects to the main database and applies the schema
func OpenDB(ctx context.Context, cfg *config.Config) (*storage.DB, error) {
	db, err := storage.NewDB(DBConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Build wires every component. Close releases them.
func Build(ctx context.Context, cfg *config.Config) (a *App, err error) {
	logger := utils.NewLogger("aicore", utils.ParseLogLevel(cfg.LogLevel))
	a = &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
			a = nil
		}
	}()

	a.shutdownTelemetry, err = telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		return a, err
	}

	if cfg.EncryptionKey == "" {
		return a, errors.New("ENCRYPTION_KEY is required")
	}
	a.Encryption, err = storage.NewEncryptionFromConfig(cfg.EncryptionKey)
	if err != nil {
		return a, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	a.DB, err = OpenDB(ctx, cfg)
	if err != nil {
		return a, err
	}
	a.UsageDB, err = storage.OpenUsageDB(DBConfig(cfg), cfg.Usage.MaxOpenConns)
	if err != nil {
		return a, fmt.Errorf("failed to initialize usage database: %w", err)
	}

	a.deadLetters, err = queue.New(&queue.Config{
		UseRedis:      cfg.Usage.DeadLetterBackend == "redis",
		RedisAddr:     cfg.Redis.Address,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		QueueName:     deadLetterQueueName,
	})
	if err != nil {
		return a, fmt.Errorf("failed to initialize dead letter queue: %w", err)
	}

	a.Recorder = usage.NewRecorder(a.UsageDB.NewUsageRepository(), usage.Config{
		WriteTimeout: cfg.Usage.WriteTimeout,
		DeadLetters:  a.deadLetters,
		Logger:       utils.NewLogger("usage", utils.ParseLogLevel(cfg.LogLevel)),
	})

	responseCache, expirers, err := a.buildResponseCache(ctx)
	if err != nil {
		return a, err
	}
	expirers["catalog"] = a.DB.CleanupExpiredCacheEntries

	selector := routing.NewSelector(a.DB.NewModelRepository())
	a.Resolver = routing.NewResolver(
		a.DB.NewModuleConfigRepository(),
		a.DB.NewModelRepository(),
		a.DB.NewProviderRepository(),
		selector,
		routing.Defaults{MaxTokens: cfg.AI.DefaultMaxTokens, Temperature: cfg.AI.DefaultTemperature},
	)

	a.Dispatcher, err = dispatcher.New(dispatcher.Config{
		Enabled:            cfg.AI.Enabled,
		DefaultMaxTokens:   cfg.AI.DefaultMaxTokens,
		DefaultTemperature: cfg.AI.DefaultTemperature,
		ConnectTimeout:     cfg.AI.ConnectTimeout,
		RequestTimeout:     cfg.AI.RequestTimeout,
		CacheEnabled:       cfg.Cache.ResponseCacheEnabled,
		CacheTTL:           cfg.Cache.ResponseCacheTTL,
	}, dispatcher.Dependencies{
		Resolver:    a.Resolver,
		Selector:    selector,
		Factory:     providers.NewProviderFactory(),
		Credentials: a.Encryption,
		Recorder:    a.Recorder,
		Cache:       responseCache,
		Auditor:     logging.NewRequestAuditor(a.DB.NewRequestLogRepository(), cfg.AI.LogRequests, utils.NewLogger("audit", utils.ParseLogLevel(cfg.LogLevel))),
		Logger:      utils.NewLogger("dispatcher", utils.ParseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return a, err
	}

	a.Analytics = analytics.NewService(a.DB.NewUsageRepository(), analytics.Limits{
		DailyTokenLimit:   cfg.Quota.DailyTokenLimit,
		MonthlyCostBudget: cfg.Quota.MonthlyCostBudget,
	})

	a.Jobs, err = jobs.New(jobs.DefaultConfig(), jobs.Dependencies{
		Expirers:    expirers,
		Quotas:      a.Analytics,
		DeadLetters: a.Recorder,
		Logger:      utils.NewLogger("jobs", utils.ParseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return a, err
	}

	a.Router = httpapi.NewRouter(&httpapi.Dependencies{
		Chat:      a.Dispatcher,
		Modules:   a.Resolver,
		Analytics: a.Analytics,
		Health:    a.DB,
		JWTSecret: cfg.JWTSecret,
		Logger:    utils.NewLogger("http", utils.ParseLogLevel(cfg.LogLevel)),
	})

	return a, nil
}

// buildResponseCache returns nil when response caching is off
func (a *App) buildResponseCache(ctx context.Context) (cache.Cache, map[string]jobs.Expirer, error) {
	cfg := a.Config
	expirers := map[string]jobs.Expirer{}
	if !cfg.Cache.ResponseCacheEnabled {
		return nil, expirers, nil
	}

	switch cfg.Cache.ResponseCacheBackend {
	case "", "memory":
		mem := cache.NewMemoryCache(cfg.Cache.ResponseCacheSize, cfg.Cache.ResponseCacheTTL)
		expirers["response"] = mem.CleanupExpired
		return mem, expirers, nil
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return cache.NewRedisCache(a.redis), expirers, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", cache.ErrUnknownBackend, cfg.Cache.ResponseCacheBackend)
	}
}

// Close releases every component that was built. It is safe on a partial App.
func (a *App) Close(ctx context.Context) {
	if a.Jobs != nil {
		a.Jobs.Stop(ctx)
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.deadLetters != nil {
		if err := a.deadLetters.Close(); err != nil {
			a.logger.Warn("Failed to close dead letter queue", "error", err.Error())
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.UsageDB != nil {
		a.UsageDB.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			a.logger.Warn("Failed to flush telemetry", "error", err.Error())
		}
	}
}
