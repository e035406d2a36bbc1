package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"aicore/internal/analytics"
	"aicore/internal/auth"
	"aicore/internal/dispatcher"
	"aicore/internal/middleware"
	"aicore/internal/models"
	"aicore/internal/providers"
	"aicore/internal/storage"
	"aicore/internal/utils"
)

// ChatService dispatches chat requests
type ChatService interface {
	Chat(ctx context.Context, message string, history []providers.Message, opts dispatcher.Options) (*dispatcher.Result, error)
}

// ModuleConfigReader returns the effective configuration of a module
type ModuleConfigReader interface {
	GetModuleConfiguration(ctx context.Context, moduleName string) (*models.ModuleConfiguration, error)
}

// UsageAnalytics answers usage questions
type UsageAnalytics interface {
	CurrentUsage(ctx context.Context, period analytics.Period) (*analytics.UsageSummary, error)
	TopModels(ctx context.Context, limit int, since time.Time) ([]storage.ModelUsage, error)
	TopProviders(ctx context.Context, limit int, since time.Time) ([]storage.ProviderUsage, error)
	CostTrend(ctx context.Context, days int) (*analytics.Trend, error)
	CheckQuotas(ctx context.Context) (*analytics.QuotaStatus, error)
	Report(ctx context.Context, from, to time.Time) (*analytics.Report, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Chat      ChatService
	Modules   ModuleConfigReader
	Analytics UsageAnalytics
	Health    HealthChecker
	JWTSecret []byte
	Logger    *utils.Logger
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(deps *Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = utils.NewLoggerWithWriter(io.Discard, "http", utils.Error)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Telemetry)

	r.Get("/health", deps.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(deps.JWTSecret))

		r.With(middleware.RequireRoles(auth.RoleService)).Post("/chat", deps.handleChat)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(auth.RoleViewer, auth.RoleService))
			r.Get("/modules/{module}/configuration", deps.handleModuleConfiguration)
		})

		r.Route("/usage", func(r chi.Router) {
			r.Use(middleware.RequireRoles(auth.RoleViewer))
			r.Get("/current", deps.handleCurrentUsage)
			r.Get("/top-models", deps.handleTopModels)
			r.Get("/top-providers", deps.handleTopProviders)
			r.Get("/trend", deps.handleCostTrend)
			r.Get("/report", deps.handleReport)
			r.Get("/quota", deps.handleQuota)
		})
	})

	return r
}

func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	if d.Health != nil {
		if err := d.Health.Health(r.Context()); err != nil {
			d.Logger.Error("Health check failed", "error", err.Error())
			utils.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
