package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aicore/internal/storage"
)

// ErrInvalidRange is returned when a report window ends before it starts
// or spans more than maxReportDays
var ErrInvalidRange = errors.New("invalid date range")

const (
	defaultTopLimit  = 10
	defaultTrendDays = 30
	maxTrendDays     = 366
	maxReportDays    = 366
)

// Store is the read side of the usage log
type Store interface {
	Totals(ctx context.Context, from, to time.Time) (*storage.UsageTotals, error)
	TopModels(ctx context.Context, since time.Time, limit int) ([]storage.ModelUsage, error)
	ModelsBetween(ctx context.Context, from, to time.Time, limit int) ([]storage.ModelUsage, error)
	TopProviders(ctx context.Context, since time.Time, limit int) ([]storage.ProviderUsage, error)
	ByModule(ctx context.Context, from, to time.Time) ([]storage.ModuleUsage, error)
	CostPoints(ctx context.Context, from, to time.Time) ([]storage.CostPoint, error)
}

// Service answers read-only questions about recorded usage. Empty data
// yields zero values, never errors.
type Service struct {
	store  Store
	limits Limits
	now    func() time.Time
}

// NewService creates an analytics service
func NewService(store Store, limits Limits) *Service {
	return &Service{
		store:  store,
		limits: limits,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// UsageSummary is usage within one calendar period
type UsageSummary struct {
	Period Period    `json:"period"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	storage.UsageTotals
}

// CurrentUsage totals usage from the start of the current period
func (s *Service) CurrentUsage(ctx context.Context, period Period) (*UsageSummary, error) {
	from, to, err := period.Bounds(s.now())
	if err != nil {
		return nil, err
	}

	totals, err := s.store.Totals(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &UsageSummary{Period: period, From: from, To: to, UsageTotals: *totals}, nil
}

// TopModels ranks models by request count since a point in time
func (s *Service) TopModels(ctx context.Context, limit int, since time.Time) ([]storage.ModelUsage, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	result, err := s.store.TopModels(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []storage.ModelUsage{}
	}
	return result, nil
}

// TopProviders ranks providers by request count since a point in time
func (s *Service) TopProviders(ctx context.Context, limit int, since time.Time) ([]storage.ProviderUsage, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	result, err := s.store.TopProviders(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []storage.ProviderUsage{}
	}
	return result, nil
}

// CostTrend returns the daily spend of the last days days, today included
func (s *Service) CostTrend(ctx context.Context, days int) (*Trend, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	to := startOfDay(s.now()).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	points, err := s.store.CostPoints(ctx, from, to)
	if err != nil {
		return nil, err
	}

	series := bucketDaily(points, from, to)
	first, second, change, dir := classify(series)

	total := decimal.Zero
	for _, d := range series {
		total = total.Add(d.Cost)
	}

	return &Trend{
		Days:              days,
		Series:            series,
		Total:             total,
		FirstHalfAverage:  first,
		SecondHalfAverage: second,
		ChangePercent:     change,
		Direction:         dir,
	}, nil
}

// CheckQuotas compares rolling windows against the configured limits:
// tokens over 24h, cost over 30 days, and each provider's requests over
// 24h against requests_per_minute x 1440.
func (s *Service) CheckQuotas(ctx context.Context) (*QuotaStatus, error) {
	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)
	monthAgo := now.AddDate(0, 0, -30)

	daily, err := s.store.Totals(ctx, dayAgo, now.Add(time.Second))
	if err != nil {
		return nil, err
	}
	monthly, err := s.store.Totals(ctx, monthAgo, now.Add(time.Second))
	if err != nil {
		return nil, err
	}

	status := &QuotaStatus{
		DailyTokens: daily.TotalTokens,
		MonthlyCost: monthly.Cost,
		Violations:  []QuotaViolation{},
	}

	if s.limits.DailyTokenLimit > 0 && daily.TotalTokens > s.limits.DailyTokenLimit {
		status.Violations = append(status.Violations, QuotaViolation{
			Kind:    QuotaDailyTokens,
			Limit:   decimal.NewFromInt(s.limits.DailyTokenLimit),
			Current: decimal.NewFromInt(daily.TotalTokens),
		})
	}

	if s.limits.MonthlyCostBudget.IsPositive() && monthly.Cost.GreaterThan(s.limits.MonthlyCostBudget) {
		status.Violations = append(status.Violations, QuotaViolation{
			Kind:    QuotaMonthlyCost,
			Limit:   s.limits.MonthlyCostBudget,
			Current: monthly.Cost,
		})
	}

	providers, err := s.store.TopProviders(ctx, dayAgo, 0)
	if err != nil {
		return nil, err
	}
	for _, p := range providers {
		dailyCap := int64(p.RequestsPerMinute) * 1440
		if dailyCap <= 0 || p.Requests <= dailyCap {
			continue
		}
		status.Violations = append(status.Violations, QuotaViolation{
			Kind:    QuotaProviderDailyRequests,
			Subject: p.ProviderName,
			Limit:   decimal.NewFromInt(dailyCap),
			Current: decimal.NewFromInt(p.Requests),
		})
	}

	return status, nil
}

// StatusCounts splits requests by outcome
type StatusCounts struct {
	Success int64 `json:"success"`
	Error   int64 `json:"error"`
}

// Report is a full usage breakdown for a date range
type Report struct {
	From       time.Time             `json:"from"`
	To         time.Time             `json:"to"`
	Totals     storage.UsageTotals   `json:"totals"`
	ByModel    []storage.ModelUsage  `json:"by_model"`
	ByModule   []storage.ModuleUsage `json:"by_module"`
	ByStatus   StatusCounts          `json:"by_status"`
	DailyCosts []DailyCost           `json:"daily_costs"`
}

// Report aggregates usage in [from, to)
func (s *Service) Report(ctx context.Context, from, to time.Time) (*Report, error) {
	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrInvalidRange, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return nil, fmt.Errorf("%w: reports span at most %d days", ErrInvalidRange, maxReportDays)
	}

	totals, err := s.store.Totals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byModel, err := s.store.ModelsBetween(ctx, from, to, 0)
	if err != nil {
		return nil, err
	}
	byModule, err := s.store.ByModule(ctx, from, to)
	if err != nil {
		return nil, err
	}
	points, err := s.store.CostPoints(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if byModel == nil {
		byModel = []storage.ModelUsage{}
	}
	if byModule == nil {
		byModule = []storage.ModuleUsage{}
	}

	return &Report{
		From:       from,
		To:         to,
		Totals:     *totals,
		ByModel:    byModel,
		ByModule:   byModule,
		ByStatus:   StatusCounts{Success: totals.SuccessCount, Error: totals.ErrorCount},
		DailyCosts: bucketDaily(points, from, to),
	}, nil
}
