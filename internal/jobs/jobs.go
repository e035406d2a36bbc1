package jobs

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"

	"aicore/internal/analytics"
	"aicore/internal/utils"
)

const jobTimeout = 2 * time.Minute

// QuotaChecker evaluates usage limits
type QuotaChecker interface {
	CheckQuotas(ctx context.Context) (*analytics.QuotaStatus, error)
}

// DeadLetterReplayer re-inserts usage rows parked after failed writes
type DeadLetterReplayer interface {
	ReplayDeadLetters(ctx context.Context, maxItems int) (int, error)
}

// Expirer drops expired cache entries and reports how many it removed
type Expirer func() int

// Config holds cron specs. An empty spec disables the job.
type Config struct {
	CacheCleanupSpec     string
	QuotaSweepSpec       string
	DeadLetterReplaySpec string
	ReplayBatchSize      int
}

// DefaultConfig returns the standard maintenance schedule
func DefaultConfig() Config {
	return Config{
		CacheCleanupSpec:     "@every 1m",
		QuotaSweepSpec:       "@hourly",
		DeadLetterReplaySpec: "@every 5m",
		ReplayBatchSize:      100,
	}
}

// Dependencies are the targets of the maintenance jobs. Nil targets skip their job.
type Dependencies struct {
	Expirers    map[string]Expirer
	Quotas      QuotaChecker
	DeadLetters DeadLetterReplayer
	Logger      *utils.Logger
}

// Scheduler runs periodic maintenance
type Scheduler struct {
	cron   *cron.Cron
	deps   Dependencies
	batch  int
	logger *utils.Logger
}

// New registers every configured job. Call Start to run them.
func New(cfg Config, deps Dependencies) (*Scheduler, error) {
	if deps.Logger == nil {
		deps.Logger = utils.NewLoggerWithWriter(io.Discard, "jobs", utils.Error)
	}
	if cfg.ReplayBatchSize <= 0 {
		cfg.ReplayBatchSize = 100
	}

	s := &Scheduler{
		cron:   cron.New(),
		deps:   deps,
		batch:  cfg.ReplayBatchSize,
		logger: deps.Logger,
	}

	if cfg.CacheCleanupSpec != "" && len(deps.Expirers) > 0 {
		if err := s.add(cfg.CacheCleanupSpec, "cache cleanup", func(context.Context) { s.cleanupCaches() }); err != nil {
			return nil, err
		}
	}
	if cfg.QuotaSweepSpec != "" && deps.Quotas != nil {
		if err := s.add(cfg.QuotaSweepSpec, "quota sweep", s.sweepQuotas); err != nil {
			return nil, err
		}
	}
	if cfg.DeadLetterReplaySpec != "" && deps.DeadLetters != nil {
		if err := s.add(cfg.DeadLetterReplaySpec, "dead letter replay", s.replayDeadLetters); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(spec, name string, job func(context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	return nil
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Maintenance jobs started", "jobs", s.Jobs())
}

// Stop stops scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Maintenance jobs did not stop in time")
	}
}

func (s *Scheduler) cleanupCaches() {
	for name, expire := range s.deps.Expirers {
		if removed := expire(); removed > 0 {
			s.logger.Debug("Expired cache entries", "cache", name, "removed", removed)
		}
	}
}

func (s *Scheduler) sweepQuotas(ctx context.Context) {
	status, err := s.deps.Quotas.CheckQuotas(ctx)
	if err != nil {
		s.logger.Error("Quota sweep failed", "error", err.Error())
		return
	}
	for _, v := range status.Violations {
		s.logger.Warn("Usage quota exceeded",
			"kind", string(v.Kind),
			"subject", v.Subject,
			"limit", v.Limit.String(),
			"current", v.Current.String(),
		)
	}
}

func (s *Scheduler) replayDeadLetters(ctx context.Context) {
	n, err := s.deps.DeadLetters.ReplayDeadLetters(ctx, s.batch)
	if err != nil {
		s.logger.Error("Dead letter replay failed", "replayed", n, "error", err.Error())
		return
	}
	if n > 0 {
		s.logger.Info("Replayed parked usage rows", "count", n)
	}
}
