package usage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"aicore/internal/models"
	"aicore/internal/queue"
	"aicore/internal/utils"
)

// ErrUsageRecordingFailed is returned when both write attempts failed.
// Callers log it; it never replaces the outcome of the request being recorded.
var ErrUsageRecordingFailed = errors.New("usage recording failed")

const defaultWriteTimeout = 5 * time.Second

// Writer persists usage rows. Create uses the dedicated usage pool in
// autocommit mode; CreateOnFreshConn opens a new connection and commits an
// explicit transaction.
type Writer interface {
	Create(ctx context.Context, entry *models.UsageLog) error
	CreateOnFreshConn(ctx context.Context, entry *models.UsageLog) error
}

// Config holds recorder settings
type Config struct {
	// WriteTimeout bounds each write attempt
	WriteTimeout time.Duration

	// DeadLetters receives rows that could not be written. Optional.
	DeadLetters queue.DeadLetterQueue

	Logger *utils.Logger
}

// Recorder writes exactly one usage row per dispatched request. The writer
// must be built on a database handle that no caller transaction can touch.
type Recorder struct {
	writer       Writer
	deadLetters  queue.DeadLetterQueue
	writeTimeout time.Duration
	logger       *utils.Logger
}

// NewRecorder creates a usage recorder
func NewRecorder(writer Writer, cfg Config) *Recorder {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = utils.NewLoggerWithWriter(io.Discard, "usage", utils.Error)
	}

	return &Recorder{
		writer:       writer,
		deadLetters:  cfg.DeadLetters,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
	}
}

// Record writes entry, retrying once on a fresh connection. Caller
// cancellation does not abort the write. On total failure the row is parked
// in the dead-letter queue and ErrUsageRecordingFailed is returned.
func (r *Recorder) Record(ctx context.Context, entry *models.UsageLog) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Usage recorder panicked", "panic", fmt.Sprint(p), "module", entry.ModuleName)
			err = fmt.Errorf("%w: panic: %v", ErrUsageRecordingFailed, p)
		}
	}()

	normalize(entry)
	base := context.WithoutCancel(ctx)

	firstErr := r.attempt(base, r.writer.Create, entry)
	if firstErr == nil {
		return nil
	}
	r.logger.Warn("Usage write failed, retrying on a fresh connection",
		"module", entry.ModuleName,
		"model_id", entry.ModelID,
		"error", firstErr.Error(),
	)

	secondErr := r.attempt(base, r.writer.CreateOnFreshConn, entry)
	if secondErr == nil {
		return nil
	}

	r.logger.Error("Usage recording failed",
		"module", entry.ModuleName,
		"operation", entry.OperationType,
		"model_id", entry.ModelID,
		"status", string(entry.Status),
		"prompt_tokens", entry.PromptTokens,
		"completion_tokens", entry.CompletionTokens,
		"total_tokens", entry.TotalTokens,
		"cost", entry.Cost.String(),
		"processing_time_ms", entry.ProcessingTimeMs,
		"first_error", firstErr.Error(),
		"error", secondErr.Error(),
	)

	r.park(base, entry, secondErr)
	return fmt.Errorf("%w: %v", ErrUsageRecordingFailed, secondErr)
}

func (r *Recorder) attempt(ctx context.Context, write func(context.Context, *models.UsageLog) error, entry *models.UsageLog) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	return write(ctx, entry)
}

func (r *Recorder) park(ctx context.Context, entry *models.UsageLog, cause error) {
	if r.deadLetters == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if err := r.deadLetters.Add(ctx, entry, cause); err != nil {
		r.logger.Error("Failed to park usage row in dead letter queue",
			"module", entry.ModuleName,
			"model_id", entry.ModelID,
			"error", err.Error(),
		)
	}
}

// ReplayDeadLetters re-inserts up to maxItems parked rows and removes the
// ones that were written. It returns how many rows were replayed.
func (r *Recorder) ReplayDeadLetters(ctx context.Context, maxItems int) (int, error) {
	if r.deadLetters == nil {
		return 0, nil
	}

	items, err := r.deadLetters.List(ctx, maxItems)
	if err != nil {
		return 0, fmt.Errorf("failed to list parked usage rows: %w", err)
	}

	replayed := 0
	for _, item := range items {
		var entry models.UsageLog
		if err := item.Decode(&entry); err != nil {
			r.logger.Error("Dropping undecodable usage row", "id", item.ID, "error", err.Error())
			_ = r.deadLetters.Remove(ctx, item.ID)
			continue
		}
		entry.ID = 0

		if err := r.attempt(context.WithoutCancel(ctx), r.writer.Create, &entry); err != nil {
			r.logger.Warn("Replay of parked usage row failed", "id", item.ID, "error", err.Error())
			continue
		}
		if err := r.deadLetters.Remove(ctx, item.ID); err != nil && !errors.Is(err, queue.ErrItemNotFound) {
			return replayed, fmt.Errorf("failed to remove replayed usage row %s: %w", item.ID, err)
		}
		replayed++
	}

	if replayed > 0 {
		r.logger.Info("Replayed parked usage rows", "count", replayed)
	}
	return replayed, nil
}

// normalize fills defaults and bounds the error message
func normalize(entry *models.UsageLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.UsageStatusError
	}
	if entry.ErrorMessage != nil {
		msg := utils.Truncate(*entry.ErrorMessage, models.MaxErrorMessageLength)
		entry.ErrorMessage = &msg
	}
}
