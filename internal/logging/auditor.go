package logging

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aicore/internal/models"
	"aicore/internal/storage"
	"aicore/internal/utils"
)

const auditWriteTimeout = 5 * time.Second

// AuditStore persists request audit records
type AuditStore interface {
	Create(ctx context.Context, entry *models.RequestLog) error
	Complete(ctx context.Context, id int64, c storage.RequestLogCompletion) error
}

// RequestAuditor keeps the mutable ai_request_logs trail: a pending row when
// a request starts and its terminal state when it ends. Audit failures are
// logged and never affect the request.
type RequestAuditor struct {
	store   AuditStore
	enabled bool
	logger  *utils.Logger
}

// NewRequestAuditor creates an auditor. A nil store or enabled=false makes
// every call a no-op.
func NewRequestAuditor(store AuditStore, enabled bool, logger *utils.Logger) *RequestAuditor {
	if logger == nil {
		logger = utils.NewLoggerWithWriter(io.Discard, "audit", utils.Error)
	}
	return &RequestAuditor{
		store:   store,
		enabled: enabled && store != nil,
		logger:  logger,
	}
}

// Enabled reports whether requests are being audited
func (a *RequestAuditor) Enabled() bool {
	return a != nil && a.enabled
}

// AuditEntry describes a request as it starts
type AuditEntry struct {
	ModuleName    string
	OperationType string
	UserID        *int64
	ModelID       *int64
	Prompt        string
	Metadata      models.JSONB
	IPAddress     string
	UserAgent     string
}

// Audit is a handle to an in-flight audit record
type Audit struct {
	ID        int64
	RequestID string
}

// Begin writes a pending record. It returns nil when auditing is off or the
// write failed.
func (a *RequestAuditor) Begin(ctx context.Context, e AuditEntry) *Audit {
	if !a.Enabled() {
		return nil
	}

	entry := &models.RequestLog{
		RequestID:       uuid.NewString(),
		UserID:          e.UserID,
		ModuleName:      e.ModuleName,
		OperationType:   e.OperationType,
		ModelID:         e.ModelID,
		Prompt:          e.Prompt,
		RequestMetadata: e.Metadata,
		Status:          models.UsageStatusPending,
		IPAddress:       utils.StringPtrOrNil(e.IPAddress),
		UserAgent:       utils.StringPtrOrNil(e.UserAgent),
		Cost:            decimal.Zero,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := a.store.Create(ctx, entry); err != nil {
		a.logger.Warn("Failed to write request audit", "module", e.ModuleName, "error", err.Error())
		return nil
	}
	return &Audit{ID: entry.ID, RequestID: entry.RequestID}
}

// Outcome is the terminal state of an audited request
type Outcome struct {
	ModelID          *int64
	Response         string
	Metadata         models.JSONB
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             decimal.Decimal
	Err              error
}

// Complete moves the record to success or error. A nil audit is ignored.
func (a *RequestAuditor) Complete(ctx context.Context, audit *Audit, o Outcome) {
	if audit == nil || !a.Enabled() {
		return
	}

	c := storage.RequestLogCompletion{
		Status:           models.UsageStatusSuccess,
		ModelID:          o.ModelID,
		ResponseMetadata: o.Metadata,
		PromptTokens:     o.PromptTokens,
		CompletionTokens: o.CompletionTokens,
		TotalTokens:      o.TotalTokens,
		Cost:             o.Cost,
	}
	if o.Err != nil {
		c.Status = models.UsageStatusError
		msg := utils.Truncate(o.Err.Error(), models.MaxErrorMessageLength)
		c.ErrorMessage = &msg
	} else {
		c.Response = &o.Response
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := a.store.Complete(ctx, audit.ID, c); err != nil {
		a.logger.Warn("Failed to complete request audit", "request_id", audit.RequestID, "error", err.Error())
	}
}
