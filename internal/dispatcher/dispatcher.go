package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aicore/internal/cache"
	"aicore/internal/logging"
	"aicore/internal/models"
	"aicore/internal/providers"
	"aicore/internal/routing"
	"aicore/internal/utils"
)

var tracer = otel.Tracer("aicore/dispatcher")

// ModelResolver resolves a module to a model and generation defaults
type ModelResolver interface {
	Resolve(ctx context.Context, moduleName string) (*routing.Resolution, error)
}

// ModelSelector picks a model when the module does not name one
type ModelSelector interface {
	SelectModel(ctx context.Context, task models.TaskType, maxTokensHint *int, providerHint models.ProviderType) (*models.Model, error)
}

// UsageRecorder writes the usage row of every dispatched request
type UsageRecorder interface {
	Record(ctx context.Context, entry *models.UsageLog) error
}

// Dependencies are the collaborators of a Dispatcher. Cache and Auditor
// are optional.
type Dependencies struct {
	Resolver    ModelResolver
	Selector    ModelSelector
	Factory     *providers.ProviderFactory
	Credentials CredentialDecrypter
	Recorder    UsageRecorder
	Cache       cache.Cache
	Auditor     *logging.RequestAuditor
	Logger      *utils.Logger
}

// Dispatcher sends chat requests to the resolved vendor and accounts for them
type Dispatcher struct {
	cfg      Config
	resolver ModelResolver
	selector ModelSelector
	recorder UsageRecorder
	cache    cache.Cache
	auditor  *logging.RequestAuditor
	adapters *adapterPool
	logger   *utils.Logger
}

// New creates a dispatcher
func New(cfg Config, deps Dependencies) (*Dispatcher, error) {
	switch {
	case deps.Resolver == nil:
		return nil, errors.New("dispatcher: resolver is required")
	case deps.Selector == nil:
		return nil, errors.New("dispatcher: selector is required")
	case deps.Factory == nil:
		return nil, errors.New("dispatcher: provider factory is required")
	case deps.Credentials == nil:
		return nil, errors.New("dispatcher: credential decrypter is required")
	case deps.Recorder == nil:
		return nil, errors.New("dispatcher: usage recorder is required")
	}

	if deps.Logger == nil {
		deps.Logger = utils.NewLoggerWithWriter(io.Discard, "dispatcher", utils.Error)
	}
	if !cfg.CacheEnabled {
		deps.Cache = nil
	}

	return &Dispatcher{
		cfg:      cfg,
		resolver: deps.Resolver,
		selector: deps.Selector,
		recorder: deps.Recorder,
		cache:    deps.Cache,
		auditor:  deps.Auditor,
		adapters: newAdapterPool(deps.Factory, deps.Credentials, cfg.ConnectTimeout, cfg.RequestTimeout),
		logger:   deps.Logger,
	}, nil
}

// Close releases pooled vendor connections
func (d *Dispatcher) Close() {
	d.adapters.close()
}

// Chat sends message, preceded by history, to the model resolved for
// opts.ModuleName. Every request that reaches a model produces exactly one
// usage row, whether it succeeds or fails. Cache hits produce none.
func (d *Dispatcher) Chat(ctx context.Context, message string, history []providers.Message, opts Options) (*Result, error) {
	start := time.Now()
	opts = opts.withDefaults()

	ctx, span := tracer.Start(ctx, "aicore.chat", trace.WithAttributes(
		attribute.String("aicore.module", opts.ModuleName),
		attribute.String("aicore.operation", opts.OperationType),
	))
	defer span.End()

	if !d.cfg.Enabled {
		span.SetStatus(codes.Error, ErrAIDisabled.Error())
		return nil, ErrAIDisabled
	}

	cacheKey := d.cacheKey(message, history, opts)
	if cached := d.lookup(ctx, cacheKey); cached != nil {
		span.SetAttributes(attribute.Bool("aicore.cached", true))
		return cached, nil
	}

	model, res, err := d.pickModel(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("aicore.model_id", model.ID),
		attribute.String("aicore.provider_type", string(model.Provider.ProviderType)),
	)

	req := providers.ChatRequest{
		Model:       model.ModelIdentifier,
		Messages:    buildMessages(message, history),
		MaxTokens:   res.MaxTokens,
		Temperature: res.Temperature,
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = d.cfg.DefaultMaxTokens
	}

	audit := d.auditor.Begin(ctx, logging.AuditEntry{
		ModuleName:    opts.ModuleName,
		OperationType: opts.OperationType,
		UserID:        opts.UserID,
		ModelID:       &model.ID,
		Prompt:        message,
		Metadata: models.JSONB{
			"max_tokens":    req.MaxTokens,
			"temperature":   req.Temperature,
			"history_turns": len(history),
			"provider_type": string(model.Provider.ProviderType),
		},
		IPAddress: opts.IPAddress,
		UserAgent: opts.UserAgent,
	})

	resp, callErr := d.send(ctx, model, req)
	elapsed := time.Since(start).Milliseconds()

	entry := &models.UsageLog{
		ModuleName:       opts.ModuleName,
		OperationType:    opts.OperationType,
		ModelID:          model.ID,
		UserID:           opts.UserID,
		CompanyID:        opts.CompanyID,
		ProcessingTimeMs: elapsed,
		CreatedAt:        time.Now().UTC(),
	}

	var result *Result
	if callErr == nil {
		usage := resp.Usage
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
		cost := model.CalculateCost(usage.PromptTokens, usage.CompletionTokens)

		entry.Status = models.UsageStatusSuccess
		entry.PromptTokens = usage.PromptTokens
		entry.CompletionTokens = usage.CompletionTokens
		entry.TotalTokens = usage.TotalTokens
		entry.Cost = cost

		result = &Result{
			Content:          resp.Content,
			Usage:            usage,
			Cost:             cost,
			ProcessingTimeMs: elapsed,
			ModelID:          model.ID,
			ModelIdentifier:  model.ModelIdentifier,
			ProviderType:     model.Provider.ProviderType,
		}
	} else {
		msg := utils.Truncate(callErr.Error(), models.MaxErrorMessageLength)
		entry.Status = models.UsageStatusError
		entry.ErrorMessage = &msg
	}

	if err := d.recorder.Record(ctx, entry); err != nil {
		d.logger.Error("Usage row was not recorded",
			"module", opts.ModuleName,
			"model_id", model.ID,
			"error", err.Error(),
		)
	}

	outcome := logging.Outcome{ModelID: &model.ID, Err: callErr}
	if result != nil {
		outcome.Response = result.Content
		outcome.PromptTokens = result.Usage.PromptTokens
		outcome.CompletionTokens = result.Usage.CompletionTokens
		outcome.TotalTokens = result.Usage.TotalTokens
		outcome.Cost = result.Cost
		outcome.Metadata = models.JSONB{"latency_ms": resp.ProviderLatency.Milliseconds()}
	}
	d.auditor.Complete(ctx, audit, outcome)

	if callErr != nil {
		upstream := newUpstreamError(model.ID, callErr)
		d.logger.Error("AI request failed",
			"module", opts.ModuleName,
			"model_id", model.ID,
			"kind", string(upstream.Kind),
			"error", utils.Truncate(upstream.Message, models.MaxErrorMessageLength),
		)
		span.RecordError(upstream)
		span.SetStatus(codes.Error, string(upstream.Kind))
		return nil, upstream
	}

	span.SetAttributes(
		attribute.Int("aicore.prompt_tokens", result.Usage.PromptTokens),
		attribute.Int("aicore.completion_tokens", result.Usage.CompletionTokens),
		attribute.String("aicore.cost", result.Cost.String()),
	)
	d.store(ctx, cacheKey, result)

	d.logger.Debug("AI request completed",
		"module", opts.ModuleName,
		"model_id", model.ID,
		"total_tokens", result.Usage.TotalTokens,
		"processing_time_ms", elapsed,
	)
	return result, nil
}

// pickModel resolves the module and falls back to the selector. The caller's
// maxTokens becomes a selection constraint only when it was given explicitly.
// A module's default model always wins; a model the resolver merely selected
// is re-selected when the caller supplied hints of its own.
func (d *Dispatcher) pickModel(ctx context.Context, opts Options) (*models.Model, *routing.Resolution, error) {
	res, err := d.resolver.Resolve(ctx, opts.ModuleName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve module %s: %w", opts.ModuleName, err)
	}
	hinted := opts.ProviderType != "" || opts.MaxTokens != nil
	if res.Model != nil && (!res.Selected || !hinted) {
		return res.Model, res, nil
	}

	hint := opts.ProviderType
	if hint == "" {
		hint = res.ProviderType
	}

	model, err := d.selector.SelectModel(ctx, models.TaskTypeText, opts.MaxTokens, hint)
	if errors.Is(err, routing.ErrNoModelFound) {
		return nil, nil, &NoAvailableModelError{Module: opts.ModuleName, TaskType: models.TaskTypeText}
	}
	if err != nil {
		return nil, nil, err
	}
	return model, res, nil
}

// send calls the vendor under the overall request timeout
func (d *Dispatcher) send(ctx context.Context, model *models.Model, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if model.Provider == nil {
		return nil, &providers.Error{Kind: providers.KindUnsupportedProvider, Message: "model has no provider"}
	}

	adapter, err := d.adapters.get(model.Provider)
	if err != nil {
		return nil, err
	}

	if d.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.RequestTimeout)
		defer cancel()
	}

	return adapter.Chat(ctx, req)
}

func buildMessages(message string, history []providers.Message) []providers.Message {
	messages := make([]providers.Message, 0, len(history)+1)
	messages = append(messages, history...)
	return append(messages, providers.Message{Role: "user", Content: message})
}

func (d *Dispatcher) cacheKey(message string, history []providers.Message, opts Options) string {
	if d.cache == nil {
		return ""
	}

	key, err := cache.Fingerprint(fingerprint{
		Message:       message,
		History:       history,
		ModuleName:    opts.ModuleName,
		OperationType: opts.OperationType,
		MaxTokens:     opts.MaxTokens,
		Temperature:   opts.Temperature,
		ProviderType:  opts.ProviderType,
		CompanyID:     opts.CompanyID,
	})
	if err != nil {
		d.logger.Warn("Skipping response cache", "error", err.Error())
		return ""
	}
	return key
}

func (d *Dispatcher) lookup(ctx context.Context, key string) *Result {
	if key == "" {
		return nil
	}

	data, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Warn("Response cache read failed", "error", err.Error())
		return nil
	}
	if !ok {
		return nil
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		d.logger.Warn("Discarding unreadable cache entry", "error", err.Error())
		return nil
	}
	result.Cached = true
	return &result
}

func (d *Dispatcher) store(ctx context.Context, key string, result *Result) {
	if key == "" {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		d.logger.Warn("Response cache write skipped", "error", err.Error())
		return
	}
	if err := d.cache.Set(ctx, key, data, d.cfg.CacheTTL); err != nil {
		d.logger.Warn("Response cache write failed", "error", err.Error())
	}
}
