package routing

import (
	"context"
	"errors"
	"fmt"

	"aicore/internal/models"
	"aicore/internal/storage"
)

// ModuleConfigSource reads per-module configuration
type ModuleConfigSource interface {
	GetActiveByModule(ctx context.Context, moduleName string) (*models.ModuleConfiguration, error)
}

// ModelSource looks up a model (with provider) by id
type ModelSource interface {
	GetByID(ctx context.Context, id int64) (*models.Model, error)
}

// ProviderSource looks up a provider by id
type ProviderSource interface {
	GetByID(ctx context.Context, id int64) (*models.Provider, error)
}

// Defaults are applied when a module has no active configuration
type Defaults struct {
	MaxTokens   int
	Temperature float64
}

// Resolution is the effective routing decision for a module.
// Model is nil when nothing could be chosen. Selected reports that Model
// came from the selector rather than the module's default model.
type Resolution struct {
	Model        *models.Model
	Selected     bool
	ProviderType models.ProviderType
	MaxTokens    int
	Temperature  float64
	Streaming    bool
	Configured   bool
}

// Resolver turns a module name into a model and generation defaults
type Resolver struct {
	configs   ModuleConfigSource
	models    ModelSource
	providers ProviderSource
	selector  *Selector
	defaults  Defaults
}

// NewResolver creates a resolver
func NewResolver(configs ModuleConfigSource, modelSrc ModelSource, providers ProviderSource, selector *Selector, defaults Defaults) *Resolver {
	return &Resolver{
		configs:   configs,
		models:    modelSrc,
		providers: providers,
		selector:  selector,
		defaults:  defaults,
	}
}

// Resolve applies, in order: the module's default model when it and its
// provider are active; the default provider's type as a selector hint;
// an unconstrained selection. Without an active configuration row the
// system defaults are returned and no model is chosen.
func (r *Resolver) Resolve(ctx context.Context, moduleName string) (*Resolution, error) {
	cfg, err := r.configs.GetActiveByModule(ctx, moduleName)
	if errors.Is(err, storage.ErrModuleConfigNotFound) {
		return &Resolution{
			MaxTokens:   r.defaults.MaxTokens,
			Temperature: r.defaults.Temperature,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration for module %s: %w", moduleName, err)
	}

	res := &Resolution{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Streaming:   cfg.StreamingEnabled,
		Configured:  true,
	}

	if cfg.DefaultModelID != nil {
		model, err := r.models.GetByID(ctx, *cfg.DefaultModelID)
		switch {
		case err == nil && model.IsSelectable():
			res.Model = model
			return res, nil
		case err != nil && !errors.Is(err, storage.ErrModelNotFound):
			return nil, fmt.Errorf("failed to load default model: %w", err)
		}
	}

	if cfg.DefaultProviderID != nil {
		provider, err := r.providers.GetByID(ctx, *cfg.DefaultProviderID)
		switch {
		case err == nil && provider.IsActive:
			res.ProviderType = provider.ProviderType
		case err != nil && !errors.Is(err, storage.ErrProviderNotFound):
			return nil, fmt.Errorf("failed to load default provider: %w", err)
		}
	}

	model, err := r.selector.SelectModel(ctx, models.TaskTypeText, nil, res.ProviderType)
	if err != nil && !errors.Is(err, ErrNoModelFound) {
		return nil, err
	}
	res.Model = model
	res.Selected = model != nil
	return res, nil
}

// GetModuleConfiguration returns the module's active configuration, or a
// synthesized inactive row carrying the system defaults.
func (r *Resolver) GetModuleConfiguration(ctx context.Context, moduleName string) (*models.ModuleConfiguration, error) {
	cfg, err := r.configs.GetActiveByModule(ctx, moduleName)
	if errors.Is(err, storage.ErrModuleConfigNotFound) {
		return &models.ModuleConfiguration{
			ModuleName:  moduleName,
			MaxTokens:   r.defaults.MaxTokens,
			Temperature: r.defaults.Temperature,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration for module %s: %w", moduleName, err)
	}
	return cfg, nil
}
