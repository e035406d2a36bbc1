package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"aicore/internal/config"
	"aicore/internal/models"
	"aicore/internal/storage"
	"aicore/internal/utils"
)

// ProviderSpec describes a provider to register. APIKey is plaintext.
type ProviderSpec struct {
	Name              string
	Type              models.ProviderType
	APIKey            string
	EndpointURL       string
	RequestsPerMinute int
	Priority          int
}

// RegisterProvider encrypts the key and stores a new active provider
func RegisterProvider(ctx context.Context, db *storage.DB, enc *storage.Encryption, spec ProviderSpec) (*models.Provider, error) {
	if spec.Name == "" {
		return nil, errors.New("provider name is required")
	}
	if spec.APIKey == "" && spec.Type != models.ProviderTypeLocal {
		return nil, errors.New("provider API key is required")
	}

	encrypted, err := enc.EncryptString(spec.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API key: %w", err)
	}

	p := &models.Provider{
		Name:              spec.Name,
		ProviderType:      spec.Type,
		EncryptedAPIKey:   encrypted,
		EndpointURL:       utils.StringPtrOrNil(spec.EndpointURL),
		RequestsPerMinute: spec.RequestsPerMinute,
		CostPerToken:      decimal.Zero,
		Priority:          spec.Priority,
		IsActive:          true,
	}
	if err := db.NewProviderRepository().Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ModelSpec describes a model to register under an existing provider
type ModelSpec struct {
	Provider           string
	Identifier         string
	Name               string
	TaskType           models.TaskType
	MaxTokens          int
	CostPerInputToken  decimal.Decimal
	CostPerOutputToken decimal.Decimal
}

// RegisterModel stores a new active model for the named provider
func RegisterModel(ctx context.Context, db *storage.DB, spec ModelSpec) (*models.Model, error) {
	if spec.Identifier == "" {
		return nil, errors.New("model identifier is required")
	}
	if spec.TaskType == "" {
		spec.TaskType = models.TaskTypeText
	}
	if !spec.TaskType.IsValid() {
		return nil, fmt.Errorf("invalid task type %q", spec.TaskType)
	}
	if spec.CostPerInputToken.IsNegative() || spec.CostPerOutputToken.IsNegative() {
		return nil, errors.New("token costs must not be negative")
	}
	if spec.Name == "" {
		spec.Name = spec.Identifier
	}

	provider, err := db.NewProviderRepository().GetByName(ctx, spec.Provider)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", spec.Provider, err)
	}

	m := &models.Model{
		ProviderID:         provider.ID,
		Name:               spec.Name,
		ModelIdentifier:    spec.Identifier,
		TaskType:           spec.TaskType,
		MaxTokens:          spec.MaxTokens,
		CostPerInputToken:  spec.CostPerInputToken,
		CostPerOutputToken: spec.CostPerOutputToken,
		IsActive:           true,
	}
	if err := db.NewModelRepository().Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SyncManifest upserts one module configuration per manifest entry.
// Providers and models are matched by name and identifier; a missing one
// leaves the reference empty so the selector decides at request time.
func SyncManifest(ctx context.Context, db *storage.DB, manifest *config.ModuleManifest, defaults config.AIConfig, logger *utils.Logger) (int, error) {
	providersRepo := db.NewProviderRepository()
	modelsRepo := db.NewModelRepository()
	configs := db.NewModuleConfigRepository()

	synced := 0
	for _, entry := range manifest.Modules {
		cfg := &models.ModuleConfiguration{
			ModuleName:       entry.Name,
			MaxTokens:        defaults.DefaultMaxTokens,
			Temperature:      defaults.DefaultTemperature,
			StreamingEnabled: entry.Streaming,
			IsActive:         entry.IsActive(),
			Priority:         entry.Priority,
		}
		if entry.MaxTokens != nil {
			cfg.MaxTokens = *entry.MaxTokens
		}
		if entry.Temperature != nil {
			cfg.Temperature = *entry.Temperature
		}

		if entry.Provider != "" {
			provider, err := providersRepo.GetByName(ctx, entry.Provider)
			switch {
			case err == nil:
				cfg.DefaultProviderID = &provider.ID
			case errors.Is(err, storage.ErrProviderNotFound):
				logger.Warn("Manifest references unknown provider", "module", entry.Name, "provider", entry.Provider)
			default:
				return synced, err
			}

			if entry.Model != "" && cfg.DefaultProviderID != nil {
				model, err := modelsRepo.GetByIdentifier(ctx, provider.ID, entry.Model)
				switch {
				case err == nil:
					cfg.DefaultModelID = &model.ID
				case errors.Is(err, storage.ErrModelNotFound):
					logger.Warn("Manifest references unknown model", "module", entry.Name, "model", entry.Model)
				default:
					return synced, err
				}
			}
		}

		if err := configs.Upsert(ctx, cfg); err != nil {
			return synced, fmt.Errorf("module %s: %w", entry.Name, err)
		}
		synced++
	}
	return synced, nil
}
