package providers

import (
	"fmt"
	"sort"
	"sync"

	"aicore/internal/models"
)

// ProviderFactory builds vendor adapters by provider type.
// Adding a vendor means registering one more creator.
type ProviderFactory struct {
	mu       sync.RWMutex
	creators map[models.ProviderType]ProviderCreator
}

// ProviderCreator is a function that creates a provider instance
type ProviderCreator func(config ProviderConfig) (Provider, error)

// NewProviderFactory creates a new provider factory with the built-in vendors registered
func NewProviderFactory() *ProviderFactory {
	f := &ProviderFactory{
		creators: make(map[models.ProviderType]ProviderCreator),
	}

	f.Register(models.ProviderTypeOpenAI, NewOpenAIProvider)
	f.Register(models.ProviderTypeClaude, NewClaudeProvider)
	f.Register(models.ProviderTypeGemini, NewGeminiProvider)

	return f
}

// Register registers a provider creator for a specific type
func (f *ProviderFactory) Register(providerType models.ProviderType, creator ProviderCreator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[providerType] = creator
}

// CreateProvider creates a new provider instance based on the configuration.
// Unknown types fail with an unsupported_provider *Error and no network activity.
func (f *ProviderFactory) CreateProvider(config ProviderConfig) (Provider, error) {
	f.mu.RLock()
	creator, exists := f.creators[config.Type]
	f.mu.RUnlock()

	if !exists {
		return nil, &Error{
			Kind:    KindUnsupportedProvider,
			Message: fmt.Sprintf("unsupported provider type: %s", config.Type),
			Err:     ErrUnsupportedProvider,
		}
	}

	provider, err := creator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s (%s): %w", config.Name, config.Type, err)
	}

	return provider, nil
}

// SupportedTypes returns the registered provider types in sorted order
func (f *ProviderFactory) SupportedTypes() []models.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]models.ProviderType, 0, len(f.creators))
	for t := range f.creators {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
