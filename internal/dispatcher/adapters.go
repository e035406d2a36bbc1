package dispatcher

import (
	"fmt"
	"sync"
	"time"

	"aicore/internal/models"
	"aicore/internal/providers"
)

// CredentialDecrypter turns a stored API key into plaintext
type CredentialDecrypter interface {
	DecryptString(ciphertext string) (string, error)
}

// adapterPool keeps one vendor adapter per provider row so HTTP connections
// are reused. An adapter is rebuilt when the provider row changes.
type adapterPool struct {
	factory        *providers.ProviderFactory
	credentials    CredentialDecrypter
	connectTimeout time.Duration
	requestTimeout time.Duration

	mu       sync.Mutex
	adapters map[int64]pooledAdapter
}

type pooledAdapter struct {
	version  time.Time
	provider providers.Provider
}

func newAdapterPool(factory *providers.ProviderFactory, credentials CredentialDecrypter, connectTimeout, requestTimeout time.Duration) *adapterPool {
	return &adapterPool{
		factory:        factory,
		credentials:    credentials,
		connectTimeout: connectTimeout,
		requestTimeout: requestTimeout,
		adapters:       make(map[int64]pooledAdapter),
	}
}

// get returns the adapter for p. Failures are *providers.Error values so the
// caller can record them like any vendor failure.
func (a *adapterPool) get(p *models.Provider) (providers.Provider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cached, ok := a.adapters[p.ID]; ok && cached.version.Equal(p.UpdatedAt) {
		return cached.provider, nil
	}

	apiKey, err := a.credentials.DecryptString(p.EncryptedAPIKey)
	if err != nil {
		return nil, &providers.Error{
			Kind:    providers.KindUnauthorized,
			Message: fmt.Sprintf("failed to decrypt credentials for provider %s", p.Name),
			Err:     err,
		}
	}

	adapter, err := a.factory.CreateProvider(providers.ConfigFromProvider(p, apiKey, a.connectTimeout, a.requestTimeout))
	if err != nil {
		return nil, err
	}

	if old, ok := a.adapters[p.ID]; ok {
		old.provider.Close()
	}
	a.adapters[p.ID] = pooledAdapter{version: p.UpdatedAt, provider: adapter}
	return adapter, nil
}

func (a *adapterPool) close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, cached := range a.adapters {
		cached.provider.Close()
		delete(a.adapters, id)
	}
}
