package routing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"aicore/internal/models"
)

// ErrNoModelFound is returned when no active model matches the request
var ErrNoModelFound = errors.New("no suitable AI model found")

// CatalogSource supplies the active model catalog with providers attached
type CatalogSource interface {
	ListActiveCatalog(ctx context.Context) ([]*models.Model, error)
}

// Selector picks the best model for a task from the active catalog.
// It never writes anything.
type Selector struct {
	catalog CatalogSource
}

// NewSelector creates a selector over a catalog source
func NewSelector(catalog CatalogSource) *Selector {
	return &Selector{catalog: catalog}
}

// SelectModel returns the first candidate ordered by provider priority,
// then input token cost, then model id. A nil maxTokensHint and an empty
// providerHint both mean "no constraint".
func (s *Selector) SelectModel(ctx context.Context, task models.TaskType, maxTokensHint *int, providerHint models.ProviderType) (*models.Model, error) {
	candidates, err := s.Candidates(ctx, task, maxTokensHint, providerHint)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoModelFound
	}
	return candidates[0], nil
}

// Candidates returns every matching model in selection order
func (s *Selector) Candidates(ctx context.Context, task models.TaskType, maxTokensHint *int, providerHint models.ProviderType) ([]*models.Model, error) {
	catalog, err := s.catalog.ListActiveCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}

	var matches []*models.Model
	for _, m := range catalog {
		if !m.IsSelectable() || !m.Accepts(task, maxTokensHint) {
			continue
		}
		if providerHint != "" && m.Provider.ProviderType != providerHint {
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Provider.Priority != b.Provider.Priority {
			return a.Provider.Priority < b.Provider.Priority
		}
		if c := a.CostPerInputToken.Cmp(b.CostPerInputToken); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})

	return matches, nil
}
