// Package toggles implements feature toggle listing and updates.
package toggles

import (
	"context"
	"log"

	"github.com/rpattn/splitlab/internal/domain"
	"github.com/rpattn/splitlab/internal/repository"
)

// Service manages feature toggles.
type Service struct {
	toggles repository.FeatureToggleRepository
}

// NewService wires the toggle service.
func NewService(toggles repository.FeatureToggleRepository) *Service {
	return &Service{toggles: toggles}
}

// List returns all toggles, oldest first.
func (s *Service) List(ctx context.Context) ([]domain.FeatureToggle, error) {
	return s.toggles.List(ctx)
}

// Update applies a partial update to the toggle with the given key.
func (s *Service) Update(ctx context.Context, key string, update domain.ToggleUpdate) (domain.FeatureToggle, error) {
	current, err := s.toggles.GetByKey(ctx, key)
	if err != nil {
		return domain.FeatureToggle{}, err
	}

	updated, err := s.toggles.Update(ctx, update.Apply(current))
	if err != nil {
		return domain.FeatureToggle{}, err
	}

	log.Printf("[TOGGLES] updated toggle %q enabled=%t", key, updated.Enabled)
	return updated, nil
}
