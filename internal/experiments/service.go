// Package experiments implements experiment lifecycle management. The
// variants/traffic-split invariant is validated before any write; updates
// re-validate the effective pair whenever either field changes.
package experiments

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
	"github.com/rpattn/splitlab/internal/repository"
)

// Service manages experiments.
type Service struct {
	experiments repository.ExperimentRepository
}

// NewService wires the experiment service.
func NewService(experiments repository.ExperimentRepository) *Service {
	return &Service{experiments: experiments}
}

// CreateRequest carries a new experiment definition.
type CreateRequest struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Variants     []string       `json:"variants"`
	TrafficSplit map[string]int `json:"traffic_split"`
	IsActive     *bool          `json:"is_active"`
}

// Create validates the definition and persists it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Experiment, error) {
	if n := len(req.Name); n < 1 || n > 255 {
		return domain.Experiment{}, fmt.Errorf("%w: name must be 1-255 characters, got %d", domain.ErrValidation, n)
	}
	if err := domain.ValidateSplit(req.Variants, req.TrafficSplit); err != nil {
		return domain.Experiment{}, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	experiment, err := s.experiments.Create(ctx, domain.NewExperiment(req.Name, req.Description, req.Variants, req.TrafficSplit, isActive))
	if err != nil {
		return domain.Experiment{}, err
	}

	log.Printf("[EXPERIMENTS] created experiment %q (%s)", experiment.Name, experiment.ID)
	return experiment, nil
}

// Get returns one experiment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Experiment, error) {
	return s.experiments.GetByID(ctx, id)
}

// List returns all experiments, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Experiment, error) {
	return s.experiments.List(ctx)
}

// Update applies a partial update. When variants or the traffic split
// change, the merged pair is validated before anything is written.
func (s *Service) Update(ctx context.Context, id uuid.UUID, update domain.ExperimentUpdate) (domain.Experiment, error) {
	if update.Name != nil {
		if n := len(*update.Name); n < 1 || n > 255 {
			return domain.Experiment{}, fmt.Errorf("%w: name must be 1-255 characters, got %d", domain.ErrValidation, n)
		}
	}

	current, err := s.experiments.GetByID(ctx, id)
	if err != nil {
		return domain.Experiment{}, err
	}

	merged, err := update.Apply(current)
	if err != nil {
		return domain.Experiment{}, err
	}

	updated, err := s.experiments.Update(ctx, merged)
	if err != nil {
		return domain.Experiment{}, err
	}

	log.Printf("[EXPERIMENTS] updated experiment %s", id)
	return updated, nil
}

// Delete removes the experiment and, through the store cascade, all of its
// assignments.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.experiments.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[EXPERIMENTS] deleted experiment %s", id)
	return nil
}
