// Package assignment implements deterministic, durable visitor→variant
// assignment. The bucket is a pure function of visitor and experiment
// identity; the store is consulted only to make the first write durable.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
	"github.com/rpattn/splitlab/internal/repository"
)

// Service assigns visitors to experiment variants.
type Service struct {
	experiments repository.ExperimentRepository
	assignments repository.AssignmentRepository
}

// NewService wires the assignment service.
func NewService(experiments repository.ExperimentRepository, assignments repository.AssignmentRepository) *Service {
	return &Service{
		experiments: experiments,
		assignments: assignments,
	}
}

// Result is the outcome of an assign call. IsNew reports whether this call
// created the stored assignment or found an earlier one.
type Result struct {
	VisitorID    string    `json:"visitor_id"`
	ExperimentID uuid.UUID `json:"experiment_id"`
	Variant      string    `json:"variant"`
	IsNew        bool      `json:"is_new"`
}

// Assign returns the durable variant for the visitor in the experiment,
// creating it on first call. Repeated calls always return the same variant
// regardless of later traffic-split changes: the stored row wins over the
// hash.
func (s *Service) Assign(ctx context.Context, visitorID string, experimentID uuid.UUID) (Result, error) {
	if n := len(visitorID); n < 1 || n > 255 {
		return Result{}, fmt.Errorf("%w: visitor_id must be 1-255 characters, got %d", domain.ErrValidation, n)
	}

	experiment, err := s.experiments.GetByID(ctx, experimentID)
	if err != nil {
		return Result{}, err
	}
	if !experiment.IsActive {
		return Result{}, fmt.Errorf("experiment %s: %w", experimentID, domain.ErrExperimentInactive)
	}

	existing, err := s.assignments.GetByExperimentVisitor(ctx, experimentID, visitorID)
	if err == nil {
		return Result{
			VisitorID:    visitorID,
			ExperimentID: experimentID,
			Variant:      existing.Variant,
			IsNew:        false,
		}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return Result{}, err
	}

	bucket := bucketFor(visitorID, experimentID.String())
	variant := pickVariant(experiment.Variants, experiment.TrafficSplit, bucket)

	created, err := s.assignments.Create(ctx, domain.NewAssignment(experimentID, visitorID, variant))
	if errors.Is(err, domain.ErrAlreadyAssigned) {
		// Lost a concurrent first-assignment race; the unique constraint
		// guarantees exactly one stored row, so return the winner's.
		winner, readErr := s.assignments.GetByExperimentVisitor(ctx, experimentID, visitorID)
		if readErr != nil {
			return Result{}, readErr
		}
		return Result{
			VisitorID:    visitorID,
			ExperimentID: experimentID,
			Variant:      winner.Variant,
			IsNew:        false,
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	log.Printf("[ASSIGN] visitor %s -> variant %s (bucket %d) for experiment %s", visitorID, created.Variant, bucket, experimentID)
	return Result{
		VisitorID:    visitorID,
		ExperimentID: experimentID,
		Variant:      created.Variant,
		IsNew:        true,
	}, nil
}
