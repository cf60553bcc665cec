package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
)

// ExperimentRepository defines operations for experiment persistence.
type ExperimentRepository interface {
	Create(ctx context.Context, experiment domain.Experiment) (domain.Experiment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Experiment, error)
	List(ctx context.Context) ([]domain.Experiment, error)
	Update(ctx context.Context, experiment domain.Experiment) (domain.Experiment, error)
	// Delete removes the experiment; assignments go with it via the
	// foreign key cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AssignmentRepository defines operations for assignment persistence.
type AssignmentRepository interface {
	// Create inserts the assignment. A unique-constraint conflict on
	// (experiment_id, visitor_id) is returned as domain.ErrAlreadyAssigned
	// so the caller can read back the winning row.
	Create(ctx context.Context, assignment domain.Assignment) (domain.Assignment, error)
	GetByExperimentVisitor(ctx context.Context, experimentID uuid.UUID, visitorID string) (domain.Assignment, error)
}

// EventRepository defines operations for event persistence and the grouped
// count queries backing stats computation. All count methods scope to the
// conjunction of the filter's set fields.
type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	// CreateBatch inserts all events in a single transaction and reports
	// the number of rows written. Nothing is written on failure.
	CreateBatch(ctx context.Context, events []domain.Event) (int, error)
	List(ctx context.Context, filter domain.EventFilter, limit, offset int) ([]domain.Event, error)

	CountEvents(ctx context.Context, filter domain.EventFilter) (int64, error)
	CountDistinctVisitors(ctx context.Context, filter domain.EventFilter) (int64, error)
	CountByType(ctx context.Context, filter domain.EventFilter) (map[string]int64, error)
	// CountByVariant and VariantBreakdown skip rows with a NULL variant.
	CountByVariant(ctx context.Context, filter domain.EventFilter) (map[string]int64, error)
	VariantBreakdown(ctx context.Context, filter domain.EventFilter) ([]domain.BreakdownRow, error)
	// Timeline buckets all events in the trailing window by hour, variant
	// and event type, ordered by hour ascending. Deliberately unfiltered.
	Timeline(ctx context.Context, window time.Duration) ([]domain.TimelineRow, error)
}

// FeatureToggleRepository defines operations for feature toggle persistence.
type FeatureToggleRepository interface {
	List(ctx context.Context) ([]domain.FeatureToggle, error)
	GetByKey(ctx context.Context, key string) (domain.FeatureToggle, error)
	Update(ctx context.Context, toggle domain.FeatureToggle) (domain.FeatureToggle, error)
}
