package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
)

type stubExperimentRepo struct {
	experiment domain.Experiment
	err        error
}

func (s *stubExperimentRepo) Create(ctx context.Context, e domain.Experiment) (domain.Experiment, error) {
	return e, nil
}

func (s *stubExperimentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Experiment, error) {
	if s.err != nil {
		return domain.Experiment{}, s.err
	}
	return s.experiment, nil
}

func (s *stubExperimentRepo) List(ctx context.Context) ([]domain.Experiment, error) {
	return []domain.Experiment{s.experiment}, nil
}

func (s *stubExperimentRepo) Update(ctx context.Context, e domain.Experiment) (domain.Experiment, error) {
	return e, nil
}

func (s *stubExperimentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

// memAssignmentRepo enforces the (experiment, visitor) uniqueness constraint
// in memory, the way the unique index does in Postgres.
type memAssignmentRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Assignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{rows: map[string]domain.Assignment{}}
}

func assignmentKey(experimentID uuid.UUID, visitorID string) string {
	return experimentID.String() + "/" + visitorID
}

func (m *memAssignmentRepo) Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := assignmentKey(a.ExperimentID, a.VisitorID)
	if _, exists := m.rows[key]; exists {
		return domain.Assignment{}, domain.ErrAlreadyAssigned
	}
	m.rows[key] = a
	return a, nil
}

func (m *memAssignmentRepo) GetByExperimentVisitor(ctx context.Context, experimentID uuid.UUID, visitorID string) (domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, exists := m.rows[assignmentKey(experimentID, visitorID)]
	if !exists {
		return domain.Assignment{}, fmt.Errorf("assignment: %w", domain.ErrNotFound)
	}
	return a, nil
}

func activeExperiment() domain.Experiment {
	return domain.Experiment{
		ID:           uuid.New(),
		Name:         "checkout button",
		Variants:     []string{"control", "variant"},
		TrafficSplit: map[string]int{"control": 50, "variant": 50},
		IsActive:     true,
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	experiment := activeExperiment()
	service := NewService(&stubExperimentRepo{experiment: experiment}, newMemAssignmentRepo())

	first, err := service.Assign(context.Background(), "visitor-1", experiment.ID)
	if err != nil {
		t.Fatalf("first assign returned error: %v", err)
	}
	if !first.IsNew {
		t.Fatalf("first assign should report is_new=true")
	}

	second, err := service.Assign(context.Background(), "visitor-1", experiment.ID)
	if err != nil {
		t.Fatalf("second assign returned error: %v", err)
	}
	if second.IsNew {
		t.Fatalf("second assign should report is_new=false")
	}
	if first.Variant != second.Variant {
		t.Fatalf("variant changed between calls: %q then %q", first.Variant, second.Variant)
	}
}

func TestAssignMatchesDeterministicBucket(t *testing.T) {
	experiment := activeExperiment()
	service := NewService(&stubExperimentRepo{experiment: experiment}, newMemAssignmentRepo())

	result, err := service.Assign(context.Background(), "visitor-7", experiment.ID)
	if err != nil {
		t.Fatalf("assign returned error: %v", err)
	}

	bucket := bucketFor("visitor-7", experiment.ID.String())
	expected := pickVariant(experiment.Variants, experiment.TrafficSplit, bucket)
	if result.Variant != expected {
		t.Fatalf("assign picked %q, deterministic bucket %d maps to %q", result.Variant, bucket, expected)
	}
}

func TestAssignStoredRowWinsOverSplitChange(t *testing.T) {
	experiment := activeExperiment()
	experimentRepo := &stubExperimentRepo{experiment: experiment}
	service := NewService(experimentRepo, newMemAssignmentRepo())

	first, err := service.Assign(context.Background(), "visitor-9", experiment.ID)
	if err != nil {
		t.Fatalf("assign returned error: %v", err)
	}

	// Flip the entire split toward the other variant; the stored mapping
	// must still be returned.
	experimentRepo.experiment.TrafficSplit = map[string]int{"control": 0, "variant": 100}
	if first.Variant == "control" {
		experimentRepo.experiment.TrafficSplit = map[string]int{"control": 100, "variant": 0}
	}

	second, err := service.Assign(context.Background(), "visitor-9", experiment.ID)
	if err != nil {
		t.Fatalf("assign returned error: %v", err)
	}
	if second.Variant != first.Variant || second.IsNew {
		t.Fatalf("stored assignment not honored: got %+v, want variant %q is_new=false", second, first.Variant)
	}
}

func TestAssignExperimentNotFound(t *testing.T) {
	repoErr := fmt.Errorf("experiment: %w", domain.ErrNotFound)
	service := NewService(&stubExperimentRepo{err: repoErr}, newMemAssignmentRepo())

	_, err := service.Assign(context.Background(), "visitor-1", uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignInactiveExperiment(t *testing.T) {
	experiment := activeExperiment()
	experiment.IsActive = false
	service := NewService(&stubExperimentRepo{experiment: experiment}, newMemAssignmentRepo())

	_, err := service.Assign(context.Background(), "visitor-1", experiment.ID)
	if !errors.Is(err, domain.ErrExperimentInactive) {
		t.Fatalf("expected ErrExperimentInactive, got %v", err)
	}
}

func TestAssignRejectsBadVisitorID(t *testing.T) {
	experiment := activeExperiment()
	service := NewService(&stubExperimentRepo{experiment: experiment}, newMemAssignmentRepo())

	if _, err := service.Assign(context.Background(), "", experiment.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty visitor_id: expected ErrValidation, got %v", err)
	}
	long := strings.Repeat("x", 256)
	if _, err := service.Assign(context.Background(), long, experiment.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("256-char visitor_id: expected ErrValidation, got %v", err)
	}
}

// conflictAssignmentRepo simulates losing the first-write race: the lookup
// misses, the insert conflicts, and the read-back returns the winner.
type conflictAssignmentRepo struct {
	winner domain.Assignment
	gets   int
}

func (c *conflictAssignmentRepo) Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	return domain.Assignment{}, domain.ErrAlreadyAssigned
}

func (c *conflictAssignmentRepo) GetByExperimentVisitor(ctx context.Context, experimentID uuid.UUID, visitorID string) (domain.Assignment, error) {
	c.gets++
	if c.gets == 1 {
		return domain.Assignment{}, fmt.Errorf("assignment: %w", domain.ErrNotFound)
	}
	return c.winner, nil
}

func TestAssignRecoversFromInsertConflict(t *testing.T) {
	experiment := activeExperiment()
	winner := domain.NewAssignment(experiment.ID, "visitor-3", "control")
	repo := &conflictAssignmentRepo{winner: winner}
	service := NewService(&stubExperimentRepo{experiment: experiment}, repo)

	result, err := service.Assign(context.Background(), "visitor-3", experiment.ID)
	if err != nil {
		t.Fatalf("assign should recover from the conflict, got %v", err)
	}
	if result.IsNew {
		t.Fatalf("conflict loser must report is_new=false")
	}
	if result.Variant != "control" {
		t.Fatalf("conflict loser must return the winner's variant, got %q", result.Variant)
	}
}

func TestAssignConcurrentFirstRequests(t *testing.T) {
	experiment := activeExperiment()
	repo := newMemAssignmentRepo()
	service := NewService(&stubExperimentRepo{experiment: experiment}, repo)

	const callers = 32
	results := make([]Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Assign(context.Background(), "visitor-race", experiment.ID)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d returned error: %v", i, err)
		}
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected exactly 1 stored assignment, got %d", len(repo.rows))
	}

	newCount := 0
	for i, result := range results {
		if result.Variant != results[0].Variant {
			t.Fatalf("caller %d observed variant %q, caller 0 observed %q", i, result.Variant, results[0].Variant)
		}
		if result.IsNew {
			newCount++
		}
	}
	if newCount != 1 {
		t.Fatalf("expected exactly 1 caller to observe is_new=true, got %d", newCount)
	}
}
