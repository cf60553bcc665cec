package toggles

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
)

type stubToggleRepo struct {
	rows map[string]domain.FeatureToggle
}

func (s *stubToggleRepo) List(ctx context.Context) ([]domain.FeatureToggle, error) {
	list := []domain.FeatureToggle{}
	for _, t := range s.rows {
		list = append(list, t)
	}
	return list, nil
}

func (s *stubToggleRepo) GetByKey(ctx context.Context, key string) (domain.FeatureToggle, error) {
	t, ok := s.rows[key]
	if !ok {
		return domain.FeatureToggle{}, fmt.Errorf("feature toggle %q: %w", key, domain.ErrNotFound)
	}
	return t, nil
}

func (s *stubToggleRepo) Update(ctx context.Context, t domain.FeatureToggle) (domain.FeatureToggle, error) {
	s.rows[t.Key] = t
	return t, nil
}

func TestUpdateMergesPartialFields(t *testing.T) {
	repo := &stubToggleRepo{rows: map[string]domain.FeatureToggle{
		"new-checkout": {
			ID:      uuid.New(),
			Name:    "New checkout",
			Key:     "new-checkout",
			Enabled: false,
			Config:  map[string]any{"rollout": "staff"},
		},
	}}
	service := NewService(repo)

	enabled := true
	updated, err := service.Update(context.Background(), "new-checkout", domain.ToggleUpdate{Enabled: &enabled})
	if err != nil {
		t.Fatalf("update returned error: %v", err)
	}
	if !updated.Enabled {
		t.Fatalf("enabled flag not applied")
	}
	if updated.Config["rollout"] != "staff" {
		t.Fatalf("config must survive a flag-only update, got %v", updated.Config)
	}
}

func TestUpdateUnknownKey(t *testing.T) {
	service := NewService(&stubToggleRepo{rows: map[string]domain.FeatureToggle{}})

	_, err := service.Update(context.Background(), "missing", domain.ToggleUpdate{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
