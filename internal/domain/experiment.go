package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Experiment is an A/B test definition. Variants is an ordered list of arm
// names; TrafficSplit maps each variant to an integer percentage. The pair is
// only valid when the split keys equal the variant set and the percentages
// sum to exactly 100.
type Experiment struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Variants     []string       `json:"variants"`
	TrafficSplit map[string]int `json:"traffic_split"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewExperiment builds an unvalidated experiment with fresh identity and
// timestamps. Callers run ValidateSplit before persisting the row.
func NewExperiment(name, description string, variants []string, trafficSplit map[string]int, isActive bool) Experiment {
	now := time.Now().UTC()
	return Experiment{
		ID:           uuid.New(),
		Name:         name,
		Description:  description,
		Variants:     variants,
		TrafficSplit: trafficSplit,
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ValidateSplit enforces the variants/traffic-split invariant: at least two
// distinct variants, split keys identical to the variant set, and split
// values summing to exactly 100.
func ValidateSplit(variants []string, trafficSplit map[string]int) error {
	if len(variants) < 2 {
		return fmt.Errorf("%w: at least 2 variants required, got %d", ErrValidation, len(variants))
	}

	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: duplicate variant %q", ErrValidation, v)
		}
		seen[v] = struct{}{}
	}

	if len(trafficSplit) != len(variants) {
		return fmt.Errorf("%w: traffic split keys must match variant names", ErrValidation)
	}
	for name := range trafficSplit {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("%w: traffic split keys must match variant names", ErrValidation)
		}
	}

	total := 0
	for _, pct := range trafficSplit {
		total += pct
	}
	if total != 100 {
		return fmt.Errorf("%w: traffic split must total 100, got %d", ErrValidation, total)
	}

	return nil
}

// ExperimentUpdate carries a partial experiment update. Nil fields are left
// untouched. Validation always runs against the effective variants/split
// pair, merging supplied fields with the stored ones.
type ExperimentUpdate struct {
	Name         *string        `json:"name"`
	Description  *string        `json:"description"`
	Variants     []string       `json:"variants"`
	TrafficSplit map[string]int `json:"traffic_split"`
	IsActive     *bool          `json:"is_active"`
}

// Apply merges the update into a copy of the experiment and re-validates the
// invariant whenever variants or the split changed.
func (u ExperimentUpdate) Apply(e Experiment) (Experiment, error) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Variants != nil {
		e.Variants = u.Variants
	}
	if u.TrafficSplit != nil {
		e.TrafficSplit = u.TrafficSplit
	}
	if u.IsActive != nil {
		e.IsActive = *u.IsActive
	}

	if u.Variants != nil || u.TrafficSplit != nil {
		if err := ValidateSplit(e.Variants, e.TrafficSplit); err != nil {
			return Experiment{}, err
		}
	}

	e.UpdatedAt = time.Now().UTC()
	return e, nil
}
