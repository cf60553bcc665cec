package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeatureToggle is a keyed on/off switch with a free-form config payload.
type FeatureToggle struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Key         string         `json:"key"`
	Description string         `json:"description"`
	Enabled     bool           `json:"enabled"`
	Config      map[string]any `json:"config"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ToggleUpdate carries a partial toggle update; nil fields are untouched.
type ToggleUpdate struct {
	Enabled *bool          `json:"enabled"`
	Config  map[string]any `json:"config"`
}

// Apply merges the update into a copy of the toggle.
func (u ToggleUpdate) Apply(t FeatureToggle) FeatureToggle {
	if u.Enabled != nil {
		t.Enabled = *u.Enabled
	}
	if u.Config != nil {
		t.Config = u.Config
	}
	t.UpdatedAt = time.Now().UTC()
	return t
}
