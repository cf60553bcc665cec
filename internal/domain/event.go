package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known funnel event types. Conversion rates are derived from these
// three; any other event_type is stored and counted but not part of the
// funnel.
const (
	EventTypePageView   = "page_view"
	EventTypeClick      = "click"
	EventTypeFormSubmit = "form_submit"
)

// Event is an append-only behavioral record. ExperimentID and Variant are
// optional: events can be recorded outside any experiment.
type Event struct {
	ID           uuid.UUID      `json:"id"`
	VisitorID    string         `json:"visitor_id"`
	ExperimentID *uuid.UUID     `json:"experiment_id"`
	Variant      *string        `json:"variant"`
	EventType    string         `json:"event_type"`
	EventName    *string        `json:"event_name"`
	Metadata     map[string]any `json:"metadata"`
	PageURL      *string        `json:"page_url"`
	UserAgent    *string        `json:"user_agent"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Validate checks the required fields. Everything else is free-form.
func (e Event) Validate() error {
	if n := len(e.VisitorID); n < 1 || n > 255 {
		return fmt.Errorf("%w: visitor_id must be 1-255 characters, got %d", ErrValidation, n)
	}
	if n := len(e.EventType); n < 1 || n > 100 {
		return fmt.Errorf("%w: event_type must be 1-100 characters, got %d", ErrValidation, n)
	}
	return nil
}

// EventFilter is an explicit optional-filter value object. Nil fields are
// absent; set fields combine by conjunction. Repositories translate it into
// WHERE clauses instead of conditionally mutating a query builder.
type EventFilter struct {
	ExperimentID *uuid.UUID
	Variant      *string
	EventType    *string
}

// WithVariant returns a copy of the filter narrowed to one variant.
func (f EventFilter) WithVariant(variant string) EventFilter {
	f.Variant = &variant
	return f
}

// WithEventType returns a copy of the filter narrowed to one event type.
func (f EventFilter) WithEventType(eventType string) EventFilter {
	f.EventType = &eventType
	return f
}
