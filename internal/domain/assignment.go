package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is the durable visitor→variant mapping for one experiment.
// Written once on the first assign call and never mutated; rows are removed
// only by the owning experiment's cascade delete.
type Assignment struct {
	ID           uuid.UUID `json:"id"`
	ExperimentID uuid.UUID `json:"experiment_id"`
	VisitorID    string    `json:"visitor_id"`
	Variant      string    `json:"variant"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAssignment builds an assignment row ready for insert.
func NewAssignment(experimentID uuid.UUID, visitorID, variant string) Assignment {
	return Assignment{
		ID:           uuid.New(),
		ExperimentID: experimentID,
		VisitorID:    visitorID,
		Variant:      variant,
		CreatedAt:    time.Now().UTC(),
	}
}
