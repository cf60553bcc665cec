package domain

import "errors"

// Sentinel errors shared across services and repositories. Repositories map
// store-level conditions (pgx.ErrNoRows, SQLSTATE 23505) onto these so that
// callers never depend on driver types.
var (
	// ErrNotFound marks a lookup by id or key that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a rejected payload; always wrapped with detail.
	ErrValidation = errors.New("validation failed")

	// ErrExperimentInactive marks an assignment request against a disabled
	// experiment.
	ErrExperimentInactive = errors.New("experiment is not active")

	// ErrAlreadyAssigned signals a unique-constraint conflict on assignment
	// insert. Recovered inside the assignment service by re-reading the
	// winning row; never returned to transport.
	ErrAlreadyAssigned = errors.New("visitor already assigned")
)
