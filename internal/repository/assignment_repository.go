package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/splitlab/internal/domain"
)

// uniqueViolation is the SQLSTATE for a unique-constraint conflict.
const uniqueViolation = "23505"

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository wires a repository backed by pgxpool.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment domain.Assignment) (domain.Assignment, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO assignments (id, experiment_id, visitor_id, variant, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, experiment_id, visitor_id, variant, created_at`,
		assignment.ID,
		assignment.ExperimentID,
		assignment.VisitorID,
		assignment.Variant,
		assignment.CreatedAt,
	)

	created, err := scanAssignment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Lost the first-write race; the caller reads back the winner.
			return domain.Assignment{}, domain.ErrAlreadyAssigned
		}
		return domain.Assignment{}, fmt.Errorf("failed to create assignment: %w", err)
	}
	return created, nil
}

func (r *assignmentRepository) GetByExperimentVisitor(ctx context.Context, experimentID uuid.UUID, visitorID string) (domain.Assignment, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, experiment_id, visitor_id, variant, created_at
		 FROM assignments
		 WHERE experiment_id = $1 AND visitor_id = $2`,
		experimentID,
		visitorID,
	)

	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Assignment{}, fmt.Errorf("assignment for visitor %q: %w", visitorID, domain.ErrNotFound)
		}
		return domain.Assignment{}, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment, nil
}

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var (
		assignment domain.Assignment
		createdAt  pgtype.Timestamptz
	)
	if err := row.Scan(
		&assignment.ID,
		&assignment.ExperimentID,
		&assignment.VisitorID,
		&assignment.Variant,
		&createdAt,
	); err != nil {
		return domain.Assignment{}, err
	}
	if createdAt.Valid {
		assignment.CreatedAt = createdAt.Time
	}
	return assignment, nil
}
