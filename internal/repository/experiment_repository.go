package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/splitlab/internal/domain"
)

type experimentRepository struct {
	pool *pgxpool.Pool
}

// NewExperimentRepository wires a repository backed by pgxpool.
func NewExperimentRepository(pool *pgxpool.Pool) ExperimentRepository {
	return &experimentRepository{pool: pool}
}

func (r *experimentRepository) Create(ctx context.Context, experiment domain.Experiment) (domain.Experiment, error) {
	variantsJSON, err := json.Marshal(experiment.Variants)
	if err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to marshal variants: %w", err)
	}
	splitJSON, err := json.Marshal(experiment.TrafficSplit)
	if err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to marshal traffic split: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO experiments (id, name, description, variants, traffic_split, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, name, description, variants, traffic_split, is_active, created_at, updated_at`,
		experiment.ID,
		experiment.Name,
		experiment.Description,
		variantsJSON,
		splitJSON,
		experiment.IsActive,
		experiment.CreatedAt,
		experiment.UpdatedAt,
	)

	created, err := scanExperiment(row)
	if err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to create experiment: %w", err)
	}
	return created, nil
}

func (r *experimentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Experiment, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, name, description, variants, traffic_split, is_active, created_at, updated_at
		 FROM experiments
		 WHERE id = $1`,
		id,
	)

	experiment, err := scanExperiment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Experiment{}, fmt.Errorf("experiment %s: %w", id, domain.ErrNotFound)
		}
		return domain.Experiment{}, fmt.Errorf("failed to get experiment: %w", err)
	}
	return experiment, nil
}

func (r *experimentRepository) List(ctx context.Context) ([]domain.Experiment, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, name, description, variants, traffic_split, is_active, created_at, updated_at
		 FROM experiments
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	experiments := []domain.Experiment{}
	for rows.Next() {
		experiment, scanErr := scanExperiment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", scanErr)
		}
		experiments = append(experiments, experiment)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate experiments: %w", rowsErr)
	}

	return experiments, nil
}

func (r *experimentRepository) Update(ctx context.Context, experiment domain.Experiment) (domain.Experiment, error) {
	variantsJSON, err := json.Marshal(experiment.Variants)
	if err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to marshal variants: %w", err)
	}
	splitJSON, err := json.Marshal(experiment.TrafficSplit)
	if err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to marshal traffic split: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`UPDATE experiments
		 SET name = $2, description = $3, variants = $4, traffic_split = $5, is_active = $6, updated_at = $7
		 WHERE id = $1
		 RETURNING id, name, description, variants, traffic_split, is_active, created_at, updated_at`,
		experiment.ID,
		experiment.Name,
		experiment.Description,
		variantsJSON,
		splitJSON,
		experiment.IsActive,
		experiment.UpdatedAt,
	)

	updated, err := scanExperiment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Experiment{}, fmt.Errorf("experiment %s: %w", experiment.ID, domain.ErrNotFound)
		}
		return domain.Experiment{}, fmt.Errorf("failed to update experiment: %w", err)
	}
	return updated, nil
}

func (r *experimentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM experiments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("experiment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanExperiment(row pgx.Row) (domain.Experiment, error) {
	var (
		experiment   domain.Experiment
		variantsJSON []byte
		splitJSON    []byte
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	if err := row.Scan(
		&experiment.ID,
		&experiment.Name,
		&experiment.Description,
		&variantsJSON,
		&splitJSON,
		&experiment.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Experiment{}, err
	}

	if err := json.Unmarshal(variantsJSON, &experiment.Variants); err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to unmarshal variants: %w", err)
	}
	if err := json.Unmarshal(splitJSON, &experiment.TrafficSplit); err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to unmarshal traffic split: %w", err)
	}
	if createdAt.Valid {
		experiment.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		experiment.UpdatedAt = updatedAt.Time
	}

	return experiment, nil
}
