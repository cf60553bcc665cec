package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/splitlab/internal/domain"
)

type toggleRepository struct {
	pool *pgxpool.Pool
}

// NewFeatureToggleRepository wires a repository backed by pgxpool.
func NewFeatureToggleRepository(pool *pgxpool.Pool) FeatureToggleRepository {
	return &toggleRepository{pool: pool}
}

func (r *toggleRepository) List(ctx context.Context) ([]domain.FeatureToggle, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, name, key, description, enabled, config, created_at, updated_at
		 FROM feature_toggles
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature toggles: %w", err)
	}
	defer rows.Close()

	toggles := []domain.FeatureToggle{}
	for rows.Next() {
		toggle, scanErr := scanToggle(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan feature toggle: %w", scanErr)
		}
		toggles = append(toggles, toggle)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate feature toggles: %w", rowsErr)
	}

	return toggles, nil
}

func (r *toggleRepository) GetByKey(ctx context.Context, key string) (domain.FeatureToggle, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, name, key, description, enabled, config, created_at, updated_at
		 FROM feature_toggles
		 WHERE key = $1`,
		key,
	)

	toggle, err := scanToggle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FeatureToggle{}, fmt.Errorf("feature toggle %q: %w", key, domain.ErrNotFound)
		}
		return domain.FeatureToggle{}, fmt.Errorf("failed to get feature toggle: %w", err)
	}
	return toggle, nil
}

func (r *toggleRepository) Update(ctx context.Context, toggle domain.FeatureToggle) (domain.FeatureToggle, error) {
	configJSON, err := json.Marshal(toggle.Config)
	if err != nil {
		return domain.FeatureToggle{}, fmt.Errorf("failed to marshal toggle config: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`UPDATE feature_toggles
		 SET enabled = $2, config = $3, updated_at = $4
		 WHERE key = $1
		 RETURNING id, name, key, description, enabled, config, created_at, updated_at`,
		toggle.Key,
		toggle.Enabled,
		configJSON,
		toggle.UpdatedAt,
	)

	updated, err := scanToggle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FeatureToggle{}, fmt.Errorf("feature toggle %q: %w", toggle.Key, domain.ErrNotFound)
		}
		return domain.FeatureToggle{}, fmt.Errorf("failed to update feature toggle: %w", err)
	}
	return updated, nil
}

func scanToggle(row pgx.Row) (domain.FeatureToggle, error) {
	var (
		toggle     domain.FeatureToggle
		configJSON []byte
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	if err := row.Scan(
		&toggle.ID,
		&toggle.Name,
		&toggle.Key,
		&toggle.Description,
		&toggle.Enabled,
		&configJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.FeatureToggle{}, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &toggle.Config); err != nil {
			return domain.FeatureToggle{}, fmt.Errorf("failed to unmarshal toggle config: %w", err)
		}
	}
	if toggle.Config == nil {
		toggle.Config = map[string]any{}
	}
	if createdAt.Valid {
		toggle.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		toggle.UpdatedAt = updatedAt.Time
	}

	return toggle, nil
}
