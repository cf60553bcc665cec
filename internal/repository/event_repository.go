package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/splitlab/internal/db"
	"github.com/rpattn/splitlab/internal/domain"
)

type eventRepository struct {
	conn *db.Connection
	pool *pgxpool.Pool
}

// NewEventRepository wires a repository backed by the shared connection;
// batch inserts run inside its transactional scope.
func NewEventRepository(conn *db.Connection) EventRepository {
	return &eventRepository{conn: conn, pool: conn.Pool}
}

// whereClause renders the filter's set fields plus any literal extra
// conditions as a WHERE clause. Returns an empty string when nothing
// applies.
func whereClause(filter domain.EventFilter, extra ...string) (string, []any) {
	conds := []string{}
	args := []any{}

	if filter.ExperimentID != nil {
		args = append(args, *filter.ExperimentID)
		conds = append(conds, fmt.Sprintf("experiment_id = $%d", len(args)))
	}
	if filter.Variant != nil {
		args = append(args, *filter.Variant)
		conds = append(conds, fmt.Sprintf("variant = $%d", len(args)))
	}
	if filter.EventType != nil {
		args = append(args, *filter.EventType)
		conds = append(conds, fmt.Sprintf("event_type = $%d", len(args)))
	}
	conds = append(conds, extra...)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *eventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO events (id, visitor_id, experiment_id, variant, event_type, event_name, metadata, page_url, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, visitor_id, experiment_id, variant, event_type, event_name, metadata, page_url, user_agent, created_at`,
		event.ID,
		event.VisitorID,
		event.ExperimentID,
		event.Variant,
		event.EventType,
		event.EventName,
		metadataJSON,
		event.PageURL,
		event.UserAgent,
		event.CreatedAt,
	)

	created, err := scanEvent(row)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

func (r *eventRepository) CreateBatch(ctx context.Context, events []domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, event := range events {
			metadataJSON, marshalErr := json.Marshal(event.Metadata)
			if marshalErr != nil {
				return fmt.Errorf("failed to marshal metadata: %w", marshalErr)
			}
			if _, execErr := tx.Exec(
				ctx,
				`INSERT INTO events (id, visitor_id, experiment_id, variant, event_type, event_name, metadata, page_url, user_agent, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				event.ID,
				event.VisitorID,
				event.ExperimentID,
				event.Variant,
				event.EventType,
				event.EventName,
				metadataJSON,
				event.PageURL,
				event.UserAgent,
				event.CreatedAt,
			); execErr != nil {
				return fmt.Errorf("failed to insert event batch: %w", execErr)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, limit, offset int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}

	where, args := whereClause(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT id, visitor_id, experiment_id, variant, event_type, event_name, metadata, page_url, user_agent, created_at
		 FROM events%s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan event: %w", scanErr)
		}
		events = append(events, event)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", rowsErr)
	}

	return events, nil
}

func (r *eventRepository) CountEvents(ctx context.Context, filter domain.EventFilter) (int64, error) {
	where, args := whereClause(filter)

	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *eventRepository) CountDistinctVisitors(ctx context.Context, filter domain.EventFilter) (int64, error) {
	where, args := whereClause(filter)

	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM events`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct visitors: %w", err)
	}
	return count, nil
}

func (r *eventRepository) CountByType(ctx context.Context, filter domain.EventFilter) (map[string]int64, error) {
	where, args := whereClause(filter)
	query := `SELECT event_type, COUNT(*) FROM events` + where + ` GROUP BY event_type`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by type: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var (
			eventType string
			count     int64
		)
		if scanErr := rows.Scan(&eventType, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", scanErr)
		}
		counts[eventType] = count
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate type counts: %w", rowsErr)
	}

	return counts, nil
}

func (r *eventRepository) CountByVariant(ctx context.Context, filter domain.EventFilter) (map[string]int64, error) {
	where, args := whereClause(filter, "variant IS NOT NULL")
	query := `SELECT variant, COUNT(*) FROM events` + where + ` GROUP BY variant`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by variant: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var (
			variant string
			count   int64
		)
		if scanErr := rows.Scan(&variant, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan variant count: %w", scanErr)
		}
		counts[variant] = count
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate variant counts: %w", rowsErr)
	}

	return counts, nil
}

func (r *eventRepository) VariantBreakdown(ctx context.Context, filter domain.EventFilter) ([]domain.BreakdownRow, error) {
	where, args := whereClause(filter, "variant IS NOT NULL")
	query := `SELECT variant, event_type, COUNT(*) FROM events` + where + ` GROUP BY variant, event_type`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute variant breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := []domain.BreakdownRow{}
	for rows.Next() {
		var row domain.BreakdownRow
		if scanErr := rows.Scan(&row.Variant, &row.EventType, &row.Count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan breakdown row: %w", scanErr)
		}
		breakdown = append(breakdown, row)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate breakdown rows: %w", rowsErr)
	}

	return breakdown, nil
}

func (r *eventRepository) Timeline(ctx context.Context, window time.Duration) ([]domain.TimelineRow, error) {
	cutoff := time.Now().UTC().Add(-window)

	rows, err := r.pool.Query(
		ctx,
		`SELECT date_trunc('hour', created_at) AS hour, variant, event_type, COUNT(*)
		 FROM events
		 WHERE created_at > $1
		 GROUP BY hour, variant, event_type
		 ORDER BY hour`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute timeline: %w", err)
	}
	defer rows.Close()

	timeline := []domain.TimelineRow{}
	for rows.Next() {
		var (
			row     domain.TimelineRow
			hour    pgtype.Timestamptz
			variant pgtype.Text
		)
		if scanErr := rows.Scan(&hour, &variant, &row.EventType, &row.Count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan timeline row: %w", scanErr)
		}
		if hour.Valid {
			row.Hour = hour.Time
		}
		if variant.Valid {
			value := variant.String
			row.Variant = &value
		}
		timeline = append(timeline, row)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate timeline rows: %w", rowsErr)
	}

	return timeline, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		event        domain.Event
		experimentID pgtype.UUID
		variant      pgtype.Text
		eventName    pgtype.Text
		metadataJSON []byte
		pageURL      pgtype.Text
		userAgent    pgtype.Text
		createdAt    pgtype.Timestamptz
	)
	if err := row.Scan(
		&event.ID,
		&event.VisitorID,
		&experimentID,
		&variant,
		&event.EventType,
		&eventName,
		&metadataJSON,
		&pageURL,
		&userAgent,
		&createdAt,
	); err != nil {
		return domain.Event{}, err
	}

	if experimentID.Valid {
		value := uuid.UUID(experimentID.Bytes)
		event.ExperimentID = &value
	}
	if variant.Valid {
		value := variant.String
		event.Variant = &value
	}
	if eventName.Valid {
		value := eventName.String
		event.EventName = &value
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
			return domain.Event{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if pageURL.Valid {
		value := pageURL.String
		event.PageURL = &value
	}
	if userAgent.Valid {
		value := userAgent.String
		event.UserAgent = &value
	}
	if createdAt.Valid {
		event.CreatedAt = createdAt.Time
	}

	return event, nil
}
