package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/shopfront/pkg/apperr"
)

// uniqueVersionConstraint is the name of the unique index on
// (aggregate_id, version) created by the schema migration. Detecting the
// conflict by constraint name, not by matching error text, is what makes
// this robust across pgx versions and locales.
const uniqueVersionConstraint = "domain_events_aggregate_id_version_key"

// EventLog is the Postgres-backed append-only event store.
type EventLog struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

// Append persists events atomically, assigning versions
// expectedVersion+1..expectedVersion+len(events). Either all events land or
// none do. Returns apperr with CodeVersionConflict if another writer raced
// ahead of expectedVersion on this aggregate.
func (l *EventLog) Append(ctx context.Context, aggregateType AggregateType, aggregateID string, expectedVersion int, events []NewEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, ev := range events {
		version := expectedVersion + i + 1
		extraJSON, err := json.Marshal(ev.Extra)
		if err != nil {
			return fmt.Errorf("marshal extra: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO domain_events (id, aggregate_type, aggregate_id, version, event_type, payload, extra, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
			uuid.NewString(), aggregateType, aggregateID, version, ev.EventType, ev.Payload, extraJSON,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == uniqueVersionConstraint {
				return apperr.New(apperr.CodeVersionConflict, "aggregate was modified concurrently")
			}
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == uniqueVersionConstraint {
			return apperr.New(apperr.CodeVersionConflict, "aggregate was modified concurrently")
		}
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Load returns all events for an aggregate ordered by version ascending,
// or an empty slice when none exist.
func (l *EventLog) Load(ctx context.Context, aggregateID string) ([]Event, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, aggregate_type, aggregate_id, version, event_type, payload, extra, created_at
		 FROM domain_events WHERE aggregate_id = $1 ORDER BY version ASC`,
		aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var extraJSON []byte
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Version, &e.EventType, &e.Payload, &extraJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(extraJSON) > 0 {
			if err := json.Unmarshal(extraJSON, &e.Extra); err != nil {
				return nil, fmt.Errorf("unmarshal extra: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
