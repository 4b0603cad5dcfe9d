package chronicle

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresArchiver stores archived events in a Postgres table. Inserts
// are idempotent on sequence number, so redelivery from the hub is
// harmless
type PostgresArchiver struct {
	pool *pgxpool.Pool
}

const pgArchiveSchema = `
CREATE TABLE IF NOT EXISTS archived_events (
	sequence    BIGINT PRIMARY KEY,
	entity_id   TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS archived_events_entity
	ON archived_events (entity_id, sequence);
`

const (
	pgInsertEvent = `
		INSERT INTO archived_events
			(sequence, entity_id, event_type, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sequence) DO NOTHING`

	pgSelectEntity = `
		SELECT sequence, entity_id, event_type, payload, recorded_at
		FROM archived_events
		WHERE entity_id = $1
		ORDER BY sequence`
)

// NewPostgresArchiver connects to Postgres and ensures the archive
// schema exists
func NewPostgresArchiver(
	ctx context.Context, dsn string,
) (*PostgresArchiver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, pgArchiveSchema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresArchiver{pool: pool}, nil
}

func (a *PostgresArchiver) Archive(ctx context.Context, evs []*Event) error {
	batch := &pgx.Batch{}
	for _, ev := range evs {
		batch.Queue(
			pgInsertEvent,
			ev.Sequence, string(ev.EntityID), string(ev.Type),
			ev.Data, ev.RecordedAt,
		)
	}
	return a.pool.SendBatch(ctx, batch).Close()
}

func (a *PostgresArchiver) Events(
	ctx context.Context, id ID,
) ([]*Event, error) {
	rows, err := a.pool.Query(ctx, pgSelectEntity, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		ev := &Event{}
		var entityID, eventType string
		err := rows.Scan(
			&ev.Sequence, &entityID, &eventType, &ev.Data, &ev.RecordedAt,
		)
		if err != nil {
			return nil, err
		}
		ev.EntityID = ID(entityID)
		ev.Type = EventType(eventType)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (a *PostgresArchiver) Close() error {
	a.pool.Close()
	return nil
}
