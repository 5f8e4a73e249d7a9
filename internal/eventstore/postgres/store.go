// Package postgres is an optional eventstore.Store backed by a Postgres
// table. It is not wired by default — cmd/orchestrator uses the in-memory
// store unless a non-"memory" StoragePath is configured.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
)

// schema:
//
//	CREATE TABLE event_store (
//	    event_id        TEXT PRIMARY KEY,
//	    event_type      TEXT NOT NULL,
//	    aggregate_id    TEXT NOT NULL,
//	    aggregate_type  TEXT NOT NULL,
//	    occurred_at     TIMESTAMPTZ NOT NULL,
//	    payload         JSONB NOT NULL,
//	    version         INT NOT NULL DEFAULT 1
//	);
//	CREATE INDEX ON event_store (aggregate_id);
//	CREATE INDEX ON event_store (event_type);

// Store is a Postgres-backed eventstore.Store.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and returns a ready Store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperr.NewInfrastructure("eventstore.postgres.open", err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperr.NewInfrastructure("eventstore.postgres.ping", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Save is idempotent on eventID via ON CONFLICT DO NOTHING: the store
// never produces two rows with the same event id.
func (s *Store) Save(ctx context.Context, event events.Envelope) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return apperr.NewInfrastructure("eventstore.postgres.marshal", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_store (event_id, event_type, aggregate_id, aggregate_type, occurred_at, payload, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`, event.EventID, string(event.EventType), event.AggregateID, event.AggregateType,
		event.OccurredAt, payload, event.Version)
	if err != nil {
		return apperr.NewInfrastructure("eventstore.postgres.save", err)
	}
	return nil
}

// FindByID returns the event with the given id, or a NotFoundError.
func (s *Store) FindByID(ctx context.Context, eventID string) (events.Envelope, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, occurred_at, payload, version
		FROM event_store WHERE event_id = $1
	`, eventID)
	e, err := scanEnvelope(row)
	if err == sql.ErrNoRows {
		return events.Envelope{}, apperr.NewNotFound("event", eventID)
	}
	if err != nil {
		return events.Envelope{}, apperr.NewInfrastructure("eventstore.postgres.findById", err)
	}
	return e, nil
}

// FindByAggregateID returns events for aggregateID ordered ascending by
// occurred_at.
func (s *Store) FindByAggregateID(ctx context.Context, aggregateID string) ([]events.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, occurred_at, payload, version
		FROM event_store WHERE aggregate_id = $1 ORDER BY occurred_at ASC
	`, aggregateID)
	if err != nil {
		return nil, apperr.NewInfrastructure("eventstore.postgres.findByAggregateId", err)
	}
	defer rows.Close()
	return scanEnvelopes(rows)
}

// FindByEventType returns events of eventType ordered descending by
// occurred_at.
func (s *Store) FindByEventType(ctx context.Context, eventType events.Type) ([]events.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, occurred_at, payload, version
		FROM event_store WHERE event_type = $1 ORDER BY occurred_at DESC
	`, string(eventType))
	if err != nil {
		return nil, apperr.NewInfrastructure("eventstore.postgres.findByEventType", err)
	}
	defer rows.Close()
	return scanEnvelopes(rows)
}

// FindAll returns every event ordered descending by occurred_at.
func (s *Store) FindAll(ctx context.Context) ([]events.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, occurred_at, payload, version
		FROM event_store ORDER BY occurred_at DESC
	`)
	if err != nil {
		return nil, apperr.NewInfrastructure("eventstore.postgres.findAll", err)
	}
	defer rows.Close()
	return scanEnvelopes(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEnvelope(row rowScanner) (events.Envelope, error) {
	var e events.Envelope
	var eventType string
	var payload []byte

	if err := row.Scan(&e.EventID, &eventType, &e.AggregateID, &e.AggregateType,
		&e.OccurredAt, &payload, &e.Version); err != nil {
		return events.Envelope{}, err
	}
	e.EventType = events.Type(eventType)

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return events.Envelope{}, fmt.Errorf("eventstore: decode payload: %w", err)
		}
	}
	return e, nil
}

func scanEnvelopes(rows *sql.Rows) ([]events.Envelope, error) {
	var out []events.Envelope
	for rows.Next() {
		e, err := scanEnvelope(rows)
		if err != nil {
			return nil, apperr.NewInfrastructure("eventstore.postgres.scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.NewInfrastructure("eventstore.postgres.rows", err)
	}
	return out, nil
}
