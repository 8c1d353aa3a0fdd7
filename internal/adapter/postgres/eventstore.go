package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socket-link/kore/internal/domain/event"
)

// EventStore implements eventstore.Store on PostgreSQL. Events are stored
// as JSONB payloads alongside their discriminator columns so they can be
// queried by key without decoding.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append persists a new event.
func (s *EventStore) Append(ctx context.Context, ev event.Event) error {
	payload, err := encodePayload(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Head().ID, err)
	}

	head := ev.Head()
	key := ev.Key()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO events (id, class, type, source_agent, urgency, occurred_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		head.ID, key.Class, key.Type, head.Source.AgentID, head.Urgency, head.Timestamp, payload)
	if err != nil {
		return fmt.Errorf("append event %s: %w", head.ID, err)
	}
	return nil
}

// GetByID returns the event with the given id.
func (s *EventStore) GetByID(ctx context.Context, id string) (event.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT class, type, payload FROM events WHERE id = $1`, id)

	var (
		class   event.Class
		typ     string
		payload []byte
	)
	if err := row.Scan(&class, &typ, &payload); err != nil {
		return nil, notFoundWrap(err, "get event %s", id)
	}
	return decodeEvent(event.Key{Class: class, Type: typ}, payload)
}

// Since returns events at or after t, ascending by time.
func (s *EventStore) Since(ctx context.Context, t time.Time) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT class, type, payload FROM events
		 WHERE occurred_at >= $1 ORDER BY occurred_at ASC`, t)
	if err != nil {
		return nil, fmt.Errorf("events since %s: %w", t, err)
	}
	return scanEvents(rows)
}

// ByKey returns events with the given discriminator, newest first.
func (s *EventStore) ByKey(ctx context.Context, key event.Key) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT class, type, payload FROM events
		 WHERE class = $1 AND type = $2 ORDER BY occurred_at DESC`, key.Class, key.Type)
	if err != nil {
		return nil, fmt.Errorf("events by key %s: %w", key, err)
	}
	return scanEvents(rows)
}

// All returns every stored event, ascending by time.
func (s *EventStore) All(ctx context.Context) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT class, type, payload FROM events ORDER BY occurred_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("all events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]event.Event, error) {
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var (
			class   event.Class
			typ     string
			payload []byte
		)
		if err := rows.Scan(&class, &typ, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := decodeEvent(event.Key{Class: class, Type: typ}, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
