// Package eventstore defines the port interface for event persistence.
package eventstore

import (
	"context"
	"time"

	"github.com/socket-link/kore/internal/domain/event"
)

// Store is the port interface for appending and querying persisted events.
// Encoding is the implementation's concern; callers deal only in domain
// event values.
type Store interface {
	// Append persists a new event.
	Append(ctx context.Context, ev event.Event) error

	// GetByID returns the event with the given id, or domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (event.Event, error)

	// Since returns events with timestamps at or after t, ascending by time.
	Since(ctx context.Context, t time.Time) ([]event.Event, error)

	// ByKey returns events with the given discriminator, newest first.
	ByKey(ctx context.Context, key event.Key) ([]event.Event, error)

	// All returns every stored event, ascending by time.
	All(ctx context.Context) ([]event.Event, error)
}
