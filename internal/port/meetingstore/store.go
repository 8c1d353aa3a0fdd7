// Package meetingstore defines the port interface for meeting persistence.
package meetingstore

import (
	"context"
	"time"

	"github.com/socket-link/kore/internal/domain/meeting"
)

// Store is the port interface for persisting Meeting aggregates. The store
// is the single arbiter for concurrent writes to the same meeting id; the
// core takes no in-memory lock on the aggregate.
type Store interface {
	// Save persists the full aggregate (upsert) and returns the stored value.
	Save(ctx context.Context, m *meeting.Meeting) (*meeting.Meeting, error)

	// Get returns the meeting with the given id, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*meeting.Meeting, error)

	// UpdateStatus sets the status of a stored meeting.
	UpdateStatus(ctx context.Context, id string, status meeting.Status) error

	// UpdateAgendaItemStatus sets the status of a single agenda item by id.
	UpdateAgendaItemStatus(ctx context.Context, itemID string, status meeting.AgendaStatus) error

	// AgendaItems returns a meeting's agenda items in list order.
	AgendaItems(ctx context.Context, meetingID string) ([]meeting.AgendaItem, error)

	// ScheduledBefore returns meetings still in Scheduled status whose
	// scheduled time is at or before t.
	ScheduledBefore(ctx context.Context, t time.Time) ([]meeting.Meeting, error)

	// AddOutcome appends an outcome record to a meeting.
	AddOutcome(ctx context.Context, meetingID string, o meeting.Outcome) error

	// Delete removes a meeting and cascades its agenda items, outcomes,
	// and attendees. Administrative use only.
	Delete(ctx context.Context, meetingID string) error
}
