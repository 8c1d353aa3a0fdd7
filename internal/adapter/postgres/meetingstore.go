package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socket-link/kore/internal/domain/meeting"
)

// MeetingStore implements meetingstore.Store on PostgreSQL. Participant
// lists are stored as JSONB on the meetings row; agenda items and outcomes
// live in their own tables so they can be updated and appended by id.
type MeetingStore struct {
	pool *pgxpool.Pool
}

// NewMeetingStore creates a MeetingStore backed by the given pool.
func NewMeetingStore(pool *pgxpool.Pool) *MeetingStore {
	return &MeetingStore{pool: pool}
}

const meetingColumns = `id, type, status, title, scheduled_for, scheduled_by,
	channel_id, thread_id, required, optional, expected_outcomes, attendees,
	started_at, started_by, completed_at, canceled_at, cancel_note,
	triggered_by, created_at, updated_at`

// Save upserts the full aggregate and returns the stored value. Agenda items
// are replaced wholesale; outcomes are owned by AddOutcome and left alone.
func (s *MeetingStore) Save(ctx context.Context, m *meeting.Meeting) (*meeting.Meeting, error) {
	required, err := json.Marshal(m.Invitation.Required)
	if err != nil {
		return nil, fmt.Errorf("marshal required: %w", err)
	}
	optional, err := json.Marshal(emptyIfNil(m.Invitation.Optional))
	if err != nil {
		return nil, fmt.Errorf("marshal optional: %w", err)
	}
	expected, err := json.Marshal(emptyIfNil(m.Invitation.ExpectedOutcomes))
	if err != nil {
		return nil, fmt.Errorf("marshal expected outcomes: %w", err)
	}
	attendees, err := json.Marshal(emptyIfNil(m.Attendees))
	if err != nil {
		return nil, fmt.Errorf("marshal attendees: %w", err)
	}

	var channelID, threadID any
	if m.Messaging != nil {
		channelID = m.Messaging.ChannelID
		threadID = m.Messaging.ThreadID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin save meeting %s: %w", m.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO meetings (`+meetingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13, $14, $15, $16, $17, $18, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   type = EXCLUDED.type,
		   status = EXCLUDED.status,
		   title = EXCLUDED.title,
		   scheduled_for = EXCLUDED.scheduled_for,
		   scheduled_by = EXCLUDED.scheduled_by,
		   channel_id = EXCLUDED.channel_id,
		   thread_id = EXCLUDED.thread_id,
		   required = EXCLUDED.required,
		   optional = EXCLUDED.optional,
		   expected_outcomes = EXCLUDED.expected_outcomes,
		   attendees = EXCLUDED.attendees,
		   started_at = EXCLUDED.started_at,
		   started_by = EXCLUDED.started_by,
		   completed_at = EXCLUDED.completed_at,
		   canceled_at = EXCLUDED.canceled_at,
		   cancel_note = EXCLUDED.cancel_note,
		   triggered_by = EXCLUDED.triggered_by,
		   updated_at = now()`,
		m.ID, m.Type, m.Status, m.Invitation.Title, m.Invitation.ScheduledFor, m.ScheduledBy,
		channelID, threadID, required, optional, expected, attendees,
		nullTime(m.StartedAt), m.StartedBy, nullTime(m.CompletedAt), nullTime(m.CanceledAt),
		m.CancelNote, m.TriggeredBy)
	if err != nil {
		return nil, fmt.Errorf("save meeting %s: %w", m.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM agenda_items WHERE meeting_id = $1`, m.ID); err != nil {
		return nil, fmt.Errorf("clear agenda for meeting %s: %w", m.ID, err)
	}
	for i, item := range m.Invitation.Agenda {
		var assigned any
		if item.AssignedTo != nil {
			assigned, err = json.Marshal(item.AssignedTo)
			if err != nil {
				return nil, fmt.Errorf("marshal agenda assignee: %w", err)
			}
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO agenda_items (id, meeting_id, position, topic, status, reason, assigned, completed_at, completed_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, m.ID, i, item.Topic, item.Status, item.Reason, assigned,
			nullTime(item.CompletedAt), item.CompletedBy)
		if err != nil {
			return nil, fmt.Errorf("save agenda item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit save meeting %s: %w", m.ID, err)
	}

	return s.Get(ctx, m.ID)
}

// Get returns the meeting with the given id, assembled from its row,
// agenda items, and outcomes.
func (s *MeetingStore) Get(ctx context.Context, id string) (*meeting.Meeting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)

	m, err := scanMeeting(row)
	if err != nil {
		return nil, notFoundWrap(err, "get meeting %s", id)
	}

	m.Invitation.Agenda, err = s.AgendaItems(ctx, id)
	if err != nil {
		return nil, err
	}

	m.Outcomes, err = s.outcomes(ctx, id)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// UpdateStatus sets the status of a stored meeting.
func (s *MeetingStore) UpdateStatus(ctx context.Context, id string, status meeting.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE meetings SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return execExpectOne(tag, err, "update status of meeting %s", id)
}

// UpdateAgendaItemStatus sets the status of a single agenda item by id.
func (s *MeetingStore) UpdateAgendaItemStatus(ctx context.Context, itemID string, status meeting.AgendaStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agenda_items SET status = $2 WHERE id = $1`, itemID, status)
	return execExpectOne(tag, err, "update status of agenda item %s", itemID)
}

// AgendaItems returns a meeting's agenda items in list order.
func (s *MeetingStore) AgendaItems(ctx context.Context, meetingID string) ([]meeting.AgendaItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic, status, reason, assigned, completed_at, completed_by
		 FROM agenda_items WHERE meeting_id = $1 ORDER BY position ASC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("agenda for meeting %s: %w", meetingID, err)
	}
	defer rows.Close()

	var out []meeting.AgendaItem
	for rows.Next() {
		var (
			item        meeting.AgendaItem
			assigned    []byte
			completedAt *time.Time
		)
		if err := rows.Scan(&item.ID, &item.Topic, &item.Status, &item.Reason,
			&assigned, &completedAt, &item.CompletedBy); err != nil {
			return nil, fmt.Errorf("scan agenda item: %w", err)
		}
		if len(assigned) > 0 {
			var p meeting.Participant
			if err := json.Unmarshal(assigned, &p); err != nil {
				return nil, fmt.Errorf("unmarshal agenda assignee: %w", err)
			}
			item.AssignedTo = &p
		}
		item.CompletedAt = timePtr(completedAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

// ScheduledBefore returns meetings still in Scheduled status whose scheduled
// time is at or before t, ordered earliest first.
func (s *MeetingStore) ScheduledBefore(ctx context.Context, t time.Time) ([]meeting.Meeting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		 WHERE status = $1 AND scheduled_for <= $2 ORDER BY scheduled_for ASC`,
		meeting.StatusScheduled, t)
	if err != nil {
		return nil, fmt.Errorf("meetings scheduled before %s: %w", t, err)
	}
	defer rows.Close()

	var out []meeting.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Invitation.Agenda, err = s.AgendaItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AddOutcome appends an outcome record to a meeting.
func (s *MeetingStore) AddOutcome(ctx context.Context, meetingID string, o meeting.Outcome) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO meeting_outcomes (id, meeting_id, kind, description, created_by)
		 VALUES ($1, $2, $3, $4, $5)`,
		o.ID, meetingID, o.Kind, o.Description, o.CreatedBy)
	if err != nil {
		return fmt.Errorf("add outcome to meeting %s: %w", meetingID, err)
	}
	return nil
}

// Delete removes a meeting; agenda items and outcomes cascade.
func (s *MeetingStore) Delete(ctx context.Context, meetingID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, meetingID)
	return execExpectOne(tag, err, "delete meeting %s", meetingID)
}

func (s *MeetingStore) outcomes(ctx context.Context, meetingID string) ([]meeting.Outcome, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, description, created_by FROM meeting_outcomes
		 WHERE meeting_id = $1 ORDER BY created_at ASC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("outcomes for meeting %s: %w", meetingID, err)
	}
	defer rows.Close()

	var out []meeting.Outcome
	for rows.Next() {
		var o meeting.Outcome
		if err := rows.Scan(&o.ID, &o.Kind, &o.Description, &o.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanMeeting(row scannable) (*meeting.Meeting, error) {
	var (
		m                      meeting.Meeting
		channelID, threadID    *string
		required, optional     []byte
		expected, attendees    []byte
		startedAt, completedAt *time.Time
		canceledAt             *time.Time
	)
	err := row.Scan(&m.ID, &m.Type, &m.Status, &m.Invitation.Title, &m.Invitation.ScheduledFor,
		&m.ScheduledBy, &channelID, &threadID, &required, &optional, &expected, &attendees,
		&startedAt, &m.StartedBy, &completedAt, &canceledAt, &m.CancelNote,
		&m.TriggeredBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(required, &m.Invitation.Required); err != nil {
		return nil, fmt.Errorf("unmarshal required: %w", err)
	}
	if err := json.Unmarshal(optional, &m.Invitation.Optional); err != nil {
		return nil, fmt.Errorf("unmarshal optional: %w", err)
	}
	if err := json.Unmarshal(expected, &m.Invitation.ExpectedOutcomes); err != nil {
		return nil, fmt.Errorf("unmarshal expected outcomes: %w", err)
	}
	if err := json.Unmarshal(attendees, &m.Attendees); err != nil {
		return nil, fmt.Errorf("unmarshal attendees: %w", err)
	}

	if channelID != nil && threadID != nil {
		m.Messaging = &meeting.MessagingDetails{ChannelID: *channelID, ThreadID: *threadID}
	}
	m.StartedAt = timePtr(startedAt)
	m.CompletedAt = timePtr(completedAt)
	m.CanceledAt = timePtr(canceledAt)
	m.Invitation.ScheduledFor = m.Invitation.ScheduledFor.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()

	return &m, nil
}

// emptyIfNil keeps JSONB columns as [] instead of null for nil slices.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
