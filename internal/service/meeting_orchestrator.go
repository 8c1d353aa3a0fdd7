package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/domain"
	"github.com/socket-link/kore/internal/domain/event"
	"github.com/socket-link/kore/internal/domain/meeting"
	"github.com/socket-link/kore/internal/port/directory"
	"github.com/socket-link/kore/internal/port/meetingstore"
	"github.com/socket-link/kore/internal/port/messenger"
)

// MeetingOrchestrator validates and executes meeting state transitions,
// coordinating the messenger (thread creation, announcements), the meeting
// store, and the event bus.
//
// Every operation applies side effects in a fixed order: validate, messaging
// side effect, persist, publish, supplementary message. A failed persist
// skips publication and is returned to the caller; a failed supplementary
// message is logged but does not fail the operation.
//
// Concurrent transitions on the same meeting id are resolved by the store
// (last write wins); the orchestrator takes no in-memory lock on the
// aggregate.
type MeetingOrchestrator struct {
	meetings  meetingstore.Store
	messenger messenger.Messenger
	dir       directory.Directory
	bus       *bus.Bus
	channel   string
	now       func() time.Time
}

// NewMeetingOrchestrator creates the orchestrator. channel names the chat
// channel in which meeting threads are opened.
func NewMeetingOrchestrator(
	meetings meetingstore.Store,
	msgr messenger.Messenger,
	dir directory.Directory,
	b *bus.Bus,
	channel string,
) *MeetingOrchestrator {
	return &MeetingOrchestrator{
		meetings:  meetings,
		messenger: msgr,
		dir:       dir,
		bus:       b,
		channel:   channel,
		now:       time.Now,
	}
}

// ScheduleMeeting validates the built meeting, opens its announcement
// thread, persists it, and publishes MeetingScheduled. The meeting must be
// in Scheduled status with a future schedule time and at least one required
// participant; any violation fails before side effects.
func (o *MeetingOrchestrator) ScheduleMeeting(ctx context.Context, m *meeting.Meeting, scheduledBy string) (*meeting.Meeting, error) {
	if m.Status != meeting.StatusScheduled {
		return nil, fmt.Errorf("schedule meeting %s: status %s: %w", m.ID, m.Status, domain.ErrInvalidState)
	}
	if !m.Invitation.ScheduledFor.After(o.now()) {
		return nil, fmt.Errorf("schedule meeting %s: scheduled_for must be in the future: %w", m.ID, domain.ErrValidation)
	}
	if len(m.Invitation.Required) == 0 {
		return nil, fmt.Errorf("schedule meeting %s: at least one required participant: %w", m.ID, domain.ErrValidation)
	}

	agents, err := resolveParticipantAgents(ctx, o.dir, m.Participants())
	if err != nil {
		return nil, fmt.Errorf("schedule meeting %s: %w", m.ID, err)
	}

	thread, err := o.messenger.CreateThread(ctx, o.channel, agents, renderScheduleAnnouncement(m))
	if err != nil {
		return nil, fmt.Errorf("create thread for meeting %s: %w", m.ID, err)
	}

	next := *m
	next.ScheduledBy = scheduledBy
	next.Messaging = &meeting.MessagingDetails{ChannelID: thread.ChannelID, ThreadID: thread.ID}
	next.UpdatedAt = o.now().UTC()

	saved, err := o.meetings.Save(ctx, &next)
	if err != nil {
		slog.Error("persist scheduled meeting failed", "meeting_id", m.ID, "error", err)
		return nil, fmt.Errorf("save meeting %s: %w", m.ID, err)
	}

	o.bus.Publish(ctx, event.MeetingScheduled{
		Header:       event.NewHeader(event.AgentSource(scheduledBy)),
		MeetingID:    saved.ID,
		Title:        saved.Invitation.Title,
		ScheduledFor: saved.Invitation.ScheduledFor,
		ScheduledBy:  scheduledBy,
	})

	slog.Info("meeting scheduled",
		"meeting_id", saved.ID,
		"type", saved.Type,
		"scheduled_for", saved.Invitation.ScheduledFor,
		"participants", len(agents),
	)
	return saved, nil
}

// StartMeeting transitions a Scheduled meeting to InProgress, reusing its
// announcement thread when one exists, and publishes MeetingStarted.
func (o *MeetingOrchestrator) StartMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	m, err := o.meetings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("start meeting %s: %w", id, err)
	}
	if m.Status != meeting.StatusScheduled {
		return nil, fmt.Errorf("start meeting %s: status %s: %w", id, m.Status, domain.ErrInvalidState)
	}

	next := *m
	if next.Messaging == nil {
		agents, err := resolveParticipantAgents(ctx, o.dir, m.Participants())
		if err != nil {
			return nil, fmt.Errorf("start meeting %s: %w", id, err)
		}
		thread, err := o.messenger.CreateThread(ctx, o.channel, agents, renderStartAnnouncement(m))
		if err != nil {
			return nil, fmt.Errorf("create thread for meeting %s: %w", id, err)
		}
		next.Messaging = &meeting.MessagingDetails{ChannelID: thread.ChannelID, ThreadID: thread.ID}
	}

	startedAt := o.now().UTC()
	next.Status = meeting.StatusInProgress
	next.StartedAt = &startedAt
	next.StartedBy = m.ScheduledBy
	next.UpdatedAt = startedAt

	saved, err := o.meetings.Save(ctx, &next)
	if err != nil {
		slog.Error("persist started meeting failed", "meeting_id", id, "error", err)
		return nil, fmt.Errorf("save meeting %s: %w", id, err)
	}

	o.bus.Publish(ctx, event.MeetingStarted{
		Header:    event.NewHeader(event.AgentSource(saved.StartedBy)),
		MeetingID: saved.ID,
		ThreadID:  saved.Messaging.ThreadID,
		StartedAt: startedAt,
		StartedBy: saved.StartedBy,
	})

	slog.Info("meeting started", "meeting_id", saved.ID, "thread_id", saved.Messaging.ThreadID)
	return saved, nil
}

// AdvanceAgenda moves the first pending agenda item (in list order) to
// InProgress, publishes AgendaItemStarted, and announces the topic in the
// meeting thread. A nil item with nil error means the agenda is exhausted.
func (o *MeetingOrchestrator) AdvanceAgenda(ctx context.Context, id string) (*meeting.AgendaItem, error) {
	m, err := o.meetings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("advance agenda %s: %w", id, err)
	}
	if m.Status != meeting.StatusInProgress {
		return nil, fmt.Errorf("advance agenda %s: status %s: %w", id, m.Status, domain.ErrInvalidState)
	}

	item := m.FirstPending()
	if item == nil {
		return nil, nil
	}
	item.Status = meeting.AgendaInProgress

	if err := o.meetings.UpdateAgendaItemStatus(ctx, item.ID, meeting.AgendaInProgress); err != nil {
		slog.Error("persist agenda item failed", "meeting_id", id, "agenda_item_id", item.ID, "error", err)
		return nil, fmt.Errorf("update agenda item %s: %w", item.ID, err)
	}

	o.bus.Publish(ctx, event.AgendaItemStarted{
		Header:       event.NewHeader(event.AgentSource(m.StartedBy)),
		MeetingID:    m.ID,
		AgendaItemID: item.ID,
		Topic:        item.Topic,
		AssignedTo:   participantAgentID(item.AssignedTo),
	})

	if m.Messaging != nil {
		if err := o.messenger.PostMessage(ctx, m.Messaging.ThreadID, renderAgendaAnnouncement(item)); err != nil {
			slog.Warn("agenda announcement failed", "meeting_id", id, "agenda_item_id", item.ID, "error", err)
		}
	}
	return item, nil
}

// CompleteMeeting transitions an InProgress meeting to Completed, records
// its attendees and outcomes, publishes MeetingCompleted, and posts a
// summary grouped by outcome kind. An empty outcome list is allowed.
func (o *MeetingOrchestrator) CompleteMeeting(ctx context.Context, id string, outcomes []meeting.Outcome) (*meeting.Meeting, error) {
	m, err := o.meetings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("complete meeting %s: %w", id, err)
	}
	if m.Status != meeting.StatusInProgress {
		return nil, fmt.Errorf("complete meeting %s: status %s: %w", id, m.Status, domain.ErrInvalidState)
	}

	for i := range outcomes {
		if outcomes[i].ID == "" {
			outcomes[i].ID = uuid.NewString()
		}
	}

	// Outcomes are appended before the status save so the saved aggregate,
	// the published count, and the thread summary all see them. Save never
	// writes outcomes itself.
	for _, oc := range outcomes {
		if err := o.meetings.AddOutcome(ctx, id, oc); err != nil {
			slog.Error("persist outcome failed", "meeting_id", id, "outcome_id", oc.ID, "error", err)
			return nil, fmt.Errorf("add outcome %s: %w", oc.ID, err)
		}
	}

	completedAt := o.now().UTC()
	next := *m
	next.Status = meeting.StatusCompleted
	next.CompletedAt = &completedAt
	next.Attendees = m.AttendeeList()
	next.UpdatedAt = completedAt

	saved, err := o.meetings.Save(ctx, &next)
	if err != nil {
		slog.Error("persist completed meeting failed", "meeting_id", id, "error", err)
		return nil, fmt.Errorf("save meeting %s: %w", id, err)
	}

	o.bus.Publish(ctx, event.MeetingCompleted{
		Header:       event.NewHeader(event.AgentSource(m.StartedBy)),
		MeetingID:    saved.ID,
		CompletedAt:  completedAt,
		OutcomeCount: len(saved.Outcomes),
	})

	if saved.Messaging != nil {
		if err := o.messenger.PostMessage(ctx, saved.Messaging.ThreadID, renderOutcomeSummary(saved)); err != nil {
			slog.Warn("completion summary failed", "meeting_id", id, "error", err)
		}
	}

	slog.Info("meeting completed", "meeting_id", saved.ID, "outcomes", len(saved.Outcomes))
	return saved, nil
}

// CancelMeeting transitions an InProgress meeting to Canceled and publishes
// MeetingCanceled. The cancellation path mirrors completion.
func (o *MeetingOrchestrator) CancelMeeting(ctx context.Context, id, reason string) (*meeting.Meeting, error) {
	m, err := o.meetings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel meeting %s: %w", id, err)
	}
	if m.Status != meeting.StatusInProgress {
		return nil, fmt.Errorf("cancel meeting %s: status %s: %w", id, m.Status, domain.ErrInvalidState)
	}

	canceledAt := o.now().UTC()
	next := *m
	next.Status = meeting.StatusCanceled
	next.CanceledAt = &canceledAt
	next.CancelNote = reason
	next.UpdatedAt = canceledAt

	saved, err := o.meetings.Save(ctx, &next)
	if err != nil {
		slog.Error("persist canceled meeting failed", "meeting_id", id, "error", err)
		return nil, fmt.Errorf("save meeting %s: %w", id, err)
	}

	o.bus.Publish(ctx, event.MeetingCanceled{
		Header:    event.NewHeader(event.AgentSource(m.StartedBy)),
		MeetingID: saved.ID,
		Reason:    reason,
	})

	if saved.Messaging != nil {
		msg := "Meeting canceled."
		if reason != "" {
			msg = "Meeting canceled: " + reason
		}
		if err := o.messenger.PostMessage(ctx, saved.Messaging.ThreadID, msg); err != nil {
			slog.Warn("cancellation notice failed", "meeting_id", id, "error", err)
		}
	}

	slog.Info("meeting canceled", "meeting_id", saved.ID, "reason", reason)
	return saved, nil
}

// GetMeeting returns the stored aggregate by id.
func (o *MeetingOrchestrator) GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	return o.meetings.Get(ctx, id)
}

// DeleteMeeting removes a meeting and its dependents. Administrative only;
// normal lifecycle never deletes.
func (o *MeetingOrchestrator) DeleteMeeting(ctx context.Context, id string) error {
	if err := o.meetings.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete meeting %s: %w", id, err)
	}
	slog.Info("meeting deleted", "meeting_id", id)
	return nil
}
