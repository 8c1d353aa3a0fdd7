package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/domain/event"
	"github.com/socket-link/kore/internal/domain/meeting"
	"github.com/socket-link/kore/internal/port/cache"
	"github.com/socket-link/kore/internal/port/directory"
	"github.com/socket-link/kore/internal/port/meetingstore"
	"github.com/socket-link/kore/internal/port/messenger"
)

// participationSubscriberID is the identity the router registers under on
// the bus.
const participationSubscriberID = "participation-router"

// ParticipationHandler receives meeting lifecycle events for one agent.
type ParticipationHandler func(ctx context.Context, ev event.Event)

// ParticipationRouter fans meeting lifecycle events out to the registered
// handlers of agents that actually participate in the referenced meeting.
// Agents not registered, or registered but not in the participant set,
// receive nothing. Each agent has at most one handler; re-registering
// replaces the previous one.
type ParticipationRouter struct {
	bus       *bus.Bus
	meetings  meetingstore.Store
	dir       directory.Directory
	messenger messenger.Messenger
	cache     cache.Cache
	cacheTTL  time.Duration

	mu       sync.Mutex
	handlers map[string]ParticipationHandler
	started  bool
}

// RouterOption configures a ParticipationRouter.
type RouterOption func(*ParticipationRouter)

// WithMeetingCache puts a read cache in front of meeting loads. Lifecycle
// events for one meeting arrive in bursts; the cache keeps the router from
// re-reading the aggregate for every delivery.
func WithMeetingCache(c cache.Cache, ttl time.Duration) RouterOption {
	return func(r *ParticipationRouter) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// NewParticipationRouter creates the router.
func NewParticipationRouter(
	b *bus.Bus,
	meetings meetingstore.Store,
	dir directory.Directory,
	msgr messenger.Messenger,
	opts ...RouterOption,
) *ParticipationRouter {
	r := &ParticipationRouter{
		bus:       b,
		meetings:  meetings,
		dir:       dir,
		messenger: msgr,
		handlers:  make(map[string]ParticipationHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes the router to the meeting lifecycle discriminators.
// Idempotent; the subscriptions are taken once.
func (r *ParticipationRouter) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	for _, key := range []event.Key{
		event.KeyMeetingStarted,
		event.KeyAgendaItemStarted,
		event.KeyMeetingCompleted,
	} {
		r.bus.Subscribe(participationSubscriberID, key, r.route)
	}
}

// SubscribeAgent registers the handler for an agent. The last registration
// wins; an agent never has more than one active handler.
func (r *ParticipationRouter) SubscribeAgent(agentID string, h ParticipationHandler) {
	r.mu.Lock()
	r.handlers[agentID] = h
	r.mu.Unlock()
}

// UnsubscribeAgent removes the agent's handler, if any.
func (r *ParticipationRouter) UnsubscribeAgent(agentID string) {
	r.mu.Lock()
	delete(r.handlers, agentID)
	r.mu.Unlock()
}

// IsAgentParticipant reports whether the agent belongs to the meeting's
// required-or-optional participant set, with teams expanded.
func (r *ParticipationRouter) IsAgentParticipant(ctx context.Context, meetingID, agentID string) (bool, error) {
	m, err := r.loadMeeting(ctx, meetingID)
	if err != nil {
		return false, fmt.Errorf("meeting %s: %w", meetingID, err)
	}
	agents, err := resolveParticipantAgents(ctx, r.dir, m.Participants())
	if err != nil {
		return false, err
	}
	for _, id := range agents {
		if id == agentID {
			return true, nil
		}
	}
	return false, nil
}

// route delivers one lifecycle event to the registered handlers of the
// meeting's participants. A meeting that cannot be loaded causes a silent
// skip: the event is dropped, not retried.
func (r *ParticipationRouter) route(ctx context.Context, ev event.Event) error {
	meetingID := meetingIDOf(ev)
	if meetingID == "" {
		return nil
	}

	m, err := r.loadMeeting(ctx, meetingID)
	if err != nil {
		slog.Warn("participation route: meeting load failed, dropping event",
			"meeting_id", meetingID, "event_id", ev.Head().ID, "error", err)
		return nil
	}

	agents, err := resolveParticipantAgents(ctx, r.dir, m.Participants())
	if err != nil {
		slog.Warn("participation route: participant resolution failed, dropping event",
			"meeting_id", meetingID, "error", err)
		return nil
	}

	for _, target := range r.registeredOf(agents) {
		target.handler(ctx, ev)

		switch e := ev.(type) {
		case event.MeetingStarted:
			r.handleMeetingStart(ctx, m, target.agentID)
		case event.AgendaItemStarted:
			r.handleAgendaItem(ctx, m, e, target.agentID)
		}
	}
	return nil
}

type registeredAgent struct {
	agentID string
	handler ParticipationHandler
}

// registeredOf snapshots the handlers of the given agents, in input order.
func (r *ParticipationRouter) registeredOf(agentIDs []string) []registeredAgent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []registeredAgent
	for _, id := range agentIDs {
		if h, ok := r.handlers[id]; ok {
			out = append(out, registeredAgent{agentID: id, handler: h})
		}
	}
	return out
}

// handleMeetingStart posts the agent's joined announcement and a prompt
// naming the current (or first pending) agenda item, marking the agent when
// it is the item's assignee.
func (r *ParticipationRouter) handleMeetingStart(ctx context.Context, m *meeting.Meeting, agentID string) {
	if m.Messaging == nil {
		return
	}
	threadID := m.Messaging.ThreadID

	if err := r.messenger.PostMessage(ctx, threadID, agentID+" joined the meeting."); err != nil {
		slog.Warn("joined announcement failed", "meeting_id", m.ID, "agent_id", agentID, "error", err)
		return
	}

	item := m.CurrentItem()
	if item == nil {
		return
	}

	prompt := fmt.Sprintf("%s: first up is %q.", agentID, item.Topic)
	if participantAgentID(item.AssignedTo) == agentID {
		prompt = fmt.Sprintf("%s: first up is %q — you are assigned to lead it.", agentID, item.Topic)
	}
	if err := r.messenger.PostMessage(ctx, threadID, prompt); err != nil {
		slog.Warn("agenda prompt failed", "meeting_id", m.ID, "agent_id", agentID, "error", err)
	}
}

// handleAgendaItem posts the per-agent message for a started agenda item:
// one variant for the assignee, another for everyone else.
func (r *ParticipationRouter) handleAgendaItem(ctx context.Context, m *meeting.Meeting, e event.AgendaItemStarted, agentID string) {
	if m.Messaging == nil {
		return
	}

	var msg string
	if e.AssignedTo != "" && e.AssignedTo == agentID {
		msg = fmt.Sprintf("%s: you are up — %q.", agentID, e.Topic)
	} else {
		msg = fmt.Sprintf("%s: now discussing %q.", agentID, e.Topic)
	}
	if err := r.messenger.PostMessage(ctx, m.Messaging.ThreadID, msg); err != nil {
		slog.Warn("agenda item notice failed", "meeting_id", m.ID, "agent_id", agentID, "error", err)
	}
}

// loadMeeting reads the meeting through the cache when one is configured.
func (r *ParticipationRouter) loadMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	cacheKey := "meeting:" + id

	if r.cache != nil {
		if data, ok, err := r.cache.Get(ctx, cacheKey); err == nil && ok {
			var m meeting.Meeting
			if err := json.Unmarshal(data, &m); err == nil {
				return &m, nil
			}
		}
	}

	m, err := r.meetings.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			_ = r.cache.Set(ctx, cacheKey, data, r.cacheTTL)
		}
	}
	return m, nil
}

// meetingIDOf extracts the referenced meeting id from a lifecycle event.
func meetingIDOf(ev event.Event) string {
	switch e := ev.(type) {
	case event.MeetingScheduled:
		return e.MeetingID
	case event.MeetingStarted:
		return e.MeetingID
	case event.AgendaItemStarted:
		return e.MeetingID
	case event.AgendaItemCompleted:
		return e.MeetingID
	case event.MeetingCompleted:
		return e.MeetingID
	case event.MeetingCanceled:
		return e.MeetingID
	default:
		return ""
	}
}
