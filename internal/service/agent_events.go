// Package service contains the application services coordinating agents,
// meetings, and event routing.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/domain/event"
	"github.com/socket-link/kore/internal/port/eventstore"
)

// Filter is a client-side predicate applied before a subscriber's handler
// runs. It short-circuits locally only and does not affect bus delivery.
type Filter func(ev event.Event) bool

// AgentEvents binds one agent identity to the event bus and the event
// store. Published events are persisted first; an event that cannot be
// persisted is never put on the bus, so everything on the bus can later be
// replayed from storage.
type AgentEvents struct {
	agentID string
	bus     *bus.Bus
	events  eventstore.Store
}

// NewAgentEvents creates the facade for the given agent.
func NewAgentEvents(agentID string, b *bus.Bus, events eventstore.Store) *AgentEvents {
	return &AgentEvents{agentID: agentID, bus: b, events: events}
}

// AgentID returns the bound agent identity.
func (s *AgentEvents) AgentID() string { return s.agentID }

// Publish persists ev and, only on success, forwards it to the bus.
// A persistence failure is logged and swallowed: the event is dropped
// rather than delivered without an audit trail.
func (s *AgentEvents) Publish(ctx context.Context, ev event.Event) {
	if err := s.events.Append(ctx, ev); err != nil {
		slog.Error("event persist failed, not publishing",
			"key", ev.Key().String(),
			"event_id", ev.Head().ID,
			"agent_id", s.agentID,
			"error", err,
		)
		return
	}
	s.bus.Publish(ctx, ev)
}

func (s *AgentEvents) header() event.Header {
	return event.NewHeader(event.AgentSource(s.agentID))
}

// PublishTaskCreated publishes a TaskCreated event from this agent.
func (s *AgentEvents) PublishTaskCreated(ctx context.Context, taskID, title, description string) {
	s.Publish(ctx, event.TaskCreated{
		Header:      s.header(),
		TaskID:      taskID,
		Title:       title,
		Description: description,
	})
}

// PublishQuestionRaised publishes a QuestionRaised event from this agent.
func (s *AgentEvents) PublishQuestionRaised(ctx context.Context, questionID, topic, question, raisedTo string) {
	s.Publish(ctx, event.QuestionRaised{
		Header:     s.header(),
		QuestionID: questionID,
		Topic:      topic,
		Question:   question,
		RaisedTo:   raisedTo,
	})
}

// PublishCodeSubmitted publishes a CodeSubmitted event from this agent.
func (s *AgentEvents) PublishCodeSubmitted(ctx context.Context, submissionID, repository, branch, summary string) {
	s.Publish(ctx, event.CodeSubmitted{
		Header:       s.header(),
		SubmissionID: submissionID,
		Repository:   repository,
		Branch:       branch,
		Summary:      summary,
	})
}

// on subscribes on the bus with the optional local filter applied first.
func (s *AgentEvents) on(key event.Key, filter Filter, h func(ctx context.Context, ev event.Event)) event.Subscription {
	return s.bus.Subscribe(s.agentID, key, func(ctx context.Context, ev event.Event) error {
		if filter != nil && !filter(ev) {
			return nil
		}
		h(ctx, ev)
		return nil
	})
}

// OnTaskCreated subscribes to TaskCreated events.
func (s *AgentEvents) OnTaskCreated(filter Filter, h func(ctx context.Context, ev event.TaskCreated)) event.Subscription {
	return s.on(event.KeyTaskCreated, filter, func(ctx context.Context, ev event.Event) {
		if tc, ok := ev.(event.TaskCreated); ok {
			h(ctx, tc)
		}
	})
}

// OnQuestionRaised subscribes to QuestionRaised events.
func (s *AgentEvents) OnQuestionRaised(filter Filter, h func(ctx context.Context, ev event.QuestionRaised)) event.Subscription {
	return s.on(event.KeyQuestionRaised, filter, func(ctx context.Context, ev event.Event) {
		if q, ok := ev.(event.QuestionRaised); ok {
			h(ctx, q)
		}
	})
}

// OnMeetingStarted subscribes to MeetingStarted events.
func (s *AgentEvents) OnMeetingStarted(filter Filter, h func(ctx context.Context, ev event.MeetingStarted)) event.Subscription {
	return s.on(event.KeyMeetingStarted, filter, func(ctx context.Context, ev event.Event) {
		if ms, ok := ev.(event.MeetingStarted); ok {
			h(ctx, ms)
		}
	})
}

// OnNotification subscribes to notifications directed at this agent.
// Envelopes addressed to other agents are filtered out locally.
func (s *AgentEvents) OnNotification(h func(ctx context.Context, ev event.AgentNotification)) event.Subscription {
	return s.on(event.KeyAgentNotification, nil, func(ctx context.Context, ev event.Event) {
		n, ok := ev.(event.AgentNotification)
		if !ok || n.AgentID != s.agentID {
			return
		}
		h(ctx, n)
	})
}

// RecentEvents returns stored events at or after since, optionally narrowed
// to one discriminator. Filters combine as logical AND.
func (s *AgentEvents) RecentEvents(ctx context.Context, since time.Time, key *event.Key) ([]event.Event, error) {
	evs, err := s.events.Since(ctx, since)
	if err != nil {
		return nil, err
	}
	return filterByKey(evs, key), nil
}

// EventHistory returns stored events for the given discriminator, or the
// full history when key is nil, optionally bounded by since.
func (s *AgentEvents) EventHistory(ctx context.Context, key *event.Key, since *time.Time) ([]event.Event, error) {
	var (
		evs []event.Event
		err error
	)
	if key != nil {
		evs, err = s.events.ByKey(ctx, *key)
	} else {
		evs, err = s.events.All(ctx)
	}
	if err != nil {
		return nil, err
	}
	if since == nil {
		return evs, nil
	}
	var out []event.Event
	for _, ev := range evs {
		if !ev.Head().Timestamp.Before(*since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Replay republishes stored events matching the filter to the bus, in query
// order, bypassing persistence. It is used to rebuild in-memory subscriber
// state after a restart. Returns the number of events republished.
func (s *AgentEvents) Replay(ctx context.Context, since time.Time, key *event.Key) (int, error) {
	evs, err := s.RecentEvents(ctx, since, key)
	if err != nil {
		return 0, err
	}
	for _, ev := range evs {
		s.bus.Publish(ctx, ev)
	}
	return len(evs), nil
}

func filterByKey(evs []event.Event, key *event.Key) []event.Event {
	if key == nil {
		return evs
	}
	var out []event.Event
	for _, ev := range evs {
		if ev.Key() == *key {
			out = append(out, ev)
		}
	}
	return out
}
