package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/socket-link/kore/internal/domain"
	"github.com/socket-link/kore/internal/domain/event"
	"github.com/socket-link/kore/internal/domain/meeting"
	"github.com/socket-link/kore/internal/port/cache"
	"github.com/socket-link/kore/internal/port/directory"
	"github.com/socket-link/kore/internal/port/eventstore"
	"github.com/socket-link/kore/internal/port/meetingstore"
	"github.com/socket-link/kore/internal/port/messenger"
)

// --- meeting store ---

type mockMeetingStore struct {
	mu       sync.Mutex
	meetings map[string]meeting.Meeting
	outcomes map[string][]meeting.Outcome
	failSave bool
	getCalls int
}

var _ meetingstore.Store = (*mockMeetingStore)(nil)

func newMockMeetingStore() *mockMeetingStore {
	return &mockMeetingStore{
		meetings: make(map[string]meeting.Meeting),
		outcomes: make(map[string][]meeting.Outcome),
	}
}

// Save follows the postgres contract: outcome rows are owned by AddOutcome
// and ignored on save; the returned aggregate is re-read, outcomes included.
func (s *mockMeetingStore) Save(_ context.Context, m *meeting.Meeting) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return nil, errors.New("store unavailable")
	}
	stored := *m
	stored.Outcomes = nil
	s.meetings[m.ID] = stored
	saved := stored
	saved.Outcomes = append([]meeting.Outcome(nil), s.outcomes[m.ID]...)
	return &saved, nil
}

func (s *mockMeetingStore) Get(_ context.Context, id string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	m, ok := s.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	out := m
	out.Outcomes = append([]meeting.Outcome(nil), s.outcomes[id]...)
	return &out, nil
}

func (s *mockMeetingStore) UpdateStatus(_ context.Context, id string, status meeting.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	s.meetings[id] = m
	return nil
}

func (s *mockMeetingStore) UpdateAgendaItemStatus(_ context.Context, itemID string, status meeting.AgendaStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.meetings {
		for i := range m.Invitation.Agenda {
			if m.Invitation.Agenda[i].ID == itemID {
				m.Invitation.Agenda[i].Status = status
				s.meetings[id] = m
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (s *mockMeetingStore) AgendaItems(_ context.Context, meetingID string) ([]meeting.AgendaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]meeting.AgendaItem(nil), m.Invitation.Agenda...), nil
}

func (s *mockMeetingStore) ScheduledBefore(_ context.Context, t time.Time) ([]meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []meeting.Meeting
	for _, m := range s.meetings {
		if m.Status == meeting.StatusScheduled && !m.Invitation.ScheduledFor.After(t) {
			due = append(due, m)
		}
	}
	return due, nil
}

func (s *mockMeetingStore) AddOutcome(_ context.Context, meetingID string, o meeting.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[meetingID]; !ok {
		return domain.ErrNotFound
	}
	s.outcomes[meetingID] = append(s.outcomes[meetingID], o)
	return nil
}

func (s *mockMeetingStore) Delete(_ context.Context, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[meetingID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.meetings, meetingID)
	delete(s.outcomes, meetingID)
	return nil
}

func (s *mockMeetingStore) put(m *meeting.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = *m
}

func (s *mockMeetingStore) stored(id string) meeting.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetings[id]
}

func (s *mockMeetingStore) storedOutcomes(id string) []meeting.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]meeting.Outcome(nil), s.outcomes[id]...)
}

// --- event store ---

type mockEventStore struct {
	mu         sync.Mutex
	events     []event.Event
	failAppend bool
}

var _ eventstore.Store = (*mockEventStore)(nil)

func newMockEventStore() *mockEventStore { return &mockEventStore{} }

func (s *mockEventStore) Append(_ context.Context, ev event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return errors.New("store unavailable")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *mockEventStore) GetByID(_ context.Context, id string) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Head().ID == id {
			return ev, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockEventStore) Since(_ context.Context, t time.Time) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, ev := range s.events {
		if !ev.Head().Timestamp.Before(t) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *mockEventStore) ByKey(_ context.Context, key event.Key) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Key() == key {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *mockEventStore) All(_ context.Context) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.events...), nil
}

func (s *mockEventStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// --- messenger ---

type postedMessage struct {
	threadID string
	content  string
}

type mockMessenger struct {
	mu         sync.Mutex
	threads    int
	posted     []postedMessage
	failCreate bool
}

var _ messenger.Messenger = (*mockMessenger)(nil)

func newMockMessenger() *mockMessenger { return &mockMessenger{} }

func (m *mockMessenger) CreateThread(_ context.Context, channel string, _ []string, initial string) (*messenger.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return nil, errors.New("messenger unavailable")
	}
	m.threads++
	id := fmt.Sprintf("thr-%d", m.threads)
	m.posted = append(m.posted, postedMessage{threadID: id, content: initial})
	return &messenger.Thread{ID: id, ChannelID: channel}, nil
}

func (m *mockMessenger) PostMessage(_ context.Context, threadID string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, postedMessage{threadID: threadID, content: content})
	return nil
}

func (m *mockMessenger) threadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threads
}

func (m *mockMessenger) messages() []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]postedMessage(nil), m.posted...)
}

// --- directory ---

type mockDirectory struct {
	teams     map[string][]string
	failTeams map[string]bool
}

var _ directory.Directory = (*mockDirectory)(nil)

func newMockDirectory() *mockDirectory {
	return &mockDirectory{teams: make(map[string][]string), failTeams: make(map[string]bool)}
}

func (d *mockDirectory) TeamMembers(_ context.Context, teamID string) ([]string, error) {
	if d.failTeams[teamID] {
		return nil, errors.New("directory unavailable")
	}
	return d.teams[teamID], nil
}

// --- cache ---

type mockCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
	hits  int
}

var _ cache.Cache = (*mockCache)(nil)

func newMockCache() *mockCache { return &mockCache{items: make(map[string][]byte)} }

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if ok {
		c.hits++
	}
	return data, ok, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.sets++
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
