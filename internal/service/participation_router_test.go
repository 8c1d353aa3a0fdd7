package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/domain/event"
	"github.com/socket-link/kore/internal/domain/meeting"
)

// recordingHandler collects delivered events for one agent.
type recordingHandler struct {
	mu     sync.Mutex
	events []event.Event
	ch     chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{ch: make(chan struct{}, 16)}
}

func (h *recordingHandler) handle(_ context.Context, ev event.Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	h.ch <- struct{}{}
}

func (h *recordingHandler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func inProgressMeeting(t *testing.T) *meeting.Meeting {
	t.Helper()
	alice := meeting.Agent("alice")
	m, err := meeting.NewBuilder().
		Type(meeting.TypeStandup).
		Title("Standup").
		ScheduledFor(time.Now().Add(time.Hour).UTC()).
		AgendaItem("Status", &alice).
		Require(meeting.Agent("alice")).
		Require(meeting.Team("backend")).
		Invite(meeting.Agent("carol")).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	m.Status = meeting.StatusInProgress
	m.Messaging = &meeting.MessagingDetails{ChannelID: "meetings", ThreadID: "thr-1"}
	return m
}

func TestRouteDeliversOnlyToParticipants(t *testing.T) {
	b := bus.New()
	store := newMockMeetingStore()
	dir := newMockDirectory()
	dir.teams["backend"] = []string{"bob"}
	msgr := newMockMessenger()
	r := NewParticipationRouter(b, store, dir, msgr)
	r.Start()

	m := inProgressMeeting(t)
	store.put(m)

	alice := newRecordingHandler()
	bob := newRecordingHandler()
	dave := newRecordingHandler() // registered but not a participant
	r.SubscribeAgent("alice", alice.handle)
	r.SubscribeAgent("bob", bob.handle)
	r.SubscribeAgent("dave", dave.handle)

	b.Publish(context.Background(), event.MeetingStarted{
		Header:    event.NewHeader(event.AgentSource("manager")),
		MeetingID: m.ID,
		ThreadID:  "thr-1",
		StartedAt: time.Now().UTC(),
		StartedBy: "manager",
	})

	alice.wait(t)
	bob.wait(t)

	if alice.count() != 1 || bob.count() != 1 {
		t.Errorf("participant deliveries: alice=%d bob=%d, want 1 each", alice.count(), bob.count())
	}
	if dave.count() != 0 {
		t.Errorf("non-participant dave received %d events, want 0", dave.count())
	}
}

func TestRouteSkipsUnloadableMeeting(t *testing.T) {
	b := bus.New()
	r := NewParticipationRouter(b, newMockMeetingStore(), newMockDirectory(), newMockMessenger())
	r.Start()

	h := newRecordingHandler()
	r.SubscribeAgent("alice", h.handle)

	b.Publish(context.Background(), event.MeetingStarted{
		Header:    event.NewHeader(event.AgentSource("manager")),
		MeetingID: "missing",
	})

	select {
	case <-h.ch:
		t.Fatal("handler invoked for an unloadable meeting")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeAgentStopsDelivery(t *testing.T) {
	b := bus.New()
	store := newMockMeetingStore()
	dir := newMockDirectory()
	r := NewParticipationRouter(b, store, dir, newMockMessenger())
	r.Start()

	m := inProgressMeeting(t)
	store.put(m)

	h := newRecordingHandler()
	r.SubscribeAgent("alice", h.handle)
	r.UnsubscribeAgent("alice")

	b.Publish(context.Background(), event.MeetingStarted{
		Header:    event.NewHeader(event.AgentSource("manager")),
		MeetingID: m.ID,
	})

	select {
	case <-h.ch:
		t.Fatal("handler invoked after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMeetingStartPromptsByAssignment(t *testing.T) {
	ctx := context.Background()
	store := newMockMeetingStore()
	dir := newMockDirectory()
	dir.teams["backend"] = []string{"bob"}
	msgr := newMockMessenger()
	r := NewParticipationRouter(bus.New(), store, dir, msgr)

	m := inProgressMeeting(t)
	store.put(m)

	noop := func(context.Context, event.Event) {}
	r.SubscribeAgent("alice", noop)
	r.SubscribeAgent("bob", noop)

	// Drive the routed handler directly for deterministic assertions.
	if err := r.route(ctx, event.MeetingStarted{
		Header:    event.NewHeader(event.AgentSource("manager")),
		MeetingID: m.ID,
	}); err != nil {
		t.Fatalf("route: %v", err)
	}

	var aliceLead, bobObserver bool
	for _, msg := range msgr.messages() {
		if strings.HasPrefix(msg.content, "alice:") && strings.Contains(msg.content, "you are assigned to lead it") {
			aliceLead = true
		}
		if strings.HasPrefix(msg.content, "bob:") && !strings.Contains(msg.content, "assigned") {
			bobObserver = true
		}
	}
	if !aliceLead {
		t.Error("assignee alice should be prompted to lead the first item")
	}
	if !bobObserver {
		t.Error("bob should get the plain agenda prompt")
	}
}

func TestAgendaItemVariants(t *testing.T) {
	ctx := context.Background()
	store := newMockMeetingStore()
	dir := newMockDirectory()
	dir.teams["backend"] = []string{"bob"}
	msgr := newMockMessenger()
	r := NewParticipationRouter(bus.New(), store, dir, msgr)

	m := inProgressMeeting(t)
	store.put(m)

	noop := func(context.Context, event.Event) {}
	r.SubscribeAgent("alice", noop)
	r.SubscribeAgent("bob", noop)

	if err := r.route(ctx, event.AgendaItemStarted{
		Header:       event.NewHeader(event.AgentSource("manager")),
		MeetingID:    m.ID,
		AgendaItemID: m.Invitation.Agenda[0].ID,
		Topic:        "Status",
		AssignedTo:   "alice",
	}); err != nil {
		t.Fatalf("route: %v", err)
	}

	var assigneeMsg, observerMsg bool
	for _, msg := range msgr.messages() {
		if msg.content == `alice: you are up — "Status".` {
			assigneeMsg = true
		}
		if msg.content == `bob: now discussing "Status".` {
			observerMsg = true
		}
	}
	if !assigneeMsg {
		t.Error("expected assignee variant for alice")
	}
	if !observerMsg {
		t.Error("expected observer variant for bob")
	}
}

func TestIsAgentParticipant(t *testing.T) {
	ctx := context.Background()
	store := newMockMeetingStore()
	dir := newMockDirectory()
	dir.teams["backend"] = []string{"bob"}
	r := NewParticipationRouter(bus.New(), store, dir, newMockMessenger())

	m := inProgressMeeting(t)
	store.put(m)

	tests := []struct {
		agentID string
		want    bool
	}{
		{"alice", true}, // required directly
		{"bob", true},   // via team expansion
		{"carol", true}, // optional
		{"dave", false},
	}
	for _, tt := range tests {
		got, err := r.IsAgentParticipant(ctx, m.ID, tt.agentID)
		if err != nil {
			t.Fatalf("IsAgentParticipant(%s): %v", tt.agentID, err)
		}
		if got != tt.want {
			t.Errorf("IsAgentParticipant(%s) = %v, want %v", tt.agentID, got, tt.want)
		}
	}

	if _, err := r.IsAgentParticipant(ctx, "missing", "alice"); err == nil {
		t.Error("expected error for unknown meeting")
	}
}

func TestMeetingCacheAvoidsRepeatLoads(t *testing.T) {
	ctx := context.Background()
	store := newMockMeetingStore()
	c := newMockCache()
	r := NewParticipationRouter(bus.New(), store, newMockDirectory(), newMockMessenger(),
		WithMeetingCache(c, time.Minute))

	m := inProgressMeeting(t)
	store.put(m)

	if _, err := r.loadMeeting(ctx, m.ID); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := r.loadMeeting(ctx, m.ID); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if store.getCalls != 1 {
		t.Errorf("store reads = %d, want 1 (second load should hit the cache)", store.getCalls)
	}
	if c.hits != 1 {
		t.Errorf("cache hits = %d, want 1", c.hits)
	}
}
