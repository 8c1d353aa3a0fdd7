package service

import (
	"context"
	"testing"
	"time"

	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/domain/meeting"
)

func dueMeeting(t *testing.T, title string, required ...meeting.Participant) *meeting.Meeting {
	t.Helper()
	b := meeting.NewBuilder().
		Type(meeting.TypeStandup).
		Title(title).
		ScheduledFor(time.Now().Add(time.Hour).UTC()).
		AgendaItem("status", nil)
	for _, p := range required {
		b.Require(p)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build meeting: %v", err)
	}
	// Build requires a schedule time; make it overdue afterwards.
	m.Invitation.ScheduledFor = time.Now().Add(-time.Minute).UTC()
	return m
}

func TestCheckAndStartMeetingsStartsDue(t *testing.T) {
	store := newMockMeetingStore()
	msgr := newMockMessenger()
	dir := newMockDirectory()
	orch := NewMeetingOrchestrator(store, msgr, dir, bus.New(), "meetings")
	s := NewMeetingScheduler(store, orch, time.Minute)

	store.put(dueMeeting(t, "due one", meeting.Agent("alice")))
	store.put(dueMeeting(t, "due two", meeting.Agent("bob")))

	// Not yet due; must be left alone.
	future, err := meeting.NewBuilder().
		Type(meeting.TypeStandup).
		Title("tomorrow").
		ScheduledFor(time.Now().Add(24 * time.Hour).UTC()).
		Require(meeting.Agent("carol")).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	store.put(future)

	started, err := s.CheckAndStartMeetings(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if started != 2 {
		t.Fatalf("started = %d, want 2", started)
	}
	if got := store.stored(future.ID).Status; got != meeting.StatusScheduled {
		t.Errorf("future meeting status = %s, want scheduled", got)
	}
}

func TestCheckAndStartMeetingsIsIdempotent(t *testing.T) {
	store := newMockMeetingStore()
	orch := NewMeetingOrchestrator(store, newMockMessenger(), newMockDirectory(), bus.New(), "meetings")
	s := NewMeetingScheduler(store, orch, time.Minute)

	store.put(dueMeeting(t, "standup", meeting.Agent("alice")))

	started, err := s.CheckAndStartMeetings(context.Background())
	if err != nil || started != 1 {
		t.Fatalf("first poll: started = %d, err = %v", started, err)
	}

	// Started meetings leave Scheduled status, so a second poll finds nothing.
	started, err = s.CheckAndStartMeetings(context.Background())
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if started != 0 {
		t.Errorf("second poll started = %d, want 0", started)
	}
}

func TestCheckAndStartMeetingsIsolatesFailures(t *testing.T) {
	store := newMockMeetingStore()
	dir := newMockDirectory()
	dir.failTeams["broken"] = true
	orch := NewMeetingOrchestrator(store, newMockMessenger(), dir, bus.New(), "meetings")
	s := NewMeetingScheduler(store, orch, time.Minute)

	store.put(dueMeeting(t, "doomed", meeting.Team("broken")))
	store.put(dueMeeting(t, "fine", meeting.Agent("alice")))

	started, err := s.CheckAndStartMeetings(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if started != 1 {
		t.Errorf("started = %d, want 1 (failure must not block the batch)", started)
	}
}

func TestSchedulerPollsImmediatelyOnStart(t *testing.T) {
	store := newMockMeetingStore()
	orch := NewMeetingOrchestrator(store, newMockMessenger(), newMockDirectory(), bus.New(), "meetings")
	s := NewMeetingScheduler(store, orch, time.Hour)

	due := dueMeeting(t, "overdue", meeting.Agent("alice"))
	store.put(due)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	// The interval is an hour; only the startup poll can start this one.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.stored(due.ID).Status == meeting.StatusInProgress {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("due meeting was not started by the initial poll")
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	store := newMockMeetingStore()
	orch := NewMeetingOrchestrator(store, newMockMessenger(), newMockDirectory(), bus.New(), "meetings")
	s := NewMeetingScheduler(store, orch, time.Hour)

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // second start is a no-op
	if !s.Running() {
		t.Fatal("scheduler should be running")
	}

	s.Stop()
	if s.Running() {
		t.Fatal("scheduler should be stopped")
	}
	s.Stop() // second stop is a no-op
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	store := newMockMeetingStore()
	orch := NewMeetingOrchestrator(store, newMockMessenger(), newMockDirectory(), bus.New(), "meetings")
	s := NewMeetingScheduler(store, orch, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	// The loop exits on cancel; Stop afterwards remains safe.
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	if s.Running() {
		t.Fatal("scheduler should be stopped")
	}
}
