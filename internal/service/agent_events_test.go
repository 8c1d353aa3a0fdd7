package service

import (
	"context"
	"testing"
	"time"

	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/domain/event"
)

func TestPublishPersistsBeforeBus(t *testing.T) {
	b := bus.New()
	store := newMockEventStore()
	store.failAppend = true
	a := NewAgentEvents("worker-1", b, store)

	received := make(chan event.Event, 1)
	a.OnTaskCreated(nil, func(_ context.Context, ev event.TaskCreated) {
		received <- ev
	})

	a.PublishTaskCreated(context.Background(), "t-1", "write report", "")

	select {
	case <-received:
		t.Fatal("event delivered despite persistence failure")
	case <-time.After(100 * time.Millisecond):
	}
	if store.count() != 0 {
		t.Errorf("store count = %d, want 0", store.count())
	}
}

func TestPublishTaskCreatedDelivers(t *testing.T) {
	b := bus.New()
	store := newMockEventStore()
	a := NewAgentEvents("worker-1", b, store)

	received := make(chan event.TaskCreated, 1)
	a.OnTaskCreated(nil, func(_ context.Context, ev event.TaskCreated) {
		received <- ev
	})

	a.PublishTaskCreated(context.Background(), "t-1", "write report", "quarterly numbers")

	select {
	case ev := <-received:
		if ev.TaskID != "t-1" || ev.Title != "write report" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Source.AgentID != "worker-1" {
			t.Errorf("source agent = %q, want worker-1", ev.Source.AgentID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a TaskCreated delivery")
	}
	if store.count() != 1 {
		t.Errorf("store count = %d, want 1", store.count())
	}
}

func TestFilterShortCircuitsLocally(t *testing.T) {
	b := bus.New()
	a := NewAgentEvents("worker-1", b, newMockEventStore())

	filtered := make(chan event.QuestionRaised, 1)
	unfiltered := make(chan event.QuestionRaised, 1)
	a.OnQuestionRaised(func(ev event.Event) bool {
		q, ok := ev.(event.QuestionRaised)
		return ok && q.RaisedTo == "worker-1"
	}, func(_ context.Context, ev event.QuestionRaised) {
		filtered <- ev
	})
	other := NewAgentEvents("worker-2", b, newMockEventStore())
	other.OnQuestionRaised(nil, func(_ context.Context, ev event.QuestionRaised) {
		unfiltered <- ev
	})

	a.PublishQuestionRaised(context.Background(), "q-1", "deploys", "who owns the pipeline?", "worker-9")

	select {
	case <-unfiltered:
	case <-time.After(2 * time.Second):
		t.Fatal("unfiltered subscriber should receive the event")
	}
	select {
	case <-filtered:
		t.Fatal("filter should have rejected the event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOnNotificationFiltersOtherAgents(t *testing.T) {
	b := bus.New()
	a := NewAgentEvents("worker-1", b, newMockEventStore())

	received := make(chan event.AgentNotification, 2)
	a.OnNotification(func(_ context.Context, ev event.AgentNotification) {
		received <- ev
	})

	inner := event.TaskCreated{Header: event.NewHeader(event.AgentSource("planner")), TaskID: "t-1", Title: "x"}
	b.Publish(context.Background(), event.AgentNotification{
		Header:  event.NewHeader(inner.Source),
		AgentID: "worker-2",
		Wrapped: inner,
	})
	b.Publish(context.Background(), event.AgentNotification{
		Header:  event.NewHeader(inner.Source),
		AgentID: "worker-1",
		Wrapped: inner,
	})

	select {
	case n := <-received:
		if n.AgentID != "worker-1" {
			t.Errorf("notification for %q leaked through", n.AgentID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the worker-1 notification")
	}
	select {
	case n := <-received:
		t.Fatalf("unexpected extra notification for %q", n.AgentID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRecentEventsAndHistory(t *testing.T) {
	ctx := context.Background()
	store := newMockEventStore()
	a := NewAgentEvents("worker-1", bus.New(), store)

	cutoff := time.Now().UTC()

	old := event.TaskCreated{Header: event.NewHeader(event.AgentSource("planner")), TaskID: "t-old"}
	old.Timestamp = cutoff.Add(-time.Hour)
	recent := event.TaskCreated{Header: event.NewHeader(event.AgentSource("planner")), TaskID: "t-new"}
	recent.Timestamp = cutoff.Add(time.Minute)
	otherKind := event.QuestionRaised{Header: event.NewHeader(event.AgentSource("planner")), QuestionID: "q-1"}
	otherKind.Timestamp = cutoff.Add(time.Minute)
	for _, ev := range []event.Event{old, recent, otherKind} {
		if err := store.Append(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	key := event.KeyTaskCreated
	got, err := a.RecentEvents(ctx, cutoff, &key)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].(event.TaskCreated).TaskID != "t-new" {
		t.Errorf("recent events = %+v, want only t-new", got)
	}

	all, err := a.EventHistory(ctx, nil, nil)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("full history = %d events, want 3", len(all))
	}

	since := cutoff
	narrowed, err := a.EventHistory(ctx, &key, &since)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(narrowed) != 1 || narrowed[0].(event.TaskCreated).TaskID != "t-new" {
		t.Errorf("narrowed history = %+v, want only t-new", narrowed)
	}
}

func TestReplayRepublishesWithoutAppending(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	store := newMockEventStore()
	a := NewAgentEvents("worker-1", b, store)

	a.PublishTaskCreated(ctx, "t-1", "one", "")
	a.PublishTaskCreated(ctx, "t-2", "two", "")
	if store.count() != 2 {
		t.Fatalf("store count = %d, want 2", store.count())
	}

	replayed := make(chan event.TaskCreated, 4)
	a.OnTaskCreated(nil, func(_ context.Context, ev event.TaskCreated) {
		replayed <- ev
	})

	key := event.KeyTaskCreated
	n, err := a.Replay(ctx, time.Time{}, &key)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 2 {
		t.Errorf("replayed = %d, want 2", n)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-replayed:
		case <-time.After(2 * time.Second):
			t.Fatal("expected replayed deliveries")
		}
	}
	if store.count() != 2 {
		t.Errorf("store count after replay = %d, want 2 (replay must not re-append)", store.count())
	}
}
