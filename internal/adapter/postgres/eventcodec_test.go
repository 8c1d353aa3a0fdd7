package postgres

import (
	"testing"
	"time"

	"github.com/socket-link/kore/internal/domain/event"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ev := event.MeetingStarted{
		Header:    event.NewHeader(event.AgentSource("scrum-bot")),
		MeetingID: "m-1",
		ThreadID:  "thr-1",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		StartedBy: "scrum-bot",
	}

	payload, err := encodePayload(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := decodeEvent(ev.Key(), payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, ok := decoded.(event.MeetingStarted)
	if !ok {
		t.Fatalf("decoded type = %T, want MeetingStarted", decoded)
	}
	if got.MeetingID != ev.MeetingID || got.ThreadID != ev.ThreadID || got.StartedBy != ev.StartedBy {
		t.Errorf("decoded = %+v, want %+v", got, ev)
	}
	if got.Head().ID != ev.Head().ID {
		t.Errorf("header id = %s, want %s", got.Head().ID, ev.Head().ID)
	}
}

func TestEncodeDecodeWrappedNotification(t *testing.T) {
	inner := event.TaskCreated{
		Header: event.NewHeader(event.AgentSource("planner")),
		TaskID: "t-1",
		Title:  "write the report",
	}
	ev := event.AgentNotification{
		Header:  event.NewHeader(inner.Source),
		AgentID: "worker-1",
		Wrapped: inner,
	}

	payload, err := encodePayload(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := decodeEvent(event.KeyAgentNotification, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	note, ok := decoded.(event.AgentNotification)
	if !ok {
		t.Fatalf("decoded type = %T, want AgentNotification", decoded)
	}
	if note.AgentID != "worker-1" {
		t.Errorf("agent id = %s, want worker-1", note.AgentID)
	}

	wrapped, ok := note.Wrapped.(event.TaskCreated)
	if !ok {
		t.Fatalf("wrapped type = %T, want TaskCreated", note.Wrapped)
	}
	if wrapped.TaskID != "t-1" || wrapped.Title != "write the report" {
		t.Errorf("wrapped = %+v", wrapped)
	}
}

func TestDecodeUnknownKey(t *testing.T) {
	_, err := decodeEvent(event.Key{Class: "bogus", Type: "nope"}, []byte(`{}`))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}
