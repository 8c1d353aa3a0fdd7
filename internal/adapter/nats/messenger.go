// Package nats implements the messenger port on NATS JetStream. Threads are
// logical: a thread is a subject under the chat stream, and thread creation
// publishes an opening message carrying the participant list.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/socket-link/kore/internal/port/messenger"
)

const streamName = "KORE_CHAT"

// Messenger implements messenger.Messenger using NATS JetStream.
type Messenger struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// threadOpened is the payload of the first message on a new thread subject.
type threadOpened struct {
	ThreadID     string    `json:"thread_id"`
	ChannelID    string    `json:"channel_id"`
	Participants []string  `json:"participants"`
	Initial      string    `json:"initial"`
	OpenedAt     time.Time `json:"opened_at"`
}

// threadMessage is the payload of a follow-up message on a thread.
type threadMessage struct {
	ThreadID string    `json:"thread_id"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at"`
}

// Connect establishes a connection to NATS and ensures the chat stream exists.
func Connect(ctx context.Context, url string) (*Messenger, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"chat.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Messenger{nc: nc, js: js}, nil
}

// CreateThread opens a new thread in the given channel and posts the initial
// message to it.
func (m *Messenger) CreateThread(ctx context.Context, channel string, participants []string, initial string) (*messenger.Thread, error) {
	threadID := uuid.NewString()
	payload, err := json.Marshal(threadOpened{
		ThreadID:     threadID,
		ChannelID:    channel,
		Participants: participants,
		Initial:      initial,
		OpenedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal thread open: %w", err)
	}

	subject := fmt.Sprintf("chat.%s.%s.open", channel, threadID)
	if _, err := m.js.Publish(ctx, subject, payload); err != nil {
		return nil, fmt.Errorf("open thread in %s: %w", channel, err)
	}

	slog.Info("thread created", "channel", channel, "thread_id", threadID, "participants", len(participants))
	return &messenger.Thread{ID: threadID, ChannelID: channel}, nil
}

// PostMessage appends a message to an existing thread.
func (m *Messenger) PostMessage(ctx context.Context, threadID string, content string) error {
	payload, err := json.Marshal(threadMessage{
		ThreadID: threadID,
		Content:  content,
		PostedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal thread message: %w", err)
	}

	subject := fmt.Sprintf("chat.threads.%s.messages", threadID)
	if _, err := m.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("post to thread %s: %w", threadID, err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (m *Messenger) Close() error {
	m.nc.Close()
	return nil
}
