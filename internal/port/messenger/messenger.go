// Package messenger defines the messaging collaborator port: discussion
// threads and messages posted into them.
package messenger

import "context"

// Thread locates a created discussion thread.
type Thread struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// Messenger is the port interface for the chat system.
type Messenger interface {
	// CreateThread opens a thread in the given channel with the listed
	// participants and an initial message.
	CreateThread(ctx context.Context, channel string, participants []string, initial string) (*Thread, error)

	// PostMessage appends a message to an existing thread.
	PostMessage(ctx context.Context, threadID string, content string) error
}
