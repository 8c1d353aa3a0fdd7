package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/socket-link/kore/internal/domain/event"
)

// envelope is the nested JSON shape used for wrapped events, carrying the
// discriminator needed to decode the payload back to its concrete variant.
type envelope struct {
	Class   event.Class     `json:"class"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Notification variants carry an Event interface value, which cannot
// round-trip through plain encoding/json. These DTOs replace the interface
// field with a nested envelope.
type agentNotificationRecord struct {
	event.Header
	AgentID string          `json:"agent_id"`
	Wrapped json.RawMessage `json:"wrapped"`
}

type humanNotificationRecord struct {
	event.Header
	Wrapped json.RawMessage `json:"wrapped"`
}

// encodePayload renders the JSON payload stored for ev.
func encodePayload(ev event.Event) ([]byte, error) {
	switch e := ev.(type) {
	case event.AgentNotification:
		wrapped, err := encodeEnvelope(e.Wrapped)
		if err != nil {
			return nil, err
		}
		return json.Marshal(agentNotificationRecord{Header: e.Header, AgentID: e.AgentID, Wrapped: wrapped})
	case event.HumanNotification:
		wrapped, err := encodeEnvelope(e.Wrapped)
		if err != nil {
			return nil, err
		}
		return json.Marshal(humanNotificationRecord{Header: e.Header, Wrapped: wrapped})
	default:
		return json.Marshal(ev)
	}
}

func encodeEnvelope(ev event.Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("nil wrapped event")
	}
	payload, err := encodePayload(ev)
	if err != nil {
		return nil, err
	}
	key := ev.Key()
	return json.Marshal(envelope{Class: key.Class, Type: key.Type, Payload: payload})
}

// decodeEvent rebuilds the concrete variant for the given discriminator.
func decodeEvent(key event.Key, payload []byte) (event.Event, error) {
	switch key {
	case event.KeyTaskCreated:
		return decodeAs[event.TaskCreated](payload)
	case event.KeyQuestionRaised:
		return decodeAs[event.QuestionRaised](payload)
	case event.KeyCodeSubmitted:
		return decodeAs[event.CodeSubmitted](payload)
	case event.KeyThreadCreated:
		return decodeAs[event.ThreadCreated](payload)
	case event.KeyMessagePosted:
		return decodeAs[event.MessagePosted](payload)
	case event.KeyThreadStatusChanged:
		return decodeAs[event.ThreadStatusChanged](payload)
	case event.KeyMeetingScheduled:
		return decodeAs[event.MeetingScheduled](payload)
	case event.KeyMeetingStarted:
		return decodeAs[event.MeetingStarted](payload)
	case event.KeyAgendaItemStarted:
		return decodeAs[event.AgendaItemStarted](payload)
	case event.KeyAgendaItemCompleted:
		return decodeAs[event.AgendaItemCompleted](payload)
	case event.KeyMeetingCompleted:
		return decodeAs[event.MeetingCompleted](payload)
	case event.KeyMeetingCanceled:
		return decodeAs[event.MeetingCanceled](payload)
	case event.KeyTicketCreated:
		return decodeAs[event.TicketCreated](payload)
	case event.KeyTicketStatusChanged:
		return decodeAs[event.TicketStatusChanged](payload)
	case event.KeyTicketAssigned:
		return decodeAs[event.TicketAssigned](payload)
	case event.KeyTicketBlocked:
		return decodeAs[event.TicketBlocked](payload)
	case event.KeyTicketCompleted:
		return decodeAs[event.TicketCompleted](payload)
	case event.KeyAgentNotification:
		var rec agentNotificationRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode agent notification: %w", err)
		}
		wrapped, err := decodeEnvelope(rec.Wrapped)
		if err != nil {
			return nil, err
		}
		return event.AgentNotification{Header: rec.Header, AgentID: rec.AgentID, Wrapped: wrapped}, nil
	case event.KeyHumanNotification:
		var rec humanNotificationRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode human notification: %w", err)
		}
		wrapped, err := decodeEnvelope(rec.Wrapped)
		if err != nil {
			return nil, err
		}
		return event.HumanNotification{Header: rec.Header, Wrapped: wrapped}, nil
	default:
		return nil, fmt.Errorf("unknown event key %s", key)
	}
}

func decodeEnvelope(data []byte) (event.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return decodeEvent(event.Key{Class: env.Class, Type: env.Type}, env.Payload)
}

func decodeAs[T event.Event](payload []byte) (event.Event, error) {
	var e T
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Key(), err)
	}
	return e, nil
}
