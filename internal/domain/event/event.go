// Package event defines the immutable typed events exchanged between agents
// and the discriminator keys used for subscription matching.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Class groups event variants into families. Subscription matching uses the
// full Key (class plus subtype), so one family can expose several
// independently subscribable kinds.
type Class string

const (
	ClassTask         Class = "task"
	ClassQuestion     Class = "question"
	ClassCode         Class = "code"
	ClassConversation Class = "conversation"
	ClassMeeting      Class = "meeting"
	ClassTicket       Class = "ticket"
	ClassNotification Class = "notification"
)

// Key is the discriminator matching publishers to subscribers.
type Key struct {
	Class Class  `json:"class"`
	Type  string `json:"type"`
}

func (k Key) String() string { return string(k.Class) + "." + k.Type }

// Well-known discriminators.
var (
	KeyTaskCreated         = Key{ClassTask, "created"}
	KeyQuestionRaised      = Key{ClassQuestion, "raised"}
	KeyCodeSubmitted       = Key{ClassCode, "submitted"}
	KeyThreadCreated       = Key{ClassConversation, "thread_created"}
	KeyMessagePosted       = Key{ClassConversation, "message_posted"}
	KeyThreadStatusChanged = Key{ClassConversation, "thread_status_changed"}
	KeyMeetingScheduled    = Key{ClassMeeting, "scheduled"}
	KeyMeetingStarted      = Key{ClassMeeting, "started"}
	KeyAgendaItemStarted   = Key{ClassMeeting, "agenda_item_started"}
	KeyAgendaItemCompleted = Key{ClassMeeting, "agenda_item_completed"}
	KeyMeetingCompleted    = Key{ClassMeeting, "completed"}
	KeyMeetingCanceled     = Key{ClassMeeting, "canceled"}
	KeyTicketCreated       = Key{ClassTicket, "created"}
	KeyTicketStatusChanged = Key{ClassTicket, "status_changed"}
	KeyTicketAssigned      = Key{ClassTicket, "assigned"}
	KeyTicketBlocked       = Key{ClassTicket, "blocked"}
	KeyTicketCompleted     = Key{ClassTicket, "completed"}
	KeyAgentNotification   = Key{ClassNotification, "agent"}
	KeyHumanNotification   = Key{ClassNotification, "human"}
)

// Urgency indicates how quickly subscribers should react to an event.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Source identifies the origin of an event: a specific agent, or a human
// when AgentID is empty.
type Source struct {
	AgentID string `json:"agent_id,omitempty"`
}

// AgentSource returns a Source attributing an event to the given agent.
func AgentSource(agentID string) Source { return Source{AgentID: agentID} }

// HumanSource returns a Source attributing an event to a human operator.
func HumanSource() Source { return Source{} }

// IsHuman reports whether the event originated from a human.
func (s Source) IsHuman() bool { return s.AgentID == "" }

// Header carries the identity fields common to every event variant.
// Events are immutable once constructed; they are only ever wrapped
// (see AgentNotification) or superseded by new events.
type Header struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
	Urgency   Urgency   `json:"urgency"`
}

// NewHeader builds a Header with a fresh id, the current UTC time, and
// medium urgency.
func NewHeader(src Source) Header {
	return Header{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    src,
		Urgency:   UrgencyMedium,
	}
}

// Head returns the common header fields.
func (h Header) Head() Header { return h }

func (Header) sealed() {}

// Event is the sealed interface implemented by every variant in this package.
type Event interface {
	Head() Header
	Key() Key
	sealed()
}

// --- Task / question / code ---

// TaskCreated announces a new unit of work.
type TaskCreated struct {
	Header
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (TaskCreated) Key() Key { return KeyTaskCreated }

// QuestionRaised asks another participant for input.
type QuestionRaised struct {
	Header
	QuestionID string `json:"question_id"`
	Topic      string `json:"topic"`
	Question   string `json:"question"`
	RaisedTo   string `json:"raised_to,omitempty"`
}

func (QuestionRaised) Key() Key { return KeyQuestionRaised }

// CodeSubmitted announces code ready for review.
type CodeSubmitted struct {
	Header
	SubmissionID string `json:"submission_id"`
	Repository   string `json:"repository"`
	Branch       string `json:"branch"`
	Summary      string `json:"summary,omitempty"`
}

func (CodeSubmitted) Key() Key { return KeyCodeSubmitted }

// --- Conversation ---

// ThreadCreated announces a new discussion thread.
type ThreadCreated struct {
	Header
	ThreadID  string `json:"thread_id"`
	ChannelID string `json:"channel_id"`
	Topic     string `json:"topic,omitempty"`
}

func (ThreadCreated) Key() Key { return KeyThreadCreated }

// MessagePosted announces a message added to a thread.
type MessagePosted struct {
	Header
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
}

func (MessagePosted) Key() Key { return KeyMessagePosted }

// ThreadStatusChanged announces a thread moving between states.
type ThreadStatusChanged struct {
	Header
	ThreadID  string `json:"thread_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

func (ThreadStatusChanged) Key() Key { return KeyThreadStatusChanged }

// --- Meeting lifecycle ---

// MeetingScheduled announces a meeting placed on the calendar.
type MeetingScheduled struct {
	Header
	MeetingID    string    `json:"meeting_id"`
	Title        string    `json:"title"`
	ScheduledFor time.Time `json:"scheduled_for"`
	ScheduledBy  string    `json:"scheduled_by"`
}

func (MeetingScheduled) Key() Key { return KeyMeetingScheduled }

// MeetingStarted announces a meeting entering progress.
type MeetingStarted struct {
	Header
	MeetingID string    `json:"meeting_id"`
	ThreadID  string    `json:"thread_id"`
	StartedAt time.Time `json:"started_at"`
	StartedBy string    `json:"started_by"`
}

func (MeetingStarted) Key() Key { return KeyMeetingStarted }

// AgendaItemStarted announces the next agenda item being taken up.
type AgendaItemStarted struct {
	Header
	MeetingID    string `json:"meeting_id"`
	AgendaItemID string `json:"agenda_item_id"`
	Topic        string `json:"topic"`
	AssignedTo   string `json:"assigned_to,omitempty"`
}

func (AgendaItemStarted) Key() Key { return KeyAgendaItemStarted }

// AgendaItemCompleted announces an agenda item finished.
type AgendaItemCompleted struct {
	Header
	MeetingID    string `json:"meeting_id"`
	AgendaItemID string `json:"agenda_item_id"`
	CompletedBy  string `json:"completed_by,omitempty"`
}

func (AgendaItemCompleted) Key() Key { return KeyAgendaItemCompleted }

// MeetingCompleted announces a meeting finished with recorded outcomes.
type MeetingCompleted struct {
	Header
	MeetingID    string    `json:"meeting_id"`
	CompletedAt  time.Time `json:"completed_at"`
	OutcomeCount int       `json:"outcome_count"`
}

func (MeetingCompleted) Key() Key { return KeyMeetingCompleted }

// MeetingCanceled announces a meeting canceled before completion.
type MeetingCanceled struct {
	Header
	MeetingID string `json:"meeting_id"`
	Reason    string `json:"reason,omitempty"`
}

func (MeetingCanceled) Key() Key { return KeyMeetingCanceled }

// --- Tickets ---

// TicketCreated announces a new tracked ticket.
type TicketCreated struct {
	Header
	TicketID string `json:"ticket_id"`
	Title    string `json:"title"`
}

func (TicketCreated) Key() Key { return KeyTicketCreated }

// TicketStatusChanged announces a ticket moving between states.
type TicketStatusChanged struct {
	Header
	TicketID  string `json:"ticket_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

func (TicketStatusChanged) Key() Key { return KeyTicketStatusChanged }

// TicketAssigned announces a ticket handed to an agent.
type TicketAssigned struct {
	Header
	TicketID   string `json:"ticket_id"`
	AssigneeID string `json:"assignee_id"`
}

func (TicketAssigned) Key() Key { return KeyTicketAssigned }

// TicketBlocked announces a ticket waiting on something external.
type TicketBlocked struct {
	Header
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason,omitempty"`
}

func (TicketBlocked) Key() Key { return KeyTicketBlocked }

// TicketCompleted announces a ticket done.
type TicketCompleted struct {
	Header
	TicketID string `json:"ticket_id"`
}

func (TicketCompleted) Key() Key { return KeyTicketCompleted }

// --- Notifications ---

// AgentNotification wraps another event for delivery to one specific agent.
// The inner event is carried unchanged.
type AgentNotification struct {
	Header
	AgentID string `json:"agent_id"`
	Wrapped Event  `json:"wrapped"`
}

func (AgentNotification) Key() Key { return KeyAgentNotification }

// HumanNotification wraps another event for surfacing to a human operator.
type HumanNotification struct {
	Header
	Wrapped Event `json:"wrapped"`
}

func (HumanNotification) Key() Key { return KeyHumanNotification }
