// Package meeting defines the Meeting aggregate: its status machine, agenda,
// participants, and recorded outcomes.
package meeting

import "time"

// Type identifies the kind of meeting.
type Type string

const (
	TypeStandup        Type = "standup"
	TypeSprintPlanning Type = "sprint_planning"
	TypeCodeReview     Type = "code_review"
	TypeAdHoc          Type = "ad_hoc"
)

// ValidType reports whether t is a known meeting type.
func ValidType(t Type) bool {
	switch t {
	case TypeStandup, TypeSprintPlanning, TypeCodeReview, TypeAdHoc:
		return true
	}
	return false
}

// Status is the lifecycle state of a meeting. Transitions are strictly
// forward: Scheduled may move to Delayed or InProgress; InProgress may move
// to Completed or Canceled. Nothing moves backward or skips a step.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusDelayed    Status = "delayed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// CanTransition reports whether the status machine allows moving to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusDelayed || next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCanceled
	}
	return false
}

// IsTerminal reports whether the meeting is in a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// ParticipantKind discriminates participant references.
type ParticipantKind string

const (
	ParticipantAgent ParticipantKind = "agent"
	ParticipantHuman ParticipantKind = "human"
	ParticipantTeam  ParticipantKind = "team"
)

// Participant references an invited entity. Team references are expanded to
// individual agent ids before notification; a Team is never itself a
// notification target. Humans carry no id.
type Participant struct {
	Kind ParticipantKind `json:"kind"`
	ID   string          `json:"id,omitempty"`
}

// Agent returns a participant reference to a single agent.
func Agent(id string) Participant { return Participant{Kind: ParticipantAgent, ID: id} }

// Human returns a participant reference to the human operator.
func Human() Participant { return Participant{Kind: ParticipantHuman} }

// Team returns a participant reference to a whole team.
func Team(id string) Participant { return Participant{Kind: ParticipantTeam, ID: id} }

// AgendaStatus is the state of a single agenda item.
type AgendaStatus string

const (
	AgendaPending    AgendaStatus = "pending"
	AgendaInProgress AgendaStatus = "in_progress"
	AgendaBlocked    AgendaStatus = "blocked"
	AgendaCompleted  AgendaStatus = "completed"
	AgendaDeferred   AgendaStatus = "deferred"
)

// AgendaItem is one ordered topic within a meeting. Items are mutated by id
// through the store and never reordered.
type AgendaItem struct {
	ID          string       `json:"id"`
	Topic       string       `json:"topic"`
	Status      AgendaStatus `json:"status"`
	Reason      string       `json:"reason,omitempty"` // pending or blocked reason
	AssignedTo  *Participant `json:"assigned_to,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CompletedBy string       `json:"completed_by,omitempty"`
}

// OutcomeKind discriminates recorded meeting outcomes.
type OutcomeKind string

const (
	OutcomeBlockerRaised OutcomeKind = "blocker_raised"
	OutcomeGoalCreated   OutcomeKind = "goal_created"
	OutcomeDecisionMade  OutcomeKind = "decision_made"
	OutcomeActionItem    OutcomeKind = "action_item"
)

// Outcome is an append-only record produced when a meeting completes or is
// canceled. Outcomes are never edited.
type Outcome struct {
	ID          string      `json:"id"`
	Kind        OutcomeKind `json:"kind"`
	Description string      `json:"description"`
	CreatedBy   string      `json:"created_by,omitempty"`
}

// MessagingDetails locates the discussion thread for a meeting. It is set
// exactly once, when the thread is created, and carried forward by copy
// through later statuses.
type MessagingDetails struct {
	ChannelID string `json:"channel_id"`
	ThreadID  string `json:"thread_id"`
}

// Invitation holds the meeting's agenda and invited participants.
type Invitation struct {
	Title            string        `json:"title"`
	ScheduledFor     time.Time     `json:"scheduled_for"`
	Agenda           []AgendaItem  `json:"agenda"`
	Required         []Participant `json:"required"`
	Optional         []Participant `json:"optional,omitempty"`
	ExpectedOutcomes []string      `json:"expected_outcomes,omitempty"`
}

// Meeting is the aggregate root. It is treated as an immutable value: the
// orchestrator produces updated copies rather than mutating in place.
type Meeting struct {
	ID          string            `json:"id"`
	Type        Type              `json:"type"`
	Status      Status            `json:"status"`
	Invitation  Invitation        `json:"invitation"`
	Messaging   *MessagingDetails `json:"messaging,omitempty"`
	ScheduledBy string            `json:"scheduled_by,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	StartedBy   string            `json:"started_by,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CanceledAt  *time.Time        `json:"canceled_at,omitempty"`
	CancelNote  string            `json:"cancel_note,omitempty"`
	Outcomes    []Outcome         `json:"outcomes,omitempty"`
	Attendees   []Participant     `json:"attendees,omitempty"`
	// TriggeredBy is the id of the event that caused this meeting to be
	// created, when there is one.
	TriggeredBy string    `json:"triggered_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Participants returns the union of required and optional participants.
func (m *Meeting) Participants() []Participant {
	out := make([]Participant, 0, len(m.Invitation.Required)+len(m.Invitation.Optional))
	out = append(out, m.Invitation.Required...)
	out = append(out, m.Invitation.Optional...)
	return out
}

// AttendeeList derives the attendee records from required participants:
// agents and humans attend, team references are dropped.
func (m *Meeting) AttendeeList() []Participant {
	var out []Participant
	for _, p := range m.Invitation.Required {
		if p.Kind == ParticipantTeam {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FirstPending returns a copy of the first agenda item still pending, in
// list order, or nil when the agenda is exhausted.
func (m *Meeting) FirstPending() *AgendaItem {
	for i := range m.Invitation.Agenda {
		if m.Invitation.Agenda[i].Status == AgendaPending {
			item := m.Invitation.Agenda[i]
			return &item
		}
	}
	return nil
}

// CurrentItem returns the in-progress agenda item if there is one, falling
// back to the first pending item.
func (m *Meeting) CurrentItem() *AgendaItem {
	for i := range m.Invitation.Agenda {
		if m.Invitation.Agenda[i].Status == AgendaInProgress {
			item := m.Invitation.Agenda[i]
			return &item
		}
	}
	return m.FirstPending()
}

// AgendaItemByID returns a copy of the agenda item with the given id.
func (m *Meeting) AgendaItemByID(id string) *AgendaItem {
	for i := range m.Invitation.Agenda {
		if m.Invitation.Agenda[i].ID == id {
			item := m.Invitation.Agenda[i]
			return &item
		}
	}
	return nil
}
