package meeting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/socket-link/kore/internal/domain"
)

// Builder assembles a new Meeting. Build validates the required fields and
// produces the aggregate in Scheduled status with fresh ids.
type Builder struct {
	meetingType      Type
	title            string
	scheduledFor     time.Time
	agenda           []AgendaItem
	required         []Participant
	optional         []Participant
	expectedOutcomes []string
	triggeredBy      string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Type sets the meeting type.
func (b *Builder) Type(t Type) *Builder {
	b.meetingType = t
	return b
}

// Title sets the meeting title.
func (b *Builder) Title(title string) *Builder {
	b.title = title
	return b
}

// ScheduledFor sets the scheduled start time.
func (b *Builder) ScheduledFor(t time.Time) *Builder {
	b.scheduledFor = t
	return b
}

// AgendaItem appends an agenda topic; assignedTo may be nil.
func (b *Builder) AgendaItem(topic string, assignedTo *Participant) *Builder {
	b.agenda = append(b.agenda, AgendaItem{Topic: topic, AssignedTo: assignedTo})
	return b
}

// Require appends a required participant.
func (b *Builder) Require(p Participant) *Builder {
	b.required = append(b.required, p)
	return b
}

// Invite appends an optional participant.
func (b *Builder) Invite(p Participant) *Builder {
	b.optional = append(b.optional, p)
	return b
}

// ExpectedOutcome appends an expected-outcome requirement.
func (b *Builder) ExpectedOutcome(desc string) *Builder {
	b.expectedOutcomes = append(b.expectedOutcomes, desc)
	return b
}

// TriggeredBy records the id of the event that caused this meeting.
func (b *Builder) TriggeredBy(eventID string) *Builder {
	b.triggeredBy = eventID
	return b
}

// Build validates the builder and returns the assembled Meeting.
func (b *Builder) Build() (*Meeting, error) {
	if !ValidType(b.meetingType) {
		return nil, fmt.Errorf("meeting type %q: %w", b.meetingType, domain.ErrValidation)
	}
	if b.title == "" {
		return nil, fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	if b.scheduledFor.IsZero() {
		return nil, fmt.Errorf("scheduled_for is required: %w", domain.ErrValidation)
	}
	if len(b.required) == 0 {
		return nil, fmt.Errorf("at least one required participant: %w", domain.ErrValidation)
	}

	agenda := make([]AgendaItem, len(b.agenda))
	for i, item := range b.agenda {
		item.ID = uuid.NewString()
		item.Status = AgendaPending
		agenda[i] = item
	}

	now := time.Now().UTC()
	return &Meeting{
		ID:     uuid.NewString(),
		Type:   b.meetingType,
		Status: StatusScheduled,
		Invitation: Invitation{
			Title:            b.title,
			ScheduledFor:     b.scheduledFor,
			Agenda:           agenda,
			Required:         b.required,
			Optional:         b.optional,
			ExpectedOutcomes: b.expectedOutcomes,
		},
		TriggeredBy: b.triggeredBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
