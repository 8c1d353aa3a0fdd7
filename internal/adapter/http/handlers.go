// Package http exposes the meeting lifecycle and event history over a small
// JSON API.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/socket-link/kore/internal/domain/event"
	"github.com/socket-link/kore/internal/domain/meeting"
	"github.com/socket-link/kore/internal/port/eventstore"
	"github.com/socket-link/kore/internal/service"
)

// Handlers bundles the collaborators the API needs.
type Handlers struct {
	orchestrator *service.MeetingOrchestrator
	router       *service.ParticipationRouter
	events       eventstore.Store
}

// NewHandlers creates the API handler set.
func NewHandlers(orch *service.MeetingOrchestrator, router *service.ParticipationRouter, events eventstore.Store) *Handlers {
	return &Handlers{orchestrator: orch, router: router, events: events}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type participantRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

func (p participantRequest) toDomain() (meeting.Participant, bool) {
	switch meeting.ParticipantKind(p.Kind) {
	case meeting.ParticipantAgent:
		return meeting.Agent(p.ID), true
	case meeting.ParticipantHuman:
		return meeting.Human(), true
	case meeting.ParticipantTeam:
		return meeting.Team(p.ID), true
	}
	return meeting.Participant{}, false
}

type agendaItemRequest struct {
	Topic    string              `json:"topic"`
	Assignee *participantRequest `json:"assignee,omitempty"`
}

type scheduleMeetingRequest struct {
	Type             string               `json:"type"`
	Title            string               `json:"title"`
	ScheduledFor     time.Time            `json:"scheduled_for"`
	ScheduledBy      string               `json:"scheduled_by"`
	Agenda           []agendaItemRequest  `json:"agenda,omitempty"`
	Required         []participantRequest `json:"required"`
	Optional         []participantRequest `json:"optional,omitempty"`
	ExpectedOutcomes []string             `json:"expected_outcomes,omitempty"`
	TriggeredBy      string               `json:"triggered_by,omitempty"`
}

// ScheduleMeeting builds a new meeting from the request and runs it through
// the orchestrator.
func (h *Handlers) ScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[scheduleMeetingRequest](w, r)
	if !ok {
		return
	}

	b := meeting.NewBuilder().
		Type(meeting.Type(req.Type)).
		Title(req.Title).
		ScheduledFor(req.ScheduledFor).
		TriggeredBy(req.TriggeredBy)

	for _, item := range req.Agenda {
		var assignee *meeting.Participant
		if item.Assignee != nil {
			p, ok := item.Assignee.toDomain()
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown participant kind "+item.Assignee.Kind)
				return
			}
			assignee = &p
		}
		b.AgendaItem(item.Topic, assignee)
	}
	for _, pr := range req.Required {
		p, ok := pr.toDomain()
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown participant kind "+pr.Kind)
			return
		}
		b.Require(p)
	}
	for _, pr := range req.Optional {
		p, ok := pr.toDomain()
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown participant kind "+pr.Kind)
			return
		}
		b.Invite(p)
	}
	for _, desc := range req.ExpectedOutcomes {
		b.ExpectedOutcome(desc)
	}

	m, err := b.Build()
	if err != nil {
		writeDomainError(w, err, "invalid meeting")
		return
	}

	stored, err := h.orchestrator.ScheduleMeeting(r.Context(), m, req.ScheduledBy)
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// GetMeeting returns a meeting aggregate by id.
func (h *Handlers) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	m, err := h.orchestrator.GetMeeting(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// StartMeeting moves a scheduled meeting into progress.
func (h *Handlers) StartMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := h.orchestrator.StartMeeting(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// AdvanceAgenda starts the next pending agenda item. Responds 204 when the
// agenda is exhausted.
func (h *Handlers) AdvanceAgenda(w http.ResponseWriter, r *http.Request) {
	item, err := h.orchestrator.AdvanceAgenda(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type outcomeRequest struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by,omitempty"`
}

type completeMeetingRequest struct {
	Outcomes []outcomeRequest `json:"outcomes,omitempty"`
}

// CompleteMeeting finishes an in-progress meeting, recording its outcomes.
func (h *Handlers) CompleteMeeting(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[completeMeetingRequest](w, r)
	if !ok {
		return
	}

	outcomes := make([]meeting.Outcome, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		switch meeting.OutcomeKind(o.Kind) {
		case meeting.OutcomeBlockerRaised, meeting.OutcomeGoalCreated, meeting.OutcomeDecisionMade, meeting.OutcomeActionItem:
		default:
			writeError(w, http.StatusBadRequest, "unknown outcome kind "+o.Kind)
			return
		}
		outcomes = append(outcomes, meeting.Outcome{
			Kind:        meeting.OutcomeKind(o.Kind),
			Description: o.Description,
			CreatedBy:   o.CreatedBy,
		})
	}

	m, err := h.orchestrator.CompleteMeeting(r.Context(), urlParam(r, "id"), outcomes)
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type cancelMeetingRequest struct {
	Reason string `json:"reason"`
}

// CancelMeeting aborts an in-progress meeting.
func (h *Handlers) CancelMeeting(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[cancelMeetingRequest](w, r)
	if !ok {
		return
	}
	m, err := h.orchestrator.CancelMeeting(r.Context(), urlParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMeeting removes a meeting and everything attached to it.
func (h *Handlers) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.DeleteMeeting(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAgenda returns a meeting's agenda items in order.
func (h *Handlers) GetAgenda(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	m, err := h.orchestrator.GetMeeting(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, m.Invitation.Agenda)
}

type participationResponse struct {
	MeetingID   string `json:"meeting_id"`
	AgentID     string `json:"agent_id"`
	Participant bool   `json:"participant"`
}

// GetParticipation reports whether an agent is a participant of a meeting,
// with team invitations expanded.
func (h *Handlers) GetParticipation(w http.ResponseWriter, r *http.Request) {
	meetingID := urlParam(r, "id")
	agentID := urlParam(r, "agentID")

	ok, err := h.router.IsAgentParticipant(r.Context(), meetingID, agentID)
	if err != nil {
		writeDomainError(w, err, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, participationResponse{MeetingID: meetingID, AgentID: agentID, Participant: ok})
}

type eventResponse struct {
	Class string          `json:"class"`
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

// ListEvents returns stored events, filtered by ?class=&type= or ?since=
// (RFC 3339). Key-filtered results come newest first; the rest ascending.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		evs []event.Event
		err error
	)
	switch {
	case q.Get("class") != "" && q.Get("type") != "":
		key := event.Key{Class: event.Class(q.Get("class")), Type: q.Get("type")}
		evs, err = h.events.ByKey(r.Context(), key)
	case q.Get("since") != "":
		var since time.Time
		since, err = time.Parse(time.RFC3339, q.Get("since"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		evs, err = h.events.Since(r.Context(), since)
	default:
		evs, err = h.events.All(r.Context())
	}
	if err != nil {
		writeDomainError(w, err, "events not found")
		return
	}

	out := make([]eventResponse, 0, len(evs))
	for _, ev := range evs {
		raw, err := json.Marshal(ev)
		if err != nil {
			writeDomainError(w, err, "events not found")
			return
		}
		key := ev.Key()
		out = append(out, eventResponse{Class: string(key.Class), Type: key.Type, Event: raw})
	}
	writeJSON(w, http.StatusOK, out)
}
