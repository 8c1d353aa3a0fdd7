package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/socket-link/kore/internal/domain/meeting"
)

// renderScheduleAnnouncement is the opening message of a meeting thread:
// title, type, schedule time, and the agenda with assignees.
func renderScheduleAnnouncement(m *meeting.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting scheduled: %s (%s) at %s.",
		m.Invitation.Title, m.Type, m.Invitation.ScheduledFor.Format(time.RFC3339))
	writeAgenda(&b, m)
	return b.String()
}

// renderStartAnnouncement opens the thread for a meeting that starts without
// one, e.g. when the scheduler fires before any announcement was posted.
func renderStartAnnouncement(m *meeting.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting starting: %s.", m.Invitation.Title)
	writeAgenda(&b, m)
	return b.String()
}

func writeAgenda(b *strings.Builder, m *meeting.Meeting) {
	if len(m.Invitation.Agenda) == 0 {
		return
	}
	b.WriteString("\nAgenda:")
	for i, item := range m.Invitation.Agenda {
		fmt.Fprintf(b, "\n%d. %s", i+1, item.Topic)
		if id := participantAgentID(item.AssignedTo); id != "" {
			fmt.Fprintf(b, " (%s)", id)
		}
	}
}

// renderAgendaAnnouncement names the started topic and its assignee.
func renderAgendaAnnouncement(item *meeting.AgendaItem) string {
	if id := participantAgentID(item.AssignedTo); id != "" {
		return fmt.Sprintf("Now discussing %q, led by %s.", item.Topic, id)
	}
	return fmt.Sprintf("Now discussing %q.", item.Topic)
}

// outcomeSections fixes the rendering order of outcome kinds in the
// completion summary.
var outcomeSections = []struct {
	kind    meeting.OutcomeKind
	heading string
}{
	{meeting.OutcomeBlockerRaised, "Blockers raised"},
	{meeting.OutcomeDecisionMade, "Decisions made"},
	{meeting.OutcomeGoalCreated, "Goals created"},
	{meeting.OutcomeActionItem, "Action items"},
}

// renderOutcomeSummary is the completion message posted to the thread:
// recorded outcomes grouped by kind, in a fixed section order.
func renderOutcomeSummary(m *meeting.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting completed: %s.", m.Invitation.Title)
	if len(m.Outcomes) == 0 {
		b.WriteString(" No outcomes recorded.")
		return b.String()
	}

	for _, sec := range outcomeSections {
		var lines []string
		for _, oc := range m.Outcomes {
			if oc.Kind != sec.kind {
				continue
			}
			line := "- " + oc.Description
			if oc.CreatedBy != "" {
				line += " (" + oc.CreatedBy + ")"
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n" + sec.heading + ":")
		for _, line := range lines {
			b.WriteString("\n" + line)
		}
	}
	return b.String()
}
