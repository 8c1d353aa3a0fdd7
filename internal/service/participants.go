package service

import (
	"context"
	"fmt"

	"github.com/socket-link/kore/internal/domain/meeting"
	"github.com/socket-link/kore/internal/port/directory"
)

// resolveParticipantAgents flattens participant references into a unique,
// order-preserving list of agent ids. Team references are expanded through
// the directory and humans are dropped, since only agents are direct
// notification targets. This is the single participant computation shared by
// the orchestrator and the participation router.
func resolveParticipantAgents(ctx context.Context, dir directory.Directory, participants []meeting.Participant) ([]string, error) {
	seen := make(map[string]bool, len(participants))
	var agents []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			agents = append(agents, id)
		}
	}

	for _, p := range participants {
		switch p.Kind {
		case meeting.ParticipantAgent:
			add(p.ID)
		case meeting.ParticipantTeam:
			members, err := dir.TeamMembers(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("expand team %s: %w", p.ID, err)
			}
			for _, id := range members {
				add(id)
			}
		case meeting.ParticipantHuman:
			// Humans are notified through their own surface, never here.
		}
	}
	return agents, nil
}

// participantAgentID returns the agent id of a direct agent participant, or
// "" when p is nil or not an agent.
func participantAgentID(p *meeting.Participant) string {
	if p == nil || p.Kind != meeting.ParticipantAgent {
		return ""
	}
	return p.ID
}
