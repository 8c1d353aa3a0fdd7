// Package directory defines the port for resolving team membership.
package directory

import "context"

// Directory resolves team references to concrete agent ids.
type Directory interface {
	// TeamMembers returns the agent ids belonging to the given team. An
	// unknown or empty team yields an empty list, not an error.
	TeamMembers(ctx context.Context, teamID string) ([]string, error)
}
