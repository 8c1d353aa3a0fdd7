package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory implements directory.Directory against the teams tables.
type Directory struct {
	pool *pgxpool.Pool
}

// NewDirectory creates a Directory backed by the given pool.
func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// TeamMembers returns the agent ids belonging to a team, in stable order.
// An unknown team id yields an empty list, not an error.
func (d *Directory) TeamMembers(ctx context.Context, teamID string) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT agent_id FROM team_members WHERE team_id = $1 ORDER BY agent_id ASC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("members of team %s: %w", teamID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
