package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/apollo/internal/store"
)

// PlayerRepository handles roster data access
type PlayerRepository struct {
	db *store.Database
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *store.Database) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// GetByTeam returns a team's roster ordered by jersey number
func (r *PlayerRepository) GetByTeam(ctx context.Context, teamID string) ([]*store.Player, error) {
	query := `
		SELECT player_id, team_id, name, jersey_number, position, club, created_at, updated_at
		FROM players
		WHERE team_id = $1
		ORDER BY NULLIF(regexp_replace(jersey_number, '\D', '', 'g'), '')::INT NULLS LAST, name
	`

	rows, err := r.db.DB().QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("querying roster: %w", err)
	}
	defer rows.Close()

	var players []*store.Player
	for rows.Next() {
		player := &store.Player{}
		err := rows.Scan(
			&player.PlayerID, &player.TeamID, &player.Name, &player.JerseyNumber,
			&player.Position, &player.Club, &player.CreatedAt, &player.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, player)
	}

	return players, rows.Err()
}

// ReplaceRoster stores a team and swaps its player list for the given one
func (r *PlayerRepository) ReplaceRoster(ctx context.Context, roster *store.Roster) error {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTeam(ctx, tx, &roster.Team); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE team_id = $1`, roster.Team.TeamID); err != nil {
		return fmt.Errorf("clearing roster %s: %w", roster.Team.TeamID, err)
	}

	query := `
		INSERT INTO players (player_id, team_id, name, jersey_number, position, club)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (player_id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			name = EXCLUDED.name,
			jersey_number = EXCLUDED.jersey_number,
			position = EXCLUDED.position,
			club = EXCLUDED.club,
			updated_at = NOW()
	`
	for _, p := range roster.Players {
		_, err := tx.ExecContext(ctx, query,
			p.PlayerID, roster.Team.TeamID, p.Name, p.JerseyNumber, p.Position, p.Club,
		)
		if err != nil {
			return fmt.Errorf("inserting player %s: %w", p.PlayerID, err)
		}
	}

	return tx.Commit()
}
