package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/apollo/internal/store"
)

// TeamRepository handles team data access
type TeamRepository struct {
	db *store.Database
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{db: db}
}

// GetAll returns every known team
func (r *TeamRepository) GetAll(ctx context.Context) ([]*store.Team, error) {
	query := `
		SELECT team_id, name, abbreviation, created_at, updated_at
		FROM teams
		ORDER BY name
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var teams []*store.Team
	for rows.Next() {
		team := &store.Team{}
		err := rows.Scan(&team.TeamID, &team.Name, &team.Abbreviation, &team.CreatedAt, &team.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// GetByID finds a team by its SportApp id
func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (*store.Team, error) {
	query := `
		SELECT team_id, name, abbreviation, created_at, updated_at
		FROM teams
		WHERE team_id = $1
	`

	team := &store.Team{}
	err := r.db.DB().QueryRowContext(ctx, query, teamID).Scan(
		&team.TeamID, &team.Name, &team.Abbreviation, &team.CreatedAt, &team.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("team %s: %w", teamID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}

// Upsert inserts or updates a team. An empty abbreviation keeps the stored one.
func (r *TeamRepository) Upsert(ctx context.Context, team *store.Team) error {
	return upsertTeam(ctx, r.db.DB(), team)
}

func upsertTeam(ctx context.Context, db execer, team *store.Team) error {
	query := `
		INSERT INTO teams (team_id, name, abbreviation)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id) DO UPDATE SET
			name = EXCLUDED.name,
			abbreviation = COALESCE(EXCLUDED.abbreviation, teams.abbreviation),
			updated_at = NOW()
	`

	if _, err := db.ExecContext(ctx, query, team.TeamID, team.Name, team.Abbreviation); err != nil {
		return fmt.Errorf("upserting team %s: %w", team.TeamID, err)
	}
	return nil
}
