package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
)

const gameColumns = `
	game_id, source, season, competition_id, competition_name, competition_league,
	gender, game_type, game_group_id, game_group, stream_url,
	home_team_id, away_team_id, home_score, away_score, play_count, status,
	created_at, updated_at`

// GameRepository handles game data access
type GameRepository struct {
	db *store.Database
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{db: db}
}

// GetByID finds a game by its SportApp id
func (r *GameRepository) GetByID(ctx context.Context, gameID int) (*store.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`

	game, err := scanGame(r.db.DB().QueryRowContext(ctx, query, gameID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}

	return game, nil
}

// List returns processed games, newest first
func (r *GameRepository) List(ctx context.Context, limit, offset int) ([]*store.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		ORDER BY updated_at DESC, game_id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.DB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GetByTeam returns games a team played in
func (r *GameRepository) GetByTeam(ctx context.Context, teamID string, limit int) ([]*store.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE home_team_id = $1 OR away_team_id = $1
		ORDER BY game_id DESC
		LIMIT $2`

	rows, err := r.db.DB().QueryContext(ctx, query, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying team games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// IDs returns every stored game id in ascending order
func (r *GameRepository) IDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.DB().QueryContext(ctx, `SELECT game_id FROM games ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("querying game ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertGame(ctx context.Context, db execer, source pbp.Source, m pbp.Match, playCount int, status string) error {
	query := `
		INSERT INTO games (game_id, source, season, competition_id, competition_name,
			competition_league, gender, game_type, game_group_id, game_group, stream_url,
			home_team_id, away_team_id, home_score, away_score, play_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (game_id) DO UPDATE SET
			source = EXCLUDED.source,
			season = EXCLUDED.season,
			competition_id = EXCLUDED.competition_id,
			competition_name = EXCLUDED.competition_name,
			competition_league = EXCLUDED.competition_league,
			gender = EXCLUDED.gender,
			game_type = EXCLUDED.game_type,
			game_group_id = EXCLUDED.game_group_id,
			game_group = EXCLUDED.game_group,
			stream_url = EXCLUDED.stream_url,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			play_count = EXCLUDED.play_count,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := db.ExecContext(ctx, query,
		m.GameID, string(source), m.Season, m.CompetitionID, m.CompetitionName,
		m.CompetitionLeague, m.Gender, m.GameType, m.GameGroupID, m.GameGroup, m.StreamURL,
		m.HomeTeam, m.AwayTeam, m.HomeScore, m.AwayScore, playCount, status,
	)
	if err != nil {
		return fmt.Errorf("upserting game %d: %w", m.GameID, err)
	}
	return nil
}

func scanGame(scanner interface {
	Scan(dest ...interface{}) error
}) (*store.Game, error) {
	game := &store.Game{}
	err := scanner.Scan(
		&game.GameID, &game.Source, &game.Season, &game.CompetitionID, &game.CompetitionName,
		&game.CompetitionLeague, &game.Gender, &game.GameType, &game.GameGroupID, &game.GameGroup,
		&game.StreamURL, &game.HomeTeamID, &game.AwayTeamID, &game.HomeScore, &game.AwayScore,
		&game.PlayCount, &game.Status, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return game, nil
}

func scanGames(rows *sql.Rows) ([]*store.Game, error) {
	var games []*store.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}
