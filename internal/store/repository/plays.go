package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
)

// PlayRepository stores the canonical play table. Each play is kept whole
// as a JSONB record next to the columns used for filtering.
type PlayRepository struct {
	db *store.Database
}

// NewPlayRepository creates a new play repository
func NewPlayRepository(db *store.Database) *PlayRepository {
	return &PlayRepository{db: db}
}

// ReplaceGame writes one game's plays and metadata in a single
// transaction, replacing whatever was stored for it before.
func (r *PlayRepository) ReplaceGame(ctx context.Context, game []*pbp.Play, status string) error {
	if len(game) == 0 {
		return nil
	}
	first := game[0]

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertGame(ctx, tx, first.Source, first.Match, len(game), status); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM plays WHERE game_id = $1`, first.GameID); err != nil {
		return fmt.Errorf("clearing plays for game %d: %w", first.GameID, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("plays",
		"game_id", "play_id", "half", "drive_id", "posteam", "defteam", "play_type",
		"scoring_play", "home_team_score", "away_team_score", "ep", "epa", "wp", "wpa", "record",
	))
	if err != nil {
		return fmt.Errorf("preparing copy: %w", err)
	}

	for _, p := range game {
		record, err := json.Marshal(p)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("encoding play %d/%d: %w", p.GameID, p.PlayID, err)
		}
		_, err = stmt.ExecContext(ctx,
			p.GameID, p.PlayID, p.Half, p.DriveID, p.Posteam, p.Defteam, p.PlayType,
			p.ScoringPlay, p.HomeTeamScore, p.AwayTeamScore, p.EP, p.EPA, p.WP, p.WPA, string(record),
		)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("copying play %d/%d: %w", p.GameID, p.PlayID, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("closing copy: %w", err)
	}

	return tx.Commit()
}

// GetByGame returns one game's plays in play order
func (r *PlayRepository) GetByGame(ctx context.Context, gameID int) ([]*pbp.Play, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT record FROM plays WHERE game_id = $1 ORDER BY play_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying plays: %w", err)
	}
	defer rows.Close()

	return scanPlays(rows)
}

// ListAll returns every stored play ordered by game and play
func (r *PlayRepository) ListAll(ctx context.Context) ([]*pbp.Play, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT record FROM plays ORDER BY game_id, play_id`)
	if err != nil {
		return nil, fmt.Errorf("querying plays: %w", err)
	}
	defer rows.Close()

	return scanPlays(rows)
}

func scanPlays(rows *sql.Rows) ([]*pbp.Play, error) {
	var plays []*pbp.Play
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning play: %w", err)
		}
		p := &pbp.Play{}
		if err := json.Unmarshal(record, p); err != nil {
			return nil, fmt.Errorf("decoding play: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}
