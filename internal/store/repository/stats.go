package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/apollo/internal/store"
)

// StatsRepository aggregates play metrics per team
type StatsRepository struct {
	db *store.Database
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *store.Database) *StatsRepository {
	return &StatsRepository{db: db}
}

// TeamSummaries returns each offense's EPA and WPA totals for a game,
// split by pass and run. Plays without a possessing team are left out.
func (r *StatsRepository) TeamSummaries(ctx context.Context, gameID int) ([]*store.TeamSummary, error) {
	query := `
		SELECT posteam,
			COUNT(*) FILTER (WHERE epa IS NOT NULL),
			COALESCE(SUM(epa), 0),
			COUNT(*) FILTER (WHERE play_type = 'pass' AND epa IS NOT NULL),
			COALESCE(SUM(epa) FILTER (WHERE play_type = 'pass'), 0),
			COUNT(*) FILTER (WHERE play_type = 'run' AND epa IS NOT NULL),
			COALESCE(SUM(epa) FILTER (WHERE play_type = 'run'), 0),
			COALESCE(SUM(wpa), 0),
			COALESCE(AVG(CASE WHEN epa > 0 THEN 1.0 ELSE 0.0 END) FILTER (WHERE epa IS NOT NULL), 0)
		FROM plays
		WHERE game_id = $1 AND posteam IS NOT NULL
		GROUP BY posteam
		ORDER BY posteam
	`

	rows, err := r.db.DB().QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying team summaries: %w", err)
	}
	defer rows.Close()

	var out []*store.TeamSummary
	for rows.Next() {
		s := &store.TeamSummary{}
		err := rows.Scan(
			&s.TeamID, &s.Plays, &s.TotalEPA, &s.PassPlays, &s.PassEPA,
			&s.RunPlays, &s.RunEPA, &s.TotalWPA, &s.Success,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning team summary: %w", err)
		}
		if s.Plays > 0 {
			s.EPAPerPlay = s.TotalEPA / float64(s.Plays)
		}
		out = append(out, s)
	}

	return out, rows.Err()
}
