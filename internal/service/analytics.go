package service

import (
	"context"
	"fmt"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
	"github.com/fortuna/apollo/internal/store/repository"
)

// AnalyticsService serves win probability curves and the model tables
type AnalyticsService struct {
	playRepo  *repository.PlayRepository
	tableRepo *repository.ModelTableRepository
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(db *store.Database) *AnalyticsService {
	return &AnalyticsService{
		playRepo:  repository.NewPlayRepository(db),
		tableRepo: repository.NewModelTableRepository(db),
	}
}

// WinProbability returns the home/away win probability after every play
func (s *AnalyticsService) WinProbability(ctx context.Context, gameID int) ([]WPPoint, error) {
	plays, err := s.playRepo.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching plays: %w", err)
	}
	if len(plays) == 0 {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	return BuildWPSeries(plays), nil
}

// EPTable returns a page of the EP training table
func (s *AnalyticsService) EPTable(ctx context.Context, limit, offset int) ([]pbp.EPRow, error) {
	rows, err := s.tableRepo.ListEP(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching ep table: %w", err)
	}
	return rows, nil
}

// WPTable returns a page of the WP training table
func (s *AnalyticsService) WPTable(ctx context.Context, limit, offset int) ([]pbp.WPRow, error) {
	rows, err := s.tableRepo.ListWP(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching wp table: %w", err)
	}
	return rows, nil
}

// BuildWPSeries projects plays into a win probability curve. Plays whose
// post-play probability is unknown are left out.
func BuildWPSeries(plays []*pbp.Play) []WPPoint {
	series := make([]WPPoint, 0, len(plays))
	for _, p := range plays {
		if !p.HomeWPPost.Valid {
			continue
		}
		away := 1 - p.HomeWPPost.Float64
		if p.AwayWPPost.Valid {
			away = p.AwayWPPost.Float64
		}
		series = append(series, WPPoint{
			PlayID:    p.PlayID,
			Half:      p.Half,
			Posteam:   p.Posteam.String,
			HomeScore: p.HomeTeamScore,
			AwayScore: p.AwayTeamScore,
			HomeWP:    p.HomeWPPost.Float64,
			AwayWP:    away,
			WPA:       p.WPA.Float64,
			Scoring:   p.ScoringPlay == 1,
		})
	}
	return series
}

// WPPoint is one point of a win probability curve
type WPPoint struct {
	PlayID    int     `json:"play_id"`
	Half      int     `json:"half"`
	Posteam   string  `json:"posteam,omitempty"`
	HomeScore int     `json:"home_score"`
	AwayScore int     `json:"away_score"`
	HomeWP    float64 `json:"home_wp"`
	AwayWP    float64 `json:"away_wp"`
	WPA       float64 `json:"wpa"`
	Scoring   bool    `json:"scoring_play"`
}
