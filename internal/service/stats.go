package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
	"github.com/fortuna/apollo/internal/store/repository"
)

// StatsService handles per-game team and player statistics
type StatsService struct {
	statsRepo  *repository.StatsRepository
	gameRepo   *repository.GameRepository
	playRepo   *repository.PlayRepository
	playerRepo *repository.PlayerRepository
}

// NewStatsService creates a new stats service
func NewStatsService(db *store.Database) *StatsService {
	return &StatsService{
		statsRepo:  repository.NewStatsRepository(db),
		gameRepo:   repository.NewGameRepository(db),
		playRepo:   repository.NewPlayRepository(db),
		playerRepo: repository.NewPlayerRepository(db),
	}
}

// GetGameSummary returns each side's EPA and WPA totals for a game
func (s *StatsService) GetGameSummary(ctx context.Context, gameID int) (*GameStats, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	teams, err := s.statsRepo.TeamSummaries(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching team summaries: %w", err)
	}

	return &GameStats{Game: game, Teams: teams}, nil
}

// GetGameBoxScore credits every play's involved jerseys and resolves them
// against the stored rosters
func (s *StatsService) GetGameBoxScore(ctx context.Context, gameID int) (*BoxScore, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	plays, err := s.playRepo.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching plays: %w", err)
	}

	var rosters []*store.Roster
	for _, teamID := range []string{game.HomeTeamID, game.AwayTeamID} {
		players, err := s.playerRepo.GetByTeam(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("fetching roster of %s: %w", teamID, err)
		}
		rosters = append(rosters, &store.Roster{Team: store.Team{TeamID: teamID}, Players: players})
	}

	home, away := BuildBoxScore(plays, rosters)
	return &BoxScore{Game: game, Home: home, Away: away}, nil
}

// BuildBoxScore tallies player involvement from the jersey numbers found in
// play summaries. Offensive roles count for the possessing team, defensive
// roles for its opponent. EPA goes to the passer, or the rusher when there
// is no passer.
func BuildBoxScore(plays []*pbp.Play, rosters []*store.Roster) (home, away []*PlayerLine) {
	if len(plays) == 0 {
		return nil, nil
	}
	index := jerseyIndex(rosters)
	lines := make(map[string]*PlayerLine)

	line := func(team, jersey string) *PlayerLine {
		if team == "" || jersey == "" {
			return nil
		}
		key := team + "#" + jersey
		l, ok := lines[key]
		if !ok {
			l = &PlayerLine{TeamID: team, Jersey: jersey}
			if p := index[team][jersey]; p != nil {
				l.PlayerID, l.Name = p.PlayerID, p.Name
			}
			lines[key] = l
		}
		return l
	}

	for _, p := range plays {
		offense := p.Raw.Team
		defense := p.Opponent(offense).String

		if l := line(offense, p.Passer); l != nil {
			l.Passes++
			l.EPA += epaOf(p)
		}
		if l := line(offense, p.Receiver); l != nil {
			l.Receptions++
		}
		if l := line(offense, p.Rusher); l != nil {
			l.Rushes++
			if p.Passer == "" {
				l.EPA += epaOf(p)
			}
		}
		if l := line(defense, p.Tackler); l != nil {
			l.Tackles++
		}
		if l := line(defense, p.Interceptor); l != nil {
			l.Interceptions++
		}
		if l := line(defense, p.Sacker); l != nil {
			l.Sacks++
		}
	}

	homeTeam := plays[0].HomeTeam
	for _, l := range lines {
		if l.TeamID == homeTeam {
			home = append(home, l)
		} else {
			away = append(away, l)
		}
	}
	sortLines(home)
	sortLines(away)
	return home, away
}

func epaOf(p *pbp.Play) float64 {
	if p.EPA.Valid {
		return p.EPA.Float64
	}
	return 0
}

func sortLines(lines []*PlayerLine) {
	sort.Slice(lines, func(i, j int) bool {
		a, aErr := strconv.Atoi(lines[i].Jersey)
		b, bErr := strconv.Atoi(lines[j].Jersey)
		if aErr == nil && bErr == nil && a != b {
			return a < b
		}
		return lines[i].Jersey < lines[j].Jersey
	})
}

// GameStats pairs a game with its per-team aggregates
type GameStats struct {
	Game  *store.Game          `json:"game"`
	Teams []*store.TeamSummary `json:"teams"`
}

// BoxScore lists player involvement per side
type BoxScore struct {
	Game *store.Game   `json:"game"`
	Home []*PlayerLine `json:"home"`
	Away []*PlayerLine `json:"away"`
}

// PlayerLine is one player's involvement in a game
type PlayerLine struct {
	TeamID        string  `json:"team_id"`
	Jersey        string  `json:"jersey"`
	PlayerID      string  `json:"player_id,omitempty"`
	Name          string  `json:"name,omitempty"`
	Passes        int     `json:"passes"`
	Receptions    int     `json:"receptions"`
	Rushes        int     `json:"rushes"`
	Tackles       int     `json:"tackles"`
	Interceptions int     `json:"interceptions"`
	Sacks         int     `json:"sacks"`
	EPA           float64 `json:"epa"`
}
