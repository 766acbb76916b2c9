package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
	"github.com/fortuna/apollo/internal/store/repository"
)

// GameService handles game-related business logic
type GameService struct {
	gameRepo *repository.GameRepository
	teamRepo *repository.TeamRepository
	playRepo *repository.PlayRepository
}

// NewGameService creates a new game service
func NewGameService(db *store.Database) *GameService {
	return &GameService{
		gameRepo: repository.NewGameRepository(db),
		teamRepo: repository.NewTeamRepository(db),
		playRepo: repository.NewPlayRepository(db),
	}
}

// GetGame retrieves a game by ID with team details. Teams without a stored
// roster are left nil.
func (s *GameService) GetGame(ctx context.Context, gameID int) (*GameSummary, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	homeTeam, err := s.optionalTeam(ctx, game.HomeTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetching home team: %w", err)
	}

	awayTeam, err := s.optionalTeam(ctx, game.AwayTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetching away team: %w", err)
	}

	return &GameSummary{
		Game:     game,
		HomeTeam: homeTeam,
		AwayTeam: awayTeam,
	}, nil
}

// ListGames returns processed games, newest first
func (s *GameService) ListGames(ctx context.Context, limit, offset int) ([]*store.Game, error) {
	games, err := s.gameRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching games: %w", err)
	}
	return games, nil
}

// GetTeamGames retrieves games for a specific team
func (s *GameService) GetTeamGames(ctx context.Context, teamID string, limit int) ([]*store.Game, error) {
	games, err := s.gameRepo.GetByTeam(ctx, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching team games: %w", err)
	}
	return games, nil
}

// GetPlays returns the stored play-by-play of a game
func (s *GameService) GetPlays(ctx context.Context, gameID int) ([]*pbp.Play, error) {
	if _, err := s.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}
	plays, err := s.playRepo.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching plays: %w", err)
	}
	return plays, nil
}

func (s *GameService) optionalTeam(ctx context.Context, teamID string) (*store.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return team, err
}

// GameSummary contains game details with team information
type GameSummary struct {
	Game     *store.Game `json:"game"`
	HomeTeam *store.Team `json:"home_team,omitempty"`
	AwayTeam *store.Team `json:"away_team,omitempty"`
}
