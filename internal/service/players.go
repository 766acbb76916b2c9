package service

import (
	"context"
	"fmt"

	"github.com/fortuna/apollo/internal/store"
	"github.com/fortuna/apollo/internal/store/repository"
)

// RosterService handles team and roster lookups
type RosterService struct {
	playerRepo *repository.PlayerRepository
	teamRepo   *repository.TeamRepository
}

// NewRosterService creates a new roster service
func NewRosterService(db *store.Database) *RosterService {
	return &RosterService{
		playerRepo: repository.NewPlayerRepository(db),
		teamRepo:   repository.NewTeamRepository(db),
	}
}

// GetTeams lists every known team
func (s *RosterService) GetTeams(ctx context.Context) ([]*store.Team, error) {
	teams, err := s.teamRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching teams: %w", err)
	}
	return teams, nil
}

// GetRoster retrieves a team with its players
func (s *RosterService) GetRoster(ctx context.Context, teamID string) (*store.Roster, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching team: %w", err)
	}

	players, err := s.playerRepo.GetByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching roster: %w", err)
	}

	return &store.Roster{Team: *team, Players: players}, nil
}

// jerseyIndex maps team id and jersey number to the rostered player
func jerseyIndex(rosters []*store.Roster) map[string]map[string]*store.Player {
	index := make(map[string]map[string]*store.Player, len(rosters))
	for _, roster := range rosters {
		if roster == nil {
			continue
		}
		byJersey := make(map[string]*store.Player, len(roster.Players))
		for _, p := range roster.Players {
			if p.JerseyNumber.Valid {
				byJersey[p.JerseyNumber.String] = p
			}
		}
		index[roster.Team.TeamID] = byJersey
	}
	return index
}
