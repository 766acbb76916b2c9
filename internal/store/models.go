package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is wrapped by lookups that match no row
var ErrNotFound = errors.New("not found")

// Team represents a club taking part in a SportApp competition
type Team struct {
	TeamID       string         `json:"team_id" db:"team_id"`
	Name         string         `json:"name" db:"name"`
	Abbreviation sql.NullString `json:"abbreviation,omitempty" db:"abbreviation"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Player is one roster entry. Jersey numbers are matched against the
// numbers pulled from play summaries.
type Player struct {
	PlayerID     string         `json:"player_id" db:"player_id"`
	TeamID       string         `json:"team_id" db:"team_id"`
	Name         string         `json:"name" db:"name"`
	JerseyNumber sql.NullString `json:"jersey_number,omitempty" db:"jersey_number"`
	Position     sql.NullString `json:"position,omitempty" db:"position"`
	Club         sql.NullString `json:"club,omitempty" db:"club"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Roster is a team together with its players
type Roster struct {
	Team    Team      `json:"team"`
	Players []*Player `json:"players"`
}

// Game status values
const (
	GameStatusDerived  = "derived"
	GameStatusEnriched = "enriched"
)

// Game holds match metadata for one processed game
type Game struct {
	GameID            int       `json:"game_id" db:"game_id"`
	Source            string    `json:"source" db:"source"`
	Season            string    `json:"season" db:"season"`
	CompetitionID     int       `json:"competition_id" db:"competition_id"`
	CompetitionName   string    `json:"competition_name" db:"competition_name"`
	CompetitionLeague string    `json:"competition_league" db:"competition_league"`
	Gender            string    `json:"gender" db:"gender"`
	GameType          string    `json:"game_type" db:"game_type"`
	GameGroupID       int       `json:"game_group_id" db:"game_group_id"`
	GameGroup         string    `json:"game_group" db:"game_group"`
	StreamURL         string    `json:"stream_url" db:"stream_url"`
	HomeTeamID        string    `json:"home_team_id" db:"home_team_id"`
	AwayTeamID        string    `json:"away_team_id" db:"away_team_id"`
	HomeScore         int       `json:"home_score" db:"home_score"`
	AwayScore         int       `json:"away_score" db:"away_score"`
	PlayCount         int       `json:"play_count" db:"play_count"`
	Status            string    `json:"status" db:"status"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// TeamSummary aggregates one side's EPA and WPA over a game
type TeamSummary struct {
	TeamID     string  `json:"team_id"`
	Plays      int     `json:"plays"`
	TotalEPA   float64 `json:"total_epa"`
	EPAPerPlay float64 `json:"epa_per_play"`
	PassPlays  int     `json:"pass_plays"`
	PassEPA    float64 `json:"pass_epa"`
	RunPlays   int     `json:"run_plays"`
	RunEPA     float64 `json:"run_epa"`
	TotalWPA   float64 `json:"total_wpa"`
	Success    float64 `json:"success_rate"`
}
