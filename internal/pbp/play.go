package pbp

import (
	"database/sql"
)

// Source identifies which raw format a play was normalized from.
type Source string

const (
	SourceSportApp   Source = "sportapp"
	SourceHudl       Source = "hudl"
	SourceDSFootball Source = "dsfootball"
)

// Match carries per-game metadata copied onto every play of the game.
type Match struct {
	GameID            int    `json:"game_id"`
	Season            string `json:"season"`
	CompetitionID     int    `json:"competition_id"`
	CompetitionName   string `json:"competition_name"`
	CompetitionLeague string `json:"competition_league"`
	Gender            string `json:"gender"`
	GameType          string `json:"game_type"`
	GameGroupID       int    `json:"game_group_id"`
	GameGroup         string `json:"game_group"`
	StreamURL         string `json:"stream_url"`
	HomeTeam          string `json:"home_team"`
	AwayTeam          string `json:"away_team"`
	HomeScore         int    `json:"home_score"`
	AwayScore         int    `json:"away_score"`
}

// RawEvent holds the source fields copied through unchanged by a normalizer.
type RawEvent struct {
	DriveIDHalf    int           `json:"drive_id_half"`
	PlayIDDrive    int           `json:"play_id_drive"`
	Team           string        `json:"posteam_id"`
	TeamAbbr       string        `json:"posteam_abb"`
	Summary        string        `json:"summary"`
	ActionTitle    string        `json:"action_title"`
	Result         string        `json:"result"`
	Down           sql.NullInt64 `json:"down_raw"`
	DownDesc       string        `json:"down_desc"`
	DownAfter      sql.NullInt64 `json:"down_after"`
	DownAfterDesc  string        `json:"down_after_desc"`
	YardsToGo      string        `json:"yards_to_go_raw"`
	YardsToGoAfter string        `json:"yards_to_go_after_raw"`
	DriveYards     sql.NullInt64 `json:"yards"`
	StartYardLine  int           `json:"start_yard_line"`
	StartSide      string        `json:"start_yard_line_team_half_id"`
	EndYardLine    int           `json:"end_yard_line"`
	EndSide        string        `json:"end_yard_line_team_half_id"`
	Spot           sql.NullInt64 `json:"spot"`
	Distance       sql.NullInt64 `json:"distance"`
	PossessionTime string        `json:"possession_time"`
	PlayType       string        `json:"play_type_raw"`
}

// Players holds jersey numbers pulled from the free-text summary.
type Players struct {
	Passer      string `json:"passer,omitempty"`
	Receiver    string `json:"receiver,omitempty"`
	Rusher      string `json:"rusher,omitempty"`
	Tackler     string `json:"tackle_player,omitempty"`
	Interceptor string `json:"interception_player,omitempty"`
	Sacker      string `json:"sack_player,omitempty"`
}

// Play is one row of the canonical play-by-play table. Normalizers fill
// Match and Raw; every later stage only attaches derived columns.
type Play struct {
	Source Source   `json:"source"`
	Match  Match    `json:"match"`
	Raw    RawEvent `json:"raw"`
	Players

	GameID     int `json:"game_id"`
	Half       int `json:"half"`
	DriveID    int `json:"drive_id"`
	PlayID     int `json:"play_id"`
	PlayIDHalf int `json:"play_id_half"`

	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Posteam      sql.NullString `json:"posteam"`
	Defteam      sql.NullString `json:"defteam"`
	PosteamAfter sql.NullString `json:"posteam_after"`
	DefteamAfter sql.NullString `json:"defteam_after"`

	Down             sql.NullInt64 `json:"down"`
	YardsToGo        sql.NullInt64 `json:"yards_to_go"`
	YardsToGoAfter   sql.NullInt64 `json:"yards_to_go_after"`
	YardsToGoSimple  int           `json:"yards_to_go_simple"`
	Yardline50       sql.NullInt64 `json:"yardline_50"`
	Yardline50After  sql.NullInt64 `json:"yardline_50_after"`
	Yardline50Simple int           `json:"yardline_50_simple"`
	YardsGained      sql.NullInt64 `json:"yards_gained"`
	FirstDown        int           `json:"first_down"`

	PlayResult            string `json:"play_result"`
	PlayType              string `json:"play_type"`
	CompletePass          int    `json:"complete_pass"`
	Interception          int    `json:"interception"`
	Sack                  int    `json:"sack"`
	Touchdown             int    `json:"touchdown"`
	DefTouchdown          int    `json:"def_touchdown"`
	Safety                int    `json:"safety"`
	Penalty               int    `json:"penalty"`
	OnePointConvSuccess   int    `json:"one_point_conv_success"`
	TwoPointConvSuccess   int    `json:"two_point_conv_success"`
	DefensiveTwoPointConv int    `json:"defensive_two_point_conv"`
	ScoringPlay           int    `json:"scoring_play"`
	PointAfter            int    `json:"point_after"`
	PointAfterSuccess     int    `json:"point_after_success"`

	ScoringPlayTeam   sql.NullString `json:"scoring_play_team"`
	HomeTeamPoints    int            `json:"home_team_points"`
	AwayTeamPoints    int            `json:"away_team_points"`
	HomeTeamScore     int            `json:"home_team_score"`
	AwayTeamScore     int            `json:"away_team_score"`
	PosteamScore      sql.NullInt64  `json:"posteam_score"`
	DefteamScore      sql.NullInt64  `json:"defteam_score"`
	ScoreDifferential sql.NullInt64  `json:"score_differential"`

	HalfEnd int `json:"half_end"`
	GameEnd int `json:"game_end"`

	PlayTime             float64         `json:"play_time"`
	HalfSecondsRemaining float64         `json:"half_seconds_remaining"`
	GameSecondsRemaining float64         `json:"game_seconds_remaining"`
	ElapsedShare         float64         `json:"elapsed_share"`
	DiffTimeRatio        sql.NullFloat64 `json:"Diff_Time_Ratio"`
	StartPosteam         sql.NullString  `json:"start_posteam"`
	Receive2HKickoff     int             `json:"receive_2h_ko"`
	ScoringEvent         string          `json:"scoring_event"`
	ScoreDrive           sql.NullInt64   `json:"score_drive"`
	NextScoreHalf        string          `json:"Next_Score_Half"`
	DriveScoreHalf       sql.NullInt64   `json:"Drive_Score_Half"`

	ExpPts       sql.NullFloat64 `json:"ExpPts"`
	EP           sql.NullFloat64 `json:"ep"`
	EPA          sql.NullFloat64 `json:"epa"`
	HomeTeamEPA  float64         `json:"home_team_epa"`
	AwayTeamEPA  float64         `json:"away_team_epa"`
	TotalHomeEPA float64         `json:"total_home_epa"`
	TotalAwayEPA float64         `json:"total_away_epa"`

	WP           sql.NullFloat64 `json:"wp"`
	DefWP        sql.NullFloat64 `json:"def_wp"`
	HomeWP       sql.NullFloat64 `json:"home_wp"`
	AwayWP       sql.NullFloat64 `json:"away_wp"`
	WPA          sql.NullFloat64 `json:"wpa"`
	HomeWPPost   sql.NullFloat64 `json:"home_wp_post"`
	AwayWPPost   sql.NullFloat64 `json:"away_wp_post"`
	HomeTeamWPA  float64         `json:"home_team_wpa"`
	AwayTeamWPA  float64         `json:"away_team_wpa"`
	TotalHomeWP  sql.NullFloat64 `json:"total_home_wp"`
	TotalAwayWP  sql.NullFloat64 `json:"total_away_wp"`
	TotalHomeWPA float64         `json:"total_home_wpa"`
	TotalAwayWPA float64         `json:"total_away_wpa"`
}

// NewPlay builds a play from normalized source fields.
func NewPlay(source Source, match Match, half int, raw RawEvent) *Play {
	return &Play{
		Source:   source,
		Match:    match,
		Raw:      raw,
		GameID:   match.GameID,
		Half:     half,
		HomeTeam: match.HomeTeam,
		AwayTeam: match.AwayTeam,
	}
}

// Opponent returns the other team of the game, or an invalid value when
// team is neither the home nor the away side.
func (p *Play) Opponent(team string) sql.NullString {
	switch {
	case team == "":
		return sql.NullString{}
	case team == p.HomeTeam:
		return validString(p.AwayTeam)
	case team == p.AwayTeam:
		return validString(p.HomeTeam)
	}
	return sql.NullString{}
}

// IsHome reports whether team is this game's home side.
func (p *Play) IsHome(team sql.NullString) bool {
	return team.Valid && team.String == p.HomeTeam
}

// IsAway reports whether team is this game's away side.
func (p *Play) IsAway(team sql.NullString) bool {
	return team.Valid && team.String == p.AwayTeam
}

func validString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func validInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func validFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
