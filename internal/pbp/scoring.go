package pbp

import "database/sql"

const stageScoring = "scoring"

// scoringTeamRules credit offensive scores to the team listed on the row and
// defensive scores to its opponent.
var scoringTeamRules = []rule[sql.NullString]{
	{
		when: func(p *Play) bool {
			return p.Touchdown == 1 || p.OnePointConvSuccess == 1 || p.TwoPointConvSuccess == 1
		},
		then: func(p *Play) sql.NullString { return validString(p.Raw.Team) },
	},
	{
		when: func(p *Play) bool {
			return p.DefTouchdown == 1 || p.DefensiveTwoPointConv == 1 || p.Safety == 1
		},
		then: func(p *Play) sql.NullString { return p.Opponent(p.Raw.Team) },
	},
}

var pointRules = []rule[int]{
	{when: func(p *Play) bool { return p.Touchdown == 1 }, then: constant(touchdownPoints)},
	{when: func(p *Play) bool { return p.DefTouchdown == 1 }, then: constant(touchdownPoints)},
	{when: func(p *Play) bool { return p.OnePointConvSuccess == 1 }, then: constant(onePointConvPoints)},
	{when: func(p *Play) bool { return p.TwoPointConvSuccess == 1 }, then: constant(twoPointConvPoints)},
	{when: func(p *Play) bool { return p.DefensiveTwoPointConv == 1 }, then: constant(defTwoPointConvPoints)},
	{when: func(p *Play) bool { return p.Safety == 1 }, then: constant(safetyPoints)},
}

func constant[T any](v T) func(*Play) T {
	return func(*Play) T { return v }
}

// Score credits each scoring play to a team, values it and accumulates the
// running home and away score per game. The first row of a game never
// carries points so both scores start at 0.
func Score(rows []*Play) error {
	return forEachGame(stageScoring, rows, func(game []*Play) error {
		if err := requireIndexed(stageScoring, game); err != nil {
			return err
		}

		home, away := 0, 0
		for _, p := range game {
			p.ScoringPlayTeam = sql.NullString{}
			if p.ScoringPlay == 1 {
				p.ScoringPlayTeam = firstMatch(p, scoringTeamRules, func(*Play) sql.NullString { return sql.NullString{} })
				if !p.ScoringPlayTeam.Valid {
					return violation(stageScoring, p.GameID, "scoring play %d cannot be credited to a team", p.PlayID)
				}
			}

			points := firstMatch(p, pointRules, constant(0))
			if p.PlayID == 1 {
				points = 0
			}
			p.HomeTeamPoints, p.AwayTeamPoints = 0, 0
			switch {
			case p.IsHome(p.ScoringPlayTeam):
				p.HomeTeamPoints = points
			case p.IsAway(p.ScoringPlayTeam):
				p.AwayTeamPoints = points
			}

			home += p.HomeTeamPoints
			away += p.AwayTeamPoints
			p.HomeTeamScore, p.AwayTeamScore = home, away

			p.PosteamScore, p.DefteamScore, p.ScoreDifferential = sideScores(p)
		}
		return nil
	})
}

// sideScores re-expresses the running score from the possessing team's side.
func sideScores(p *Play) (pos, def, diff sql.NullInt64) {
	switch {
	case p.IsHome(p.Posteam):
		pos, def = validInt(int64(p.HomeTeamScore)), validInt(int64(p.AwayTeamScore))
	case p.IsAway(p.Posteam):
		pos, def = validInt(int64(p.AwayTeamScore)), validInt(int64(p.HomeTeamScore))
	default:
		return
	}
	return pos, def, validInt(pos.Int64 - def.Int64)
}
