package pbp

import (
	"context"
	"database/sql"
)

const stageMetrics = "metrics"

// EPProbabilities is the model's next-score distribution for one row. Rows
// the model was not queried for are left invalid and inherit the next
// queried row's value.
type EPProbabilities struct {
	Touchdown    float64 `json:"touchdown"`
	OppTouchdown float64 `json:"opp_touchdown"`
	Safety       float64 `json:"safety"`
	OppSafety    float64 `json:"opp_safety"`
	NoScore      float64 `json:"no_score"`
	Valid        bool    `json:"valid"`
}

// ExpectedPoints returns the point value of the distribution.
func (e EPProbabilities) ExpectedPoints() float64 {
	return touchdownPoints*e.Touchdown - touchdownPoints*e.OppTouchdown +
		safetyPoints*e.Safety - safetyPoints*e.OppSafety
}

// Predictor scores feature rows. Results are aligned with the input by
// position.
type Predictor interface {
	PredictEP(ctx context.Context, features []Features) ([]EPProbabilities, error)
	PredictWP(ctx context.Context, features []Features) ([]sql.NullFloat64, error)
}

// Features is the model input for one row.
type Features struct {
	GameID               int      `json:"game_id"`
	PlayID               int      `json:"play_id"`
	Half                 int      `json:"half"`
	Down                 *int64   `json:"down"`
	YardsToGo            *int64   `json:"yards_to_go"`
	Yardline50           *int64   `json:"yardline_50"`
	ScoreDifferential    *int64   `json:"score_differential"`
	HalfSecondsRemaining float64  `json:"half_seconds_remaining"`
	GameSecondsRemaining float64  `json:"game_seconds_remaining"`
	DiffTimeRatio        *float64 `json:"Diff_Time_Ratio"`
	Receive2HKickoff     int      `json:"receive_2h_ko"`
	EP                   *float64 `json:"ep,omitempty"`
}

// FeaturesOf projects rows into model inputs. WP inputs include ep, so
// build them after ApplyEP.
func FeaturesOf(rows []*Play) []Features {
	out := make([]Features, len(rows))
	for i, p := range rows {
		out[i] = Features{
			GameID:               p.GameID,
			PlayID:               p.PlayID,
			Half:                 p.Half,
			Down:                 intPtr(p.Down),
			YardsToGo:            intPtr(p.YardsToGo),
			Yardline50:           intPtr(p.Yardline50),
			ScoreDifferential:    intPtr(p.ScoreDifferential),
			HalfSecondsRemaining: p.HalfSecondsRemaining,
			GameSecondsRemaining: p.GameSecondsRemaining,
			DiffTimeRatio:        floatPtr(p.DiffTimeRatio),
			Receive2HKickoff:     p.Receive2HKickoff,
			EP:                   floatPtr(p.EP),
		}
	}
	return out
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// epaRules are the scoring and boundary overrides of the forward EP
// difference, in priority order.
var epaRules = []rule[sql.NullFloat64]{
	{
		when: func(p *Play) bool { return p.GameEnd == 1 },
		then: constant(sql.NullFloat64{}),
	},
	{
		when: func(p *Play) bool { return p.HalfEnd == 1 && p.ScoringPlay == 0 && p.PlayType != "" },
		then: func(p *Play) sql.NullFloat64 { return lessEP(0, p) },
	},
	{
		when: func(p *Play) bool { return p.HalfEnd == 1 && p.Half == 1 },
		then: constant(sql.NullFloat64{}),
	},
	{
		when: func(p *Play) bool { return p.Safety == 1 && sameTeam(p.ScoringPlayTeam, p.Posteam) },
		then: func(p *Play) sql.NullFloat64 { return lessEP(safetyPoints, p) },
	},
	{
		when: func(p *Play) bool { return p.Safety == 1 && sameTeam(p.ScoringPlayTeam, p.Defteam) },
		then: func(p *Play) sql.NullFloat64 { return lessEP(-safetyPoints, p) },
	},
	{
		when: func(p *Play) bool { return p.DefensiveTwoPointConv == 1 },
		then: func(p *Play) sql.NullFloat64 { return lessEP(-defTwoPointConvPoints, p) },
	},
	{
		when: func(p *Play) bool {
			return isDown(p, 0) && p.YardsToGo.Valid && p.YardsToGo.Int64 > 5 && p.TwoPointConvSuccess == 0
		},
		then: constant(validFloat(-twoPointTryValue)),
	},
	{
		when: func(p *Play) bool {
			return isDown(p, 0) && p.YardsToGo.Valid && p.YardsToGo.Int64 <= 5 && p.OnePointConvSuccess == 0
		},
		then: constant(validFloat(-onePointTryValue)),
	},
	{
		when: func(p *Play) bool { return p.TwoPointConvSuccess == 1 },
		then: constant(validFloat(twoPointConvPoints - twoPointTryValue)),
	},
	{
		when: func(p *Play) bool { return p.OnePointConvSuccess == 1 },
		then: constant(validFloat(onePointConvPoints - onePointTryValue)),
	},
	{
		when: func(p *Play) bool {
			return (p.Touchdown == 1 || p.DefTouchdown == 1) && sameTeam(p.ScoringPlayTeam, p.Posteam)
		},
		then: func(p *Play) sql.NullFloat64 { return lessEP(touchdownPoints, p) },
	},
	{
		when: func(p *Play) bool {
			return (p.Touchdown == 1 || p.DefTouchdown == 1) && p.ScoringPlayTeam.Valid
		},
		then: func(p *Play) sql.NullFloat64 { return lessEP(-touchdownPoints, p) },
	},
}

// lessEP returns points - ep, null when the row has no ep.
func lessEP(points float64, p *Play) sql.NullFloat64 {
	if !p.EP.Valid {
		return sql.NullFloat64{}
	}
	return validFloat(points - p.EP.Float64)
}

func sameTeam(a, b sql.NullString) bool {
	return a.Valid && b.Valid && a.String == b.String
}

// ApplyEP attaches ep, epa and the per-team EPA columns. probs must hold one
// entry per row.
func ApplyEP(rows []*Play, probs []EPProbabilities) error {
	if len(probs) != len(rows) {
		return violation(stageMetrics, gameOf(rows), "%d EP predictions for %d rows", len(probs), len(rows))
	}
	at := make(map[*Play]EPProbabilities, len(rows))
	for i, p := range rows {
		at[p] = probs[i]
	}

	return forEachGame(stageMetrics, rows, func(game []*Play) error {
		if err := requireIndexed(stageMetrics, game); err != nil {
			return err
		}

		tmp := make([]sql.NullString, len(game))
		for i, p := range game {
			p.ExpPts, p.EP = sql.NullFloat64{}, sql.NullFloat64{}
			if pr := at[p]; pr.Valid {
				p.ExpPts = validFloat(pr.ExpectedPoints())
				p.EP = p.ExpPts
				tmp[i] = p.Posteam
			}
		}
		carryPossession(game, tmp,
			func(p *Play) sql.NullFloat64 { return p.EP },
			func(p *Play, v sql.NullFloat64) { p.EP = v })

		homeEP := make([]sql.NullFloat64, len(game))
		for i, p := range game {
			homeEP[i] = homeSigned(p, tmp[i], p.EP)
		}

		for i, p := range game {
			var diff sql.NullFloat64
			if i+1 < len(game) && homeEP[i].Valid && homeEP[i+1].Valid {
				diff = homeSigned(p, tmp[i], validFloat(homeEP[i+1].Float64-homeEP[i].Float64))
			}
			p.EPA = firstMatch(p, epaRules, constant(diff))
		}

		var totalHome, totalAway float64
		for _, p := range game {
			if p.GameEnd == 1 || (p.HalfEnd == 1 && p.Half == 1) {
				p.EP = sql.NullFloat64{}
			}
			p.HomeTeamEPA, p.AwayTeamEPA = teamShares(p, p.EPA)
			totalHome += p.HomeTeamEPA
			totalAway += p.AwayTeamEPA
			p.TotalHomeEPA, p.TotalAwayEPA = totalHome, totalAway
		}
		return nil
	})
}

// ApplyWP attaches the win-probability columns. wp must hold one entry per
// row; invalid entries inherit the next queried row's value.
func ApplyWP(rows []*Play, wp []sql.NullFloat64) error {
	if len(wp) != len(rows) {
		return violation(stageMetrics, gameOf(rows), "%d WP predictions for %d rows", len(wp), len(rows))
	}
	at := make(map[*Play]sql.NullFloat64, len(rows))
	for i, p := range rows {
		at[p] = wp[i]
	}

	return forEachGame(stageMetrics, rows, func(game []*Play) error {
		if err := requireIndexed(stageMetrics, game); err != nil {
			return err
		}

		tmp := make([]sql.NullString, len(game))
		for i, p := range game {
			p.WP = at[p]
			if p.WP.Valid {
				tmp[i] = p.Posteam
			}
		}
		carryPossession(game, tmp,
			func(p *Play) sql.NullFloat64 { return p.WP },
			func(p *Play, v sql.NullFloat64) { p.WP = v })

		for i, p := range game {
			p.DefWP = complement(p.WP)
			p.HomeWP = sql.NullFloat64{}
			switch {
			case p.GameEnd == 1:
				p.HomeWP = validFloat(finalOutcome(p))
			case p.WP.Valid && p.IsHome(tmp[i]):
				p.HomeWP = p.WP
			case p.WP.Valid && p.IsAway(tmp[i]):
				p.HomeWP = complement(p.WP)
			}
			p.AwayWP = complement(p.HomeWP)
		}

		var totalHome, totalAway, totalHomeWPA, totalAwayWPA float64
		for i, p := range game {
			p.WPA = sql.NullFloat64{}
			if p.GameEnd == 0 && i+1 < len(game) && p.HomeWP.Valid && game[i+1].HomeWP.Valid {
				p.WPA = homeSigned(p, tmp[i], validFloat(game[i+1].HomeWP.Float64-p.HomeWP.Float64))
			}

			p.HomeWPPost, p.AwayWPPost = sql.NullFloat64{}, sql.NullFloat64{}
			if p.WPA.Valid && p.HomeWP.Valid {
				switch {
				case p.IsHome(p.Posteam):
					p.HomeWPPost = validFloat(p.HomeWP.Float64 + p.WPA.Float64)
					p.AwayWPPost = validFloat(p.AwayWP.Float64 - p.WPA.Float64)
				case p.IsAway(p.Posteam):
					p.HomeWPPost = validFloat(p.HomeWP.Float64 - p.WPA.Float64)
					p.AwayWPPost = validFloat(p.AwayWP.Float64 + p.WPA.Float64)
				}
			}

			p.HomeTeamWPA, p.AwayTeamWPA = teamShares(p, p.WPA)
			totalHomeWPA += p.HomeTeamWPA
			totalAwayWPA += p.AwayTeamWPA
			p.TotalHomeWPA, p.TotalAwayWPA = totalHomeWPA, totalAwayWPA

			p.TotalHomeWP, p.TotalAwayWP = sql.NullFloat64{}, sql.NullFloat64{}
			if p.HomeWPPost.Valid {
				totalHome += p.HomeWPPost.Float64
				p.TotalHomeWP = validFloat(totalHome)
			}
			if p.AwayWPPost.Valid {
				totalAway += p.AwayWPPost.Float64
				p.TotalAwayWP = validFloat(totalAway)
			}
		}
		return nil
	})
}

// carryPossession backward-fills a model value together with the possessing
// team it was predicted for, so a carried value keeps its original sign.
func carryPossession(game []*Play, tmp []sql.NullString, get func(*Play) sql.NullFloat64, set func(*Play, sql.NullFloat64)) {
	type carried struct {
		value sql.NullFloat64
		team  sql.NullString
	}
	vals := make([]carried, len(game))
	present := make([]bool, len(game))
	for i, p := range game {
		vals[i] = carried{get(p), tmp[i]}
		present[i] = vals[i].value.Valid
	}
	backfill(vals, present)
	for i, p := range game {
		set(p, vals[i].value)
		tmp[i] = vals[i].team
	}
}

// homeSigned states v from the home team's side given the team it belongs
// to. The transform is its own inverse.
func homeSigned(p *Play, team sql.NullString, v sql.NullFloat64) sql.NullFloat64 {
	switch {
	case !v.Valid:
		return sql.NullFloat64{}
	case p.IsHome(team):
		return v
	case p.IsAway(team):
		return validFloat(-v.Float64)
	}
	return sql.NullFloat64{}
}

// teamShares splits a possessing-team delta into fixed home and away values.
// A null delta counts as 0.
func teamShares(p *Play, v sql.NullFloat64) (home, away float64) {
	if !v.Valid {
		return 0, 0
	}
	switch {
	case p.IsHome(p.Posteam):
		return v.Float64, -v.Float64
	case p.IsAway(p.Posteam):
		return -v.Float64, v.Float64
	}
	return 0, 0
}

func complement(v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return sql.NullFloat64{}
	}
	return validFloat(1 - v.Float64)
}

// finalOutcome is the home result of a game as of its last row.
func finalOutcome(p *Play) float64 {
	switch {
	case p.HomeTeamScore > p.AwayTeamScore:
		return 1
	case p.HomeTeamScore < p.AwayTeamScore:
		return 0
	}
	return 0.5
}

func gameOf(rows []*Play) int {
	if len(rows) == 0 {
		return 0
	}
	return rows[0].GameID
}
