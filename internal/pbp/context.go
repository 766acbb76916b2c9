package pbp

import (
	"database/sql"
	"math"
)

const stageContext = "context"

// timeDecay is the rate of the exponential weight in Diff_Time_Ratio.
const timeDecay = 4.0

var scoringEventRules = []rule[string]{
	{when: func(p *Play) bool { return p.Touchdown == 1 || p.DefTouchdown == 1 }, then: constant(EventTouchdown)},
	{when: func(p *Play) bool { return p.Safety == 1 }, then: constant(EventSafety)},
	{when: func(p *Play) bool { return p.OnePointConvSuccess == 1 }, then: constant(EventExtraPoint)},
	{
		when: func(p *Play) bool { return p.TwoPointConvSuccess == 1 || p.DefensiveTwoPointConv == 1 },
		then: constant(EventTwoPointConv),
	},
}

var opponentEvent = map[string]string{
	EventTouchdown:    EventOppTouchdown,
	EventSafety:       EventOppSafety,
	EventExtraPoint:   EventOppExtraPoint,
	EventTwoPointConv: EventOppTwoPointConv,
}

// BuildContext reconstructs the clock and labels every row with the next
// score of its half.
func BuildContext(rows []*Play) error {
	if err := forEachGame(stageContext, rows, func(game []*Play) error {
		if err := requireIndexed(stageContext, game); err != nil {
			return err
		}
		buildClock(game)
		markKickoffReceiver(game)
		return nil
	}); err != nil {
		return err
	}
	return forEachHalf(stageContext, rows, labelNextScore)
}

// buildClock spreads each half's 1200 seconds evenly over its rows. The
// first row of a half consumes no time.
func buildClock(game []*Play) {
	plays := make(map[int]int)
	for _, p := range game {
		if p.PlayIDHalf > plays[p.Half] {
			plays[p.Half] = p.PlayIDHalf
		}
	}

	var gameElapsed, halfElapsed float64
	for i, p := range game {
		if i > 0 && p.Half != game[i-1].Half {
			halfElapsed = 0
		}
		p.PlayTime = 0
		if p.PlayIDHalf != 1 {
			p.PlayTime = HalfSeconds / float64(plays[p.Half])
		}
		halfElapsed += p.PlayTime
		gameElapsed += p.PlayTime

		p.HalfSecondsRemaining = HalfSeconds - halfElapsed
		if p.Half == 2 {
			p.GameSecondsRemaining = p.HalfSecondsRemaining
		} else {
			p.GameSecondsRemaining = GameSeconds - gameElapsed
		}
		p.ElapsedShare = (GameSeconds - p.GameSecondsRemaining) / GameSeconds

		p.DiffTimeRatio = sql.NullFloat64{}
		if p.ScoreDifferential.Valid {
			p.DiffTimeRatio = validFloat(float64(p.ScoreDifferential.Int64) / math.Exp(-timeDecay*p.ElapsedShare))
		}
	}
}

// markKickoffReceiver flags rows whose possessing team did not have the ball
// on the game's first play.
func markKickoffReceiver(game []*Play) {
	for _, p := range game {
		p.StartPosteam = sql.NullString{}
	}
	game[0].StartPosteam = game[0].Posteam
	forwardfill(game,
		func(p *Play) (sql.NullString, bool) { return p.StartPosteam, p.StartPosteam.Valid },
		func(p *Play, v sql.NullString) { p.StartPosteam = v },
	)
	for _, p := range game {
		p.Receive2HKickoff = boolInt(!(p.StartPosteam.Valid && p.Posteam.Valid && p.StartPosteam.String == p.Posteam.String))
	}
}

// nextScore is the scoring event a row looks ahead to.
type nextScore struct {
	event string
	team  sql.NullString
	drive sql.NullInt64
}

// labelNextScore carries each half's scoring events backwards so every row
// knows the next score before the half ends, then states it from the row's
// possessing team.
func labelNextScore(half []*Play) error {
	next := make([]nextScore, len(half))
	have := make([]bool, len(half))
	for i, p := range half {
		switch {
		case p.ScoringPlay == 1:
			next[i] = nextScore{
				event: firstMatch(p, scoringEventRules, constant(EventNoScore)),
				team:  p.ScoringPlayTeam,
				drive: validInt(int64(p.DriveID)),
			}
			have[i] = true
		case p.HalfEnd == 1:
			next[i] = nextScore{event: EventNoScore}
			have[i] = true
		}
	}

	backfill(next, have)

	for i, p := range half {
		n := next[i]
		p.ScoringEvent = n.event
		p.ScoreDrive = n.drive
		p.NextScoreHalf = relabel(p, n)
		p.DriveScoreHalf = n.drive
		if n.event == EventNoScore {
			p.DriveScoreHalf = validInt(int64(p.DriveID))
		}
	}
	return nil
}

func relabel(p *Play, n nextScore) string {
	switch {
	case n.event == EventNoScore || n.event == "":
		return n.event
	case !p.Posteam.Valid:
		return ""
	case n.team.Valid && n.team.String == p.Posteam.String:
		return n.event
	}
	return opponentEvent[n.event]
}
