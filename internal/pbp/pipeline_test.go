package pbp

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_PropertiesHoldPerGame(t *testing.T) {
	rows := append(pickSixGame(2), pickSixGame(1)...)

	out, summary := derived(rows)
	require.Empty(t, summary.Skipped)
	assert.Equal(t, 2, summary.Games)
	assert.Equal(t, 18, summary.Plays)

	for _, game := range SplitGames(out) {
		halfEnds := make(map[int]int)
		gameEnds := 0
		home, away := 0, 0
		for i, p := range game {
			assert.Equal(t, i+1, p.PlayID)
			halfEnds[p.Half] += p.HalfEnd
			gameEnds += p.GameEnd

			if p.Posteam.Valid && p.Defteam.Valid {
				assert.NotEqual(t, p.Posteam.String, p.Defteam.String)
				assert.Equal(t, p.Opponent(p.Posteam.String), p.Defteam)
			}
			assert.GreaterOrEqual(t, p.HomeTeamScore, home)
			assert.GreaterOrEqual(t, p.AwayTeamScore, away)
			home, away = p.HomeTeamScore, p.AwayTeamScore

			assert.Equal(t, p.ScoringPlay == 1, p.ScoringPlayTeam.Valid, "play %d", p.PlayID)
		}
		assert.Equal(t, map[int]int{1: 1, 2: 1}, halfEnds)
		assert.Equal(t, 1, gameEnds)
		assert.Equal(t, 1, game[len(game)-1].GameEnd)
	}
}

func TestIndex_Idempotent(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	type ids struct{ play, drive, half int }
	before := make([]ids, len(out))
	for i, p := range out {
		before[i] = ids{p.PlayID, p.DriveID, p.PlayIDHalf}
	}

	require.NoError(t, Index(out))
	for i, p := range out {
		assert.Equal(t, before[i], ids{p.PlayID, p.DriveID, p.PlayIDHalf})
	}
}

func TestIndex_NumbersDrivesAcrossHalves(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	drives := make([]int, len(out))
	for i, p := range out {
		drives[i] = p.DriveID
	}
	assert.Equal(t, []int{1, 1, 2, 3, 3, 4, 4, 4, 5}, drives)
	assert.Equal(t, 1, out[5].PlayIDHalf)
	assert.Equal(t, 1, out[4].HalfEnd)
	assert.Equal(t, 0, out[4].GameEnd)
}

func TestIndex_RejectsInterleavedGames(t *testing.T) {
	rows := []*Play{
		tabular(1, 1, 1, 1, homeID, 1, 20, 10),
		tabular(2, 1, 1, 1, homeID, 1, 20, 10),
		tabular(1, 1, 1, 2, homeID, 2, 25, 5),
	}
	err := Index(rows)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
}

func TestIndex_RejectsHalvesOutOfOrder(t *testing.T) {
	rows := []*Play{
		tabular(1, 2, 1, 1, homeID, 1, 20, 10),
		tabular(1, 1, 1, 1, homeID, 1, 20, 10),
	}
	var iv *InvariantViolation
	require.True(t, errors.As(Index(rows), &iv))
	assert.Equal(t, stageIndex, iv.Stage)
	assert.Equal(t, 1, iv.GameID)
}

func TestIndex_RejectsRepeatedEvents(t *testing.T) {
	rows := []*Play{
		tabular(1, 1, 1, 1, homeID, 1, 20, 10),
		tabular(1, 1, 1, 2, homeID, 2, 25, 5),
		tabular(1, 1, 1, 2, homeID, 2, 25, 5),
	}
	var iv *InvariantViolation
	require.True(t, errors.As(Index(rows), &iv))
	assert.Equal(t, stageIndex, iv.Stage)
	assert.Contains(t, iv.Detail, "duplicate event")
}

func TestDerive_DropsGameDeliveredTwice(t *testing.T) {
	rows := append(pickSixGame(7), pickSixGame(7)...)
	rows = append(rows, pickSixGame(8)...)

	out, summary := derived(rows)
	assert.Equal(t, []string{"7"}, summary.SkippedGames())
	assert.Equal(t, 1, summary.Games)
	require.Len(t, out, 9)

	last := out[len(out)-1]
	assert.Equal(t, 8, last.GameID)
	assert.Equal(t, 0, last.HomeTeamScore)
	assert.Equal(t, 15, last.AwayTeamScore)
}

func TestUniqueGameIDs(t *testing.T) {
	assert.Equal(t, []int{7, 3, 9}, UniqueGameIDs([]int{7, 3, 7, 9, 3}))
	assert.Empty(t, UniqueGameIDs(nil))
}

func TestDerive_PickSix(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	posteams := make([]string, len(out))
	for i, p := range out {
		posteams[i] = p.Posteam.String
	}
	assert.Equal(t, []string{awayID, awayID, awayID, homeID, homeID, awayID, awayID, awayID, homeID}, posteams)

	first, score := out[0], out[1]
	assert.Equal(t, 0, first.DefTouchdown)
	assert.Equal(t, 1, score.DefTouchdown)
	assert.Equal(t, 1, score.Interception)
	assert.Equal(t, 0, score.Touchdown)
	assert.Equal(t, 1, score.ScoringPlay)
	assert.Equal(t, sql.NullString{String: awayID, Valid: true}, score.ScoringPlayTeam)
	assert.Equal(t, 6, score.AwayTeamPoints)
	assert.Equal(t, 0, score.HomeTeamPoints)
	assert.Equal(t, 6, score.AwayTeamScore)
}

func TestDerive_OnePointConversion(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	try := out[2]
	assert.Equal(t, validInt(0), try.Down)
	assert.Equal(t, 1, try.PointAfter)
	assert.Equal(t, 1, try.OnePointConvSuccess)
	assert.Equal(t, 0, try.TwoPointConvSuccess)
	assert.Equal(t, validInt(5), try.YardsToGo)
	assert.Equal(t, 1, try.AwayTeamPoints)
	assert.Equal(t, 7, try.AwayTeamScore)

	two := out[7]
	assert.Equal(t, 1, two.TwoPointConvSuccess)
	assert.Equal(t, validInt(10), two.YardsToGo)
	assert.Equal(t, 2, two.AwayTeamPoints)
	assert.Equal(t, 15, two.AwayTeamScore)
}

func TestDerive_SideScores(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	homeDrive := out[3]
	assert.Equal(t, validInt(0), homeDrive.PosteamScore)
	assert.Equal(t, validInt(7), homeDrive.DefteamScore)
	assert.Equal(t, validInt(-7), homeDrive.ScoreDifferential)
}

func TestDerive_DropsOnlyTheBrokenGame(t *testing.T) {
	broken := apiGame(3,
		driveFixture{half: 1, team: homeID, plays: []RawEvent{
			snap("Rush for 2 yards", 1, 20, homeID, 2),
		}},
		driveFixture{half: 1, team: "99", plays: []RawEvent{
			snap("Tackled in the end zone for a safety", 1, 2, "99", -2),
		}},
	)
	rows := append(pickSixGame(1), broken...)

	out, summary := derived(rows)
	assert.Equal(t, 1, summary.Games)
	assert.Equal(t, []string{"3"}, summary.SkippedGames())
	for _, p := range out {
		assert.Equal(t, 1, p.GameID)
	}
}

type fixedPredictor struct {
	ep  func(i int) EPProbabilities
	wp  func(i int) sql.NullFloat64
	err error
}

func (f fixedPredictor) PredictEP(_ context.Context, features []Features) ([]EPProbabilities, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]EPProbabilities, len(features))
	for i := range features {
		out[i] = f.ep(i)
	}
	return out, nil
}

func (f fixedPredictor) PredictWP(_ context.Context, features []Features) ([]sql.NullFloat64, error) {
	out := make([]sql.NullFloat64, len(features))
	for i := range features {
		out[i] = f.wp(i)
	}
	return out, nil
}

func rampPredictor() fixedPredictor {
	return fixedPredictor{
		ep: func(i int) EPProbabilities {
			return EPProbabilities{Touchdown: 0.05 * float64(i+1), NoScore: 1 - 0.05*float64(i+1), Valid: true}
		},
		wp: func(int) sql.NullFloat64 { return validFloat(0.6) },
	}
}

func TestRun_EnrichesAndSkipsFailedPredictions(t *testing.T) {
	pl := NewPipeline(SourceSportApp, DefaultConversionRules(), testLogger())

	out, summary := pl.Run(context.Background(), pickSixGame(1), rampPredictor())
	require.Len(t, out, 9)
	assert.Empty(t, summary.Skipped)
	assert.True(t, out[0].WP.Valid)

	_, summary = pl.Run(context.Background(), pickSixGame(1), fixedPredictor{err: errors.New("model down")})
	assert.Equal(t, []string{"1"}, summary.SkippedGames())
	assert.Equal(t, 0, summary.Games)
}

func TestRun_WithoutPredictorLeavesMetricsEmpty(t *testing.T) {
	pl := NewPipeline(SourceSportApp, DefaultConversionRules(), testLogger())

	out, summary := pl.Run(context.Background(), pickSixGame(1), nil)
	require.Len(t, out, 9)
	assert.Equal(t, 1, summary.Games)
	for _, p := range out {
		assert.False(t, p.EP.Valid)
	}
}
