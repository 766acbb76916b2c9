package pbp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildContext_Clock(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	halfOne := []float64{1200, 960, 720, 480, 240}
	for i, want := range halfOne {
		assert.InDelta(t, want, out[i].HalfSecondsRemaining, 1e-9, "row %d", i)
		assert.InDelta(t, 1200+want, out[i].GameSecondsRemaining, 1e-9, "row %d", i)
	}
	assert.Zero(t, out[0].PlayTime)
	assert.InDelta(t, 240, out[1].PlayTime, 1e-9)

	halfTwo := []float64{1200, 900, 600, 300}
	for i, want := range halfTwo {
		p := out[5+i]
		assert.InDelta(t, want, p.HalfSecondsRemaining, 1e-9)
		assert.InDelta(t, want, p.GameSecondsRemaining, 1e-9)
	}
	assert.InDelta(t, 0.5, out[5].ElapsedShare, 1e-9)
	assert.Zero(t, out[0].ElapsedShare)
}

func TestBuildContext_DiffTimeRatio(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	assert.InDelta(t, 0.0, out[0].DiffTimeRatio.Float64, 1e-9)
	// -7 at elapsed share 0.3 (720 of 2400 seconds gone).
	assert.InDelta(t, -7/0.301194211912202, out[3].DiffTimeRatio.Float64, 1e-6)
}

func TestBuildContext_NextScoreHalf(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	labels := make([]string, len(out))
	for i, p := range out {
		labels[i] = p.NextScoreHalf
	}
	assert.Equal(t, []string{
		EventTouchdown, EventTouchdown, EventExtraPoint, EventNoScore, EventNoScore,
		EventTouchdown, EventTouchdown, EventTwoPointConv, EventNoScore,
	}, labels)

	assert.Equal(t, validInt(1), out[0].DriveScoreHalf)
	assert.Equal(t, validInt(3), out[3].DriveScoreHalf)
	assert.Equal(t, validInt(4), out[5].DriveScoreHalf)
	assert.Equal(t, validInt(5), out[8].DriveScoreHalf)
	assert.False(t, out[3].ScoreDrive.Valid)
}

func TestBuildContext_OpponentLabels(t *testing.T) {
	game := apiGame(1,
		driveFixture{half: 1, team: homeID, plays: []RawEvent{
			snap("Rush for 3 yards", 1, 20, homeID, 3),
		}},
		driveFixture{half: 1, team: awayID, plays: []RawEvent{
			scored(snap("Rush for 12 yards, touchdown", 1, 38, awayID, 12)),
			conversion("PAT 5 yards", "Kick is good", awayID),
		}},
	)
	out, _ := derived(game)

	assert.Equal(t, EventOppTouchdown, out[0].NextScoreHalf)
	assert.Equal(t, EventTouchdown, out[1].NextScoreHalf)
	assert.Equal(t, EventExtraPoint, out[2].NextScoreHalf)
	assert.Equal(t, 0, out[0].Receive2HKickoff)
	assert.Equal(t, 1, out[1].Receive2HKickoff)
}

func TestRelabel(t *testing.T) {
	p := &Play{HomeTeam: homeID, AwayTeam: awayID, Posteam: validString(homeID)}
	assert.Equal(t, EventOppExtraPoint, relabel(p, nextScore{event: EventExtraPoint, team: validString(awayID)}))
	assert.Equal(t, EventOppSafety, relabel(p, nextScore{event: EventSafety, team: validString(awayID)}))
	assert.Equal(t, EventNoScore, relabel(&Play{}, nextScore{event: EventNoScore}))
	assert.Equal(t, "", relabel(&Play{}, nextScore{event: EventTouchdown, team: validString(homeID)}))
}
