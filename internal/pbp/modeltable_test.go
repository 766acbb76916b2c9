package pbp

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labeled(playID, driveID int, label string, scoringDrive, diff int64) *Play {
	return &Play{
		GameID:            1,
		PlayID:            playID,
		DriveID:           driveID,
		Down:              validInt(int64(playID % 5)),
		Yardline50:        validInt(20),
		YardsToGo:         validInt(10),
		ScoreDifferential: validInt(diff),
		NextScoreHalf:     label,
		DriveScoreHalf:    validInt(scoringDrive),
	}
}

func TestBuildEPTable_WeightsSpanUnitInterval(t *testing.T) {
	noYardline := labeled(5, 3, EventNoScore, 3, 0)
	noYardline.Yardline50 = sql.NullInt64{}

	rows := []*Play{
		labeled(1, 1, EventTouchdown, 3, 7),
		labeled(2, 2, EventOppSafety, 3, 0),
		labeled(3, 3, EventNoScore, 3, -14),
		labeled(4, 3, EventExtraPoint, 3, 0),
		noYardline,
	}

	table := BuildEPTable(rows)
	require.Len(t, table, 3)

	assert.Equal(t, []int{0, 3, 4}, []int{table[0].Label, table[1].Label, table[2].Label})
	assert.Equal(t, int64(2), table[0].DriveScoreDist)
	assert.Equal(t, 1, table[0].Down1)
	assert.Equal(t, 1, table[1].Down2)

	var sawMin, sawMax bool
	for _, r := range table {
		assert.GreaterOrEqual(t, r.TotalWScaled, 0.0)
		assert.LessOrEqual(t, r.TotalWScaled, 1.0)
		sawMin = sawMin || r.TotalWScaled == 0
		sawMax = sawMax || r.TotalWScaled == 1
	}
	assert.True(t, sawMin)
	assert.True(t, sawMax)

	assert.InDelta(t, 0.0, table[0].DriveScoreDistW, 1e-9)
	assert.InDelta(t, 0.5, table[0].ScoreDiffW, 1e-9)
	assert.InDelta(t, 1.5, table[1].TotalW, 1e-9)
	assert.InDelta(t, 0.5, table[2].TotalWScaled, 1e-9)
}

func TestBuildEPTable_FlatWeights(t *testing.T) {
	table := BuildEPTable([]*Play{
		labeled(1, 1, EventTouchdown, 2, 3),
		labeled(2, 1, EventTouchdown, 2, 3),
	})
	require.Len(t, table, 2)
	for _, r := range table {
		assert.Zero(t, r.TotalW)
		assert.Equal(t, 1.0, r.TotalWScaled)
	}
	assert.Empty(t, BuildEPTable(nil))
}

func TestBuildWPTable(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	table := BuildWPTable(out)
	require.NotEmpty(t, table)
	for _, r := range table {
		assert.Equal(t, awayID, r.Winner)
		assert.Equal(t, boolInt(r.Posteam == awayID), r.Label)
	}

	tie := apiGame(2, driveFixture{half: 1, team: homeID, plays: []RawEvent{
		snap("Rush for 3 yards", 1, 20, homeID, 3),
		snap("Rush for 2 yards", 2, 23, homeID, 2),
	}})
	out, _ = derived(tie)
	for _, r := range BuildWPTable(out) {
		assert.Equal(t, TieMarker, r.Winner)
		assert.Zero(t, r.Label)
	}
}

func TestBuildWPTable_LeavesMissingValuesEmpty(t *testing.T) {
	out, _ := derived(pickSixGame(1))

	table := BuildWPTable(out)
	require.NotEmpty(t, table)
	for _, r := range table {
		assert.Nil(t, r.EP, "play %d", r.PlayID)
	}

	kickoff := labeled(1, 1, EventNoScore, 1, 0)
	kickoff.Posteam = validString(homeID)
	kickoff.HomeTeam, kickoff.AwayTeam = homeID, awayID
	kickoff.Down = sql.NullInt64{}
	try := labeled(2, 1, EventNoScore, 1, 0)
	try.Posteam = validString(homeID)
	try.HomeTeam, try.AwayTeam = homeID, awayID
	try.Down = validInt(0)
	try.EP = validFloat(0.4)
	try.DiffTimeRatio = validFloat(-1.5)

	table = BuildWPTable([]*Play{kickoff, try})
	require.Len(t, table, 2)
	assert.Nil(t, table[0].Down)
	assert.Nil(t, table[0].DiffTimeRatio)
	require.NotNil(t, table[1].Down)
	assert.Equal(t, int64(0), *table[1].Down)
	require.NotNil(t, table[1].EP)
	assert.InDelta(t, 0.4, *table[1].EP, 1e-9)
	assert.InDelta(t, -1.5, *table[1].DiffTimeRatio, 1e-9)
}
