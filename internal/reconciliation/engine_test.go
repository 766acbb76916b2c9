package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/apollo/internal/pbp"
)

func game(reportedHome, reportedAway, home, away int) []*pbp.Play {
	m := pbp.Match{GameID: 9, HomeScore: reportedHome, AwayScore: reportedAway}
	return []*pbp.Play{
		{GameID: 9, Match: m},
		{GameID: 9, Match: m, HomeTeamScore: home, AwayTeamScore: away},
	}
}

func TestCheckGame(t *testing.T) {
	e := NewEngine(0)

	assert.Nil(t, e.CheckGame(game(14, 7, 14, 7)))

	conflict := e.CheckGame(game(21, 7, 14, 7))
	require.NotNil(t, conflict)
	assert.Equal(t, 9, conflict.GameID)
	assert.Equal(t, 21, conflict.ReportedHome)
	assert.Equal(t, 14, conflict.DerivedHome)
	assert.Contains(t, conflict.Error(), "derived score 14-7 differs from reported 21-7")

	// no reported result
	assert.Nil(t, e.CheckGame(game(0, 0, 3, 0)))
	assert.Nil(t, e.CheckGame(nil))

	m := e.GetMetrics()
	assert.Equal(t, 2, m.Checked)
	assert.Equal(t, 1, m.Conflicts)

	e.ResetMetrics()
	assert.Zero(t, e.GetMetrics().Checked)
}

func TestCheckGame_Tolerance(t *testing.T) {
	e := NewEngine(2)
	assert.Nil(t, e.CheckGame(game(16, 7, 14, 7)))
	assert.NotNil(t, e.CheckGame(game(17, 7, 14, 7)))
}
