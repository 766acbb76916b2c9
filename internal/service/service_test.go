package service

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
)

func play(team string, players pbp.Players, epa float64) *pbp.Play {
	p := pbp.NewPlay(pbp.SourceSportApp, pbp.Match{GameID: 1, HomeTeam: "10", AwayTeam: "20"}, 1, pbp.RawEvent{Team: team})
	p.Players = players
	p.EPA = sql.NullFloat64{Float64: epa, Valid: true}
	return p
}

func TestBuildBoxScore(t *testing.T) {
	plays := []*pbp.Play{
		play("10", pbp.Players{Passer: "12", Receiver: "81", Tackler: "23"}, 1.5),
		play("10", pbp.Players{Rusher: "7", Tackler: "23"}, -0.5),
		play("10", pbp.Players{Passer: "12", Interceptor: "4"}, -3),
		play("20", pbp.Players{Passer: "9", Sacker: "91"}, -1),
	}
	rosters := []*store.Roster{{
		Team: store.Team{TeamID: "10"},
		Players: []*store.Player{
			{PlayerID: "501", Name: "Matti Virtanen", JerseyNumber: sql.NullString{String: "12", Valid: true}},
		},
	}}

	home, away := BuildBoxScore(plays, rosters)

	require.Len(t, home, 4)
	assert.Equal(t, []string{"7", "12", "81", "91"}, jerseys(home))
	qb := home[1]
	assert.Equal(t, "Matti Virtanen", qb.Name)
	assert.Equal(t, "501", qb.PlayerID)
	assert.Equal(t, 2, qb.Passes)
	assert.InDelta(t, -1.5, qb.EPA, 1e-9)
	assert.InDelta(t, -0.5, home[0].EPA, 1e-9)
	assert.Equal(t, 1, home[3].Sacks)

	require.Len(t, away, 3)
	assert.Equal(t, []string{"4", "9", "23"}, jerseys(away))
	assert.Equal(t, 2, away[2].Tackles)
	assert.Equal(t, 1, away[0].Interceptions)
	assert.Empty(t, away[2].Name)

	home, away = BuildBoxScore(nil, nil)
	assert.Nil(t, home)
	assert.Nil(t, away)
}

func jerseys(lines []*PlayerLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Jersey
	}
	return out
}

func TestBuildWPSeries(t *testing.T) {
	first := play("10", pbp.Players{}, 0)
	first.PlayID = 1
	first.HomeWPPost = sql.NullFloat64{Float64: 0.55, Valid: true}
	first.AwayWPPost = sql.NullFloat64{Float64: 0.45, Valid: true}
	first.WPA = sql.NullFloat64{Float64: 0.05, Valid: true}

	unknown := play("10", pbp.Players{}, 0)
	unknown.PlayID = 2

	last := play("20", pbp.Players{}, 0)
	last.PlayID = 3
	last.ScoringPlay = 1
	last.AwayTeamScore = 6
	last.HomeWPPost = sql.NullFloat64{Float64: 0.2, Valid: true}

	series := BuildWPSeries([]*pbp.Play{first, unknown, last})
	require.Len(t, series, 2)
	assert.Equal(t, 1, series[0].PlayID)
	assert.InDelta(t, 0.45, series[0].AwayWP, 1e-9)
	assert.InDelta(t, 0.05, series[0].WPA, 1e-9)
	assert.Equal(t, 3, series[1].PlayID)
	assert.InDelta(t, 0.8, series[1].AwayWP, 1e-9)
	assert.True(t, series[1].Scoring)
	assert.Equal(t, 6, series[1].AwayScore)
}
