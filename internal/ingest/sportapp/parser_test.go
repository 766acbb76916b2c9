package sportapp

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/apollo/internal/pbp"
)

const drivesDoc = `[
  {"num": 0, "drives": [
    {"team": {"id": 20, "threeLetters": "AWY"}, "yards": 12, "timeOfPossession": "02:10",
     "eventGroups": [
       {"summary": "#7 John Smith rush for 12 yards, touchdown", "actionTitle": "Touchdown",
        "down": 2, "downLabel": "2nd & 7", "target": 7, "nextDown": null, "nextTarget": "",
        "startYardLine": {"yardLine": 12, "team": 10}, "endYardLine": {"yardLine": 0, "team": 10}},
       {"summary": "#7 John Smith rush for 3 yards", "actionTitle": "",
        "down": 1, "downLabel": "1st & 10", "target": "10", "nextDown": 2, "nextTarget": 7,
        "startYardLine": {"yardLine": 15, "team": 10}, "endYardLine": {"yardLine": 12, "team": 10}}
     ]},
    {"team": {"id": 10, "threeLetters": "HOM"}, "yards": 0,
     "eventGroups": [
       {"summary": "#12 Matti Virtanen pass incomplete", "down": 1, "downLabel": "1st & 10", "target": "G",
        "startYardLine": {"yardLine": 20, "team": 10}, "endYardLine": {"yardLine": 20, "team": 10}}
     ]}
  ]},
  {"num": 1, "drives": []}
]`

const matchDoc = `{
  "series": {"id": 77, "region": "Etelä", "level": "Vaahteraliiga", "seasonName": "2024",
             "phase": "regular", "groupId": 3, "groupName": "A"},
  "streams": [{"url": "https://stream.example/1"}],
  "home": {"id": 10}, "away": {"id": 20},
  "result": {"details": {"points_total_home": 0, "points_total_away": 6}}
}`

func TestParseGame(t *testing.T) {
	plays, notes, err := ParseGame(5, []byte(drivesDoc), []byte(matchDoc))
	require.NoError(t, err)
	assert.Empty(t, notes)
	require.Len(t, plays, 3)

	td := plays[0]
	assert.Equal(t, pbp.SourceSportApp, td.Source)
	assert.Equal(t, 5, td.GameID)
	assert.Equal(t, 1, td.Half)
	assert.Equal(t, "10", td.HomeTeam)
	assert.Equal(t, "20", td.AwayTeam)
	assert.Equal(t, 1, td.Raw.DriveIDHalf)
	assert.Equal(t, 1, td.Raw.PlayIDDrive)
	assert.Equal(t, "20", td.Raw.Team)
	assert.Equal(t, "AWY", td.Raw.TeamAbbr)
	assert.Equal(t, "7", td.Raw.YardsToGo)
	assert.Equal(t, "10", td.Raw.StartSide)
	assert.Equal(t, int64(12), td.Raw.DriveYards.Int64)
	assert.False(t, td.Raw.DownAfter.Valid)
	assert.Equal(t, "7", td.Rusher)

	assert.Equal(t, 2, plays[1].Raw.PlayIDDrive)
	assert.Equal(t, "10", plays[1].Raw.YardsToGo)

	incomplete := plays[2]
	assert.Equal(t, 2, incomplete.Raw.DriveIDHalf)
	assert.Equal(t, "G", incomplete.Raw.YardsToGo)
	assert.Equal(t, "12", incomplete.Passer)
	assert.Equal(t, "HOM", incomplete.Raw.TeamAbbr)
	assert.Empty(t, incomplete.Raw.PossessionTime)
	assert.Empty(t, incomplete.Raw.DownAfterDesc)

	m := td.Match
	assert.Equal(t, 77, m.CompetitionID)
	assert.Equal(t, "Etelä", m.CompetitionName)
	assert.Equal(t, "Vaahteraliiga", m.CompetitionLeague)
	assert.Equal(t, "2024", m.Season)
	assert.Equal(t, "https://stream.example/1", m.StreamURL)
	assert.Equal(t, 6, m.AwayScore)
}

func TestParseMatch_MissingResultIsANote(t *testing.T) {
	match, notes, err := ParseMatch(9, []byte(`{"home": {"id": 1}}`))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	var missing *pbp.MissingFieldError
	require.True(t, errors.As(notes[0], &missing))
	assert.Equal(t, "result", missing.Field)
	assert.Zero(t, match.HomeScore)
	assert.Equal(t, "1", match.HomeTeam)
	assert.Equal(t, "Unknown", match.AwayTeam)
	assert.Equal(t, "Unknown", match.StreamURL)
}

func TestParseGame_Failures(t *testing.T) {
	_, _, err := ParseGame(1, []byte(`<html>`), []byte(matchDoc))
	var malformed *pbp.MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, EndpointDrives, malformed.Endpoint)

	_, _, err = ParseGame(1, []byte(`<html><head><title>Service Unavailable</title></head><body>back soon</body></html>`), []byte(matchDoc))
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, err.Error(), `"Service Unavailable"`)

	_, _, err = ParseGame(1, []byte(`{"error": "not found"}`), []byte(matchDoc))
	var missing *pbp.MissingGameDataError
	assert.True(t, errors.As(err, &missing))

	_, _, err = ParseGame(1, []byte(`[{"num": 0, "drives": []}]`), []byte(matchDoc))
	assert.True(t, errors.As(err, &missing))

	_, _, err = ParseGame(1, []byte(drivesDoc), []byte(`[]`))
	assert.True(t, errors.As(err, &missing))
}

func TestDecodeFailure_TruncatesByRune(t *testing.T) {
	title := strings.Repeat("ä", 100)
	err := decodeFailure([]byte("<html><head><title>"+title+"</title></head></html>"), errors.New("bad json"))
	require.Error(t, err)

	quoted := strings.TrimPrefix(err.Error(), "got an HTML page instead of JSON: ")
	text, uerr := strconv.Unquote(quoted)
	require.NoError(t, uerr)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, strings.Repeat("ä", maxPageText), text)

	assert.EqualError(t, decodeFailure([]byte("nope"), errors.New("bad json")), "bad json")
}

func TestExtractPlayers(t *testing.T) {
	p := ExtractPlayers("#12 Matti Virtanen pass complete to #81 Juho Laine for 9 yards, tackled by #23 Erik Berg")
	assert.Equal(t, "12", p.Passer)
	assert.Equal(t, "81", p.Receiver)
	assert.Equal(t, "23", p.Tackler)
	assert.Empty(t, p.Rusher)

	p = ExtractPlayers("#12 Matti Virtanen pass intercepted to #4 Ville Koski")
	assert.Equal(t, "4", p.Interceptor)

	p = ExtractPlayers("#12 Matti Virtanen sacked by #91 Aku Salo for -6 yards")
	assert.Equal(t, "91", p.Sacker)

	assert.Equal(t, pbp.Players{}, ExtractPlayers("Timeout home"))
}

func TestParseRoster(t *testing.T) {
	roster, err := ParseRoster("10", []byte(`[{"id": 10, "name": "Helsinki Roosters", "players": [
		{"id": 501, "name": "Matti Virtanen", "uniform_number": "12", "position": "QB", "club": "Roosters"},
		{"id": 502, "name": "Juho Laine", "uniform_number": 81, "position": "", "club": "Roosters"}
	]}]`))
	require.NoError(t, err)
	assert.Equal(t, "10", roster.Team.TeamID)
	assert.Equal(t, "Helsinki Roosters", roster.Team.Name)
	require.Len(t, roster.Players, 2)
	assert.Equal(t, "501", roster.Players[0].PlayerID)
	assert.Equal(t, "12", roster.Players[0].JerseyNumber.String)
	assert.Equal(t, "81", roster.Players[1].JerseyNumber.String)
	assert.False(t, roster.Players[1].Position.Valid)

	for _, body := range []string{`not json`, `[]`, `{"id": 10}`, `[{"id": 10}]`} {
		_, err := ParseRoster("10", []byte(body))
		var malformed *pbp.MalformedResponseError
		assert.True(t, errors.As(err, &malformed), body)
	}
}
