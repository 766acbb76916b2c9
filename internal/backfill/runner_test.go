package backfill

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/apollo/internal/ingest/tabular"
	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/publisher"
	"github.com/fortuna/apollo/internal/store"
)

const export = `game_id,play_id,drive_id,half,posteam,DN,DIST,YARD LN,yardline_50,RESULT
1,1,1,1,LIONS,1,10,-25,25,Rush
1,2,1,1,LIONS,2,4,-31,31,"Rush, TD"
1,3,1,1,LIONS,0,3,45,45,Good
1,4,2,1,BEARS,1,10,-20,20,Incomplete
1,5,3,2,BEARS,1,10,-30,30,Rush
1,6,3,2,BEARS,2,8,-32,32,Incomplete
`

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeFetcher struct {
	rows    []*pbp.Play
	skipped []int
	teams   []string
}

func (f *fakeFetcher) FetchGames(_ context.Context, ids []int) ([]*pbp.Play, *pbp.RunSummary) {
	summary := &pbp.RunSummary{}
	for _, id := range f.skipped {
		summary.SkipGame(id, &pbp.MissingGameDataError{GameID: id, Reason: "drives document has no plays"})
	}
	return f.rows, summary
}

func (f *fakeFetcher) FetchRosters(_ context.Context, teamIDs []string) ([]*store.Roster, *pbp.RunSummary) {
	f.teams = teamIDs
	summary := &pbp.RunSummary{}
	var rosters []*store.Roster
	for _, id := range teamIDs {
		if id == "BEARS" {
			summary.SkipTeam(id, errors.New("no players for team"))
			continue
		}
		rosters = append(rosters, &store.Roster{Team: store.Team{TeamID: id, Name: id}})
	}
	return rosters, summary
}

type fakeStore struct {
	games    map[int][]*pbp.Play
	statuses map[int]string
	rosters  []string
	ep       []pbp.EPRow
	wp       []pbp.WPRow
	fail     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{games: make(map[int][]*pbp.Play), statuses: make(map[int]string)}
}

func (s *fakeStore) ReplaceGame(_ context.Context, game []*pbp.Play, status string) error {
	if s.fail != nil {
		return s.fail
	}
	s.games[game[0].GameID] = game
	s.statuses[game[0].GameID] = status
	return nil
}

func (s *fakeStore) ListAll(context.Context) ([]*pbp.Play, error) {
	var rows []*pbp.Play
	for _, game := range s.games {
		rows = append(rows, game...)
	}
	return rows, nil
}

func (s *fakeStore) ReplaceRoster(_ context.Context, roster *store.Roster) error {
	s.rosters = append(s.rosters, roster.Team.TeamID)
	return nil
}

func (s *fakeStore) ReplaceEP(_ context.Context, rows []pbp.EPRow) error {
	s.ep = rows
	return nil
}

func (s *fakeStore) ReplaceWP(_ context.Context, rows []pbp.WPRow) error {
	s.wp = rows
	return nil
}

type fakePublisher struct {
	events []publisher.GameEvent
}

func (p *fakePublisher) PublishGame(_ context.Context, event publisher.GameEvent) error {
	p.events = append(p.events, event)
	return nil
}

type flatPredictor struct{}

func (flatPredictor) PredictEP(_ context.Context, features []pbp.Features) ([]pbp.EPProbabilities, error) {
	out := make([]pbp.EPProbabilities, len(features))
	for i := range out {
		out[i] = pbp.EPProbabilities{Touchdown: 0.4, OppTouchdown: 0.2, NoScore: 0.4, Valid: true}
	}
	return out, nil
}

func (flatPredictor) PredictWP(_ context.Context, features []pbp.Features) ([]sql.NullFloat64, error) {
	out := make([]sql.NullFloat64, len(features))
	for i := range out {
		out[i] = sql.NullFloat64{Float64: 0.5, Valid: true}
	}
	return out, nil
}

type recorder struct {
	started   bool
	processed []int
	skipped   []pbp.Skip
	summary   *pbp.RunSummary
	err       error
}

func (r *recorder) OnJobStart(JobSpec) { r.started = true }
func (r *recorder) OnGameProcessed(gameID int) { r.processed = append(r.processed, gameID) }
func (r *recorder) OnSkipped(skip pbp.Skip) { r.skipped = append(r.skipped, skip) }
func (r *recorder) OnProgress(string, int, int) {}
func (r *recorder) OnJobComplete(summary *pbp.RunSummary) { r.summary = summary }
func (r *recorder) OnJobError(err error) { r.err = err }

func hudlRows(t *testing.T) []*pbp.Play {
	t.Helper()
	rows, _, err := tabular.ReadHudl(strings.NewReader(export))
	require.NoError(t, err)
	return rows
}

func TestRunner_GamesJob(t *testing.T) {
	fetcher := &fakeFetcher{rows: hudlRows(t), skipped: []int{2}}
	db := newFakeStore()
	pub := &fakePublisher{}
	runner := NewRunner(RunnerDeps{
		Fetcher:   fetcher,
		Plays:     db,
		Rosters:   db,
		Tables:    db,
		Publisher: pub,
		Rules:     pbp.DefaultConversionRules(),
	}, testLogger())

	rec := &recorder{}
	summary, err := runner.Run(context.Background(), JobSpec{Type: JobTypeGames, GameIDs: []int{1, 2}, Rosters: true}, rec)
	require.NoError(t, err)

	assert.True(t, rec.started)
	assert.Equal(t, []int{1}, rec.processed)
	assert.Equal(t, 1, summary.Games)
	assert.Equal(t, 6, summary.Plays)
	assert.Equal(t, []string{"2"}, summary.SkippedGames())
	require.Len(t, rec.skipped, 2)
	assert.Equal(t, "team", rec.skipped[1].Kind)
	assert.Same(t, summary, rec.summary)

	require.Len(t, db.games[1], 6)
	assert.Equal(t, store.GameStatusDerived, db.statuses[1])
	assert.Equal(t, 7, db.games[1][5].HomeTeamScore)
	assert.Equal(t, []string{"LIONS", "BEARS"}, fetcher.teams)
	assert.Equal(t, []string{"LIONS"}, db.rosters)

	require.Len(t, pub.events, 1)
	assert.Equal(t, 1, pub.events[0].GameID)
	assert.False(t, pub.events[0].Enriched)
	assert.Equal(t, 6, pub.events[0].Plays)
}

func TestRunner_NotesScoreConflicts(t *testing.T) {
	rows := hudlRows(t)
	for _, p := range rows {
		p.Match.HomeScore, p.Match.AwayScore = 7, 3
	}
	db := newFakeStore()
	runner := NewRunner(RunnerDeps{Plays: db, Rules: pbp.DefaultConversionRules()}, testLogger())

	summary, err := runner.Process(context.Background(), pbp.SourceSportApp, rows, nil)
	require.NoError(t, err)
	require.Len(t, summary.Notes, 1)
	assert.Contains(t, summary.Notes[0], "derived score 7-0 differs from reported 7-3")
	require.Len(t, db.games[1], 6, "conflicting games are still stored")

	summary, err = runner.Process(context.Background(), pbp.SourceHudl, hudlRows(t), nil)
	require.NoError(t, err)
	assert.Empty(t, summary.Notes)
}

func TestRunner_EnrichesWithPredictor(t *testing.T) {
	db := newFakeStore()
	pub := &fakePublisher{}
	runner := NewRunner(RunnerDeps{
		Plays:     db,
		Predictor: flatPredictor{},
		Publisher: pub,
		Rules:     pbp.DefaultConversionRules(),
	}, testLogger())

	summary, err := runner.Process(context.Background(), pbp.SourceHudl, hudlRows(t), nil)
	require.NoError(t, err)
	assert.Empty(t, summary.Skipped)

	assert.Equal(t, store.GameStatusEnriched, db.statuses[1])
	assert.True(t, db.games[1][0].EP.Valid)
	assert.InDelta(t, 1.2, db.games[1][0].EP.Float64, 1e-9)
	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].Enriched)
}

func TestRunner_RebuildTables(t *testing.T) {
	db := newFakeStore()
	runner := NewRunner(RunnerDeps{
		Plays:     db,
		Tables:    db,
		Predictor: flatPredictor{},
		Rules:     pbp.DefaultConversionRules(),
	}, testLogger())

	_, err := runner.Process(context.Background(), pbp.SourceHudl, hudlRows(t), nil)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), JobSpec{Type: JobTypeRebuildTables}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Games)
	assert.Equal(t, 6, summary.Plays)

	rows, _ := db.ListAll(context.Background())
	assert.Equal(t, pbp.BuildEPTable(rows), db.ep)
	assert.Equal(t, pbp.BuildWPTable(rows), db.wp)
	assert.NotEmpty(t, db.wp)
}

func TestRunner_Failures(t *testing.T) {
	db := newFakeStore()
	db.fail = errors.New("connection reset")
	runner := NewRunner(RunnerDeps{
		Fetcher: &fakeFetcher{rows: hudlRows(t)},
		Plays:   db,
		Rules:   pbp.DefaultConversionRules(),
	}, testLogger())

	rec := &recorder{}
	_, err := runner.Run(context.Background(), JobSpec{Type: JobTypeGames, GameIDs: []int{1}}, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store game 1")
	assert.Equal(t, err, rec.err)
	assert.Nil(t, rec.summary)

	_, err = runner.Run(context.Background(), JobSpec{Type: JobTypeGames}, nil)
	assert.Error(t, err)

	_, err = runner.Run(context.Background(), JobSpec{Type: "season"}, nil)
	assert.ErrorContains(t, err, "unsupported job type")

	summary, err := runner.Run(context.Background(), JobSpec{Type: "season", DryRun: true}, nil)
	assert.NoError(t, err)
	assert.Zero(t, summary.Games)
}

func TestRequest_DeriveType(t *testing.T) {
	jobType, err := Request{GameIDs: []int{1}}.DeriveType()
	require.NoError(t, err)
	assert.Equal(t, JobTypeGames, jobType)

	jobType, err = Request{RebuildTables: true}.DeriveType()
	require.NoError(t, err)
	assert.Equal(t, JobTypeRebuildTables, jobType)

	_, err = Request{}.DeriveType()
	assert.Error(t, err)
}

func TestBuildSpec(t *testing.T) {
	spec, err := buildSpec(&Job{JobType: JobTypeGames, Source: pbp.SourceSportApp, GameIDs: []int64{4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, spec.GameIDs)
	assert.True(t, spec.Rosters)
	assert.Equal(t, 2, specProgressUnits(spec))

	_, err = buildSpec(&Job{JobType: JobTypeGames})
	assert.Error(t, err)

	_, err = buildSpec(&Job{JobType: "date_range"})
	assert.Error(t, err)
}
