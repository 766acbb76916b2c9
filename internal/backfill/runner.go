package backfill

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/publisher"
	"github.com/fortuna/apollo/internal/reconciliation"
	"github.com/fortuna/apollo/internal/store"
)

// GameFetcher loads normalized games and team rosters from the API.
type GameFetcher interface {
	FetchGames(ctx context.Context, ids []int) ([]*pbp.Play, *pbp.RunSummary)
	FetchRosters(ctx context.Context, teamIDs []string) ([]*store.Roster, *pbp.RunSummary)
}

// PlayStore persists derived games.
type PlayStore interface {
	ReplaceGame(ctx context.Context, game []*pbp.Play, status string) error
	ListAll(ctx context.Context) ([]*pbp.Play, error)
}

// RosterStore persists team rosters.
type RosterStore interface {
	ReplaceRoster(ctx context.Context, roster *store.Roster) error
}

// TableStore persists the model training tables.
type TableStore interface {
	ReplaceEP(ctx context.Context, rows []pbp.EPRow) error
	ReplaceWP(ctx context.Context, rows []pbp.WPRow) error
}

// GamePublisher announces stored games.
type GamePublisher interface {
	PublishGame(ctx context.Context, event publisher.GameEvent) error
}

// RunnerDeps wires a Runner. Predictor and Publisher may be nil: games are
// then stored without EP/WP columns or without an announcement.
type RunnerDeps struct {
	Fetcher   GameFetcher
	Plays     PlayStore
	Rosters   RosterStore
	Tables    TableStore
	Predictor pbp.Predictor
	Publisher GamePublisher
	Rules     pbp.ConversionRules
}

// Runner executes job specs: fetch, derive, score with the model, store.
type Runner struct {
	deps   RunnerDeps
	scores *reconciliation.Engine
	log    *logrus.Entry
}

// NewRunner constructs a runner.
func NewRunner(deps RunnerDeps, log *logrus.Entry) *Runner {
	return &Runner{deps: deps, scores: reconciliation.NewEngine(0), log: log}
}

// Run executes the job spec, reporting progress via the Reporter if provided.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) (*pbp.RunSummary, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}
	reporter.OnJobStart(spec)

	if spec.DryRun {
		reporter.OnProgress("Dry-run mode: no data will be written", 0, 0)
		summary := &pbp.RunSummary{}
		reporter.OnJobComplete(summary)
		return summary, nil
	}

	var (
		summary *pbp.RunSummary
		err     error
	)
	switch spec.Type {
	case JobTypeGames:
		summary, err = r.runGames(ctx, spec, reporter)
	case JobTypeRebuildTables:
		summary, err = r.RebuildTables(ctx, reporter)
	default:
		err = fmt.Errorf("unsupported job type %s", spec.Type)
	}
	if err != nil {
		reporter.OnJobError(err)
		return summary, err
	}

	reporter.OnJobComplete(summary)
	return summary, nil
}

func (r *Runner) runGames(ctx context.Context, spec JobSpec, reporter Reporter) (*pbp.RunSummary, error) {
	if len(spec.GameIDs) == 0 {
		return nil, fmt.Errorf("no game IDs provided for job type '%s'", JobTypeGames)
	}
	if r.deps.Fetcher == nil {
		return nil, fmt.Errorf("no game source configured")
	}

	reporter.OnProgress(fmt.Sprintf("Fetching %d games", len(spec.GameIDs)), 0, len(spec.GameIDs))
	rows, summary := r.deps.Fetcher.FetchGames(ctx, spec.GameIDs)
	for _, skip := range summary.Skipped {
		reporter.OnSkipped(skip)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	source := spec.Source
	if source == "" {
		source = pbp.SourceSportApp
	}
	processed, err := r.Process(ctx, source, rows, reporter)
	summary.Games, summary.Plays = processed.Games, processed.Plays
	summary.Skipped = append(summary.Skipped, processed.Skipped...)
	summary.Notes = append(summary.Notes, processed.Notes...)
	if err != nil {
		return summary, err
	}

	if spec.Rosters {
		summary.Skipped = append(summary.Skipped, r.storeRosters(ctx, rows, reporter)...)
	}
	return summary, nil
}

// Process derives, scores and stores normalized rows of one source. Games
// the pipeline drops are reported and skipped; a storage failure aborts.
func (r *Runner) Process(ctx context.Context, source pbp.Source, rows []*pbp.Play, reporter Reporter) (*pbp.RunSummary, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}

	pipeline := pbp.NewPipeline(source, r.deps.Rules, r.log)
	out, summary := pipeline.Run(ctx, rows, r.deps.Predictor)
	for _, skip := range summary.Skipped {
		reporter.OnSkipped(skip)
	}

	status := store.GameStatusDerived
	if r.deps.Predictor != nil {
		status = store.GameStatusEnriched
	}

	games := pbp.SplitGames(out)
	for idx, game := range games {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		gameID := game[0].GameID

		// only the API reports a final result to compare against
		if source == pbp.SourceSportApp {
			if conflict := r.scores.CheckGame(game); conflict != nil {
				r.log.WithField("game_id", gameID).Warn(conflict.Error())
				summary.Note(conflict)
			}
		}

		if err := r.deps.Plays.ReplaceGame(ctx, game, status); err != nil {
			return summary, fmt.Errorf("store game %d: %w", gameID, err)
		}
		if r.deps.Publisher != nil {
			if err := r.deps.Publisher.PublishGame(ctx, publisher.NewGameEvent(game, status == store.GameStatusEnriched)); err != nil {
				r.log.WithError(err).WithField("game_id", gameID).Warn("failed to publish game")
			}
		}

		reporter.OnGameProcessed(gameID)
		reporter.OnProgress(fmt.Sprintf("Game %d stored (%d plays)", gameID, len(game)), idx+1, len(games))
	}

	r.log.WithFields(logrus.Fields{
		"source":          string(source),
		"games":           summary.Games,
		"plays":           summary.Plays,
		"skipped":         len(summary.Skipped),
		"score_conflicts": r.scores.GetMetrics().Conflicts,
	}).Info("Processed games")
	return summary, nil
}

func (r *Runner) storeRosters(ctx context.Context, rows []*pbp.Play, reporter Reporter) []pbp.Skip {
	if r.deps.Rosters == nil {
		return nil
	}

	rosters, summary := r.deps.Fetcher.FetchRosters(ctx, teamsOf(rows))
	for _, skip := range summary.Skipped {
		reporter.OnSkipped(skip)
	}
	for _, roster := range rosters {
		if err := r.deps.Rosters.ReplaceRoster(ctx, roster); err != nil {
			r.log.WithError(err).WithField("team_id", roster.Team.TeamID).Warn("failed to store roster")
			summary.SkipTeam(roster.Team.TeamID, err)
			continue
		}
		reporter.OnProgress(fmt.Sprintf("Roster of team %s stored", roster.Team.TeamID), 0, 0)
	}
	return summary.Skipped
}

// RebuildTables regenerates both model tables from every stored play.
func (r *Runner) RebuildTables(ctx context.Context, reporter Reporter) (*pbp.RunSummary, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}

	rows, err := r.deps.Plays.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load plays: %w", err)
	}
	reporter.OnProgress(fmt.Sprintf("Building model tables from %d plays", len(rows)), 0, 2)

	ep := pbp.BuildEPTable(rows)
	if err := r.deps.Tables.ReplaceEP(ctx, ep); err != nil {
		return nil, fmt.Errorf("store ep table: %w", err)
	}
	reporter.OnProgress(fmt.Sprintf("EP table stored (%d rows)", len(ep)), 1, 2)

	wp := pbp.BuildWPTable(rows)
	if err := r.deps.Tables.ReplaceWP(ctx, wp); err != nil {
		return nil, fmt.Errorf("store wp table: %w", err)
	}
	reporter.OnProgress(fmt.Sprintf("WP table stored (%d rows)", len(wp)), 2, 2)

	return &pbp.RunSummary{Games: len(pbp.SplitGames(rows)), Plays: len(rows)}, nil
}

// teamsOf lists the known teams of rows in first-seen order.
func teamsOf(rows []*pbp.Play) []string {
	seen := make(map[string]bool)
	var teams []string
	for _, p := range rows {
		for _, team := range []string{p.HomeTeam, p.AwayTeam} {
			if team == "" || team == "Unknown" || seen[team] {
				continue
			}
			seen[team] = true
			teams = append(teams, team)
		}
	}
	return teams
}

type nopReporter struct{}

func (nopReporter) OnJobStart(JobSpec) {}
func (nopReporter) OnGameProcessed(int) {}
func (nopReporter) OnSkipped(pbp.Skip) {}
func (nopReporter) OnProgress(string, int, int) {}
func (nopReporter) OnJobComplete(*pbp.RunSummary) {}
func (nopReporter) OnJobError(error) {}
