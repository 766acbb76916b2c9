// Command apollo-backfill fetches, imports and rebuilds play-by-play data
// outside the running service.
//
// Usage:
//
//	apollo-backfill games 2151 2152
//	apollo-backfill games --stored
//	apollo-backfill import hudl export.csv
//	apollo-backfill import dsfootball season.csv --dry-run
//	apollo-backfill rebuild-tables
//	apollo-backfill export ep ep_rows.csv
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fortuna/apollo/internal/backfill"
	"github.com/fortuna/apollo/internal/cache"
	"github.com/fortuna/apollo/internal/config"
	"github.com/fortuna/apollo/internal/ingest/sportapp"
	"github.com/fortuna/apollo/internal/ingest/tabular"
	"github.com/fortuna/apollo/internal/logging"
	"github.com/fortuna/apollo/internal/model"
	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/publisher"
	"github.com/fortuna/apollo/internal/store"
	"github.com/fortuna/apollo/internal/store/repository"
)

const (
	appName    = "apollo-backfill"
	appVersion = "1.0.0"
)

var log = logrus.NewEntry(logrus.StandardLogger())

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:     appName,
		Short:   "Apollo play-by-play ingestion CLI",
		Version: appVersion,
	}

	root.AddCommand(gamesCmd())
	root.AddCommand(importCmd())
	root.AddCommand(rebuildTablesCmd())
	root.AddCommand(exportCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func gamesCmd() *cobra.Command {
	var stored, dryRun, skipRosters bool
	cmd := &cobra.Command{
		Use:   "games [game-id...]",
		Short: "Fetch games from SportApp, derive, score and store them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, env *runEnv) error {
				ids := make([]int, 0, len(args))
				for _, arg := range args {
					id, err := strconv.Atoi(arg)
					if err != nil || id <= 0 {
						return fmt.Errorf("invalid game id %q", arg)
					}
					ids = append(ids, id)
				}
				if stored {
					existing, err := repository.NewGameRepository(env.db).IDs(ctx)
					if err != nil {
						return err
					}
					ids = append(ids, existing...)
				}
				ids = pbp.UniqueGameIDs(ids)
				if len(ids) == 0 {
					return fmt.Errorf("specify game ids or --stored")
				}

				spec := backfill.JobSpec{
					Type:    backfill.JobTypeGames,
					Source:  pbp.SourceSportApp,
					GameIDs: ids,
					Rosters: !skipRosters,
					DryRun:  dryRun,
				}
				summary, err := env.runner.Run(ctx, spec, &consoleReporter{})
				report(summary)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "Refresh every game already in the database")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run (do not fetch or write)")
	cmd.Flags().BoolVar(&skipRosters, "no-rosters", false, "Do not refresh team rosters")
	return cmd
}

func importCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:       "import <hudl|dsfootball> <file>",
		Short:     "Import a tabular play-by-play export",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(pbp.SourceHudl), string(pbp.SourceDSFootball)},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := pbp.Source(args[0])
			rows, read, err := readExport(source, args[1])
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"source":  source,
				"rows":    len(rows),
				"skipped": len(read.Skipped),
			}).Info("Read export")

			if dryRun {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				_, summary := pbp.NewPipeline(source, cfg.ConversionRules(), log).Derive(rows)
				summary.Merge(read)
				report(summary)
				return nil
			}

			return withEnv(func(ctx context.Context, env *runEnv) error {
				summary, err := env.runner.Process(ctx, source, rows, &consoleReporter{})
				if summary != nil {
					summary.Merge(read)
				}
				report(summary)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Derive only, print the summary and write nothing")
	return cmd
}

func rebuildTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-tables",
		Short: "Rebuild the EP and WP model tables from stored plays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, env *runEnv) error {
				summary, err := env.runner.RebuildTables(ctx, &consoleReporter{})
				report(summary)
				return err
			})
		},
	}
}

func exportCmd() *cobra.Command {
	const pageSize = 5000
	return &cobra.Command{
		Use:       "export <ep|wp> <file>",
		Short:     "Write a stored model table to CSV",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"ep", "wp"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, env *runEnv) error {
				tables := repository.NewModelTableRepository(env.db)

				f, err := os.Create(args[1])
				if err != nil {
					return err
				}
				defer f.Close()

				var n int
				switch args[0] {
				case "ep":
					var all []pbp.EPRow
					for offset := 0; ; offset += pageSize {
						page, err := tables.ListEP(ctx, pageSize, offset)
						if err != nil {
							return err
						}
						all = append(all, page...)
						if len(page) < pageSize {
							break
						}
					}
					n = len(all)
					err = gocsv.MarshalFile(&all, f)
				case "wp":
					var all []pbp.WPRow
					for offset := 0; ; offset += pageSize {
						page, err := tables.ListWP(ctx, pageSize, offset)
						if err != nil {
							return err
						}
						all = append(all, page...)
						if len(page) < pageSize {
							break
						}
					}
					n = len(all)
					err = gocsv.MarshalFile(&all, f)
				default:
					return fmt.Errorf("unknown table %q, want ep or wp", args[0])
				}
				if err != nil {
					return fmt.Errorf("write %s: %w", args[1], err)
				}

				log.WithFields(logrus.Fields{"table": args[0], "rows": n, "file": args[1]}).Info("Exported table")
				return nil
			})
		},
	}
}

func readExport(source pbp.Source, path string) ([]*pbp.Play, *pbp.RunSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	switch source {
	case pbp.SourceHudl:
		return tabular.ReadHudl(f)
	case pbp.SourceDSFootball:
		return tabular.ReadDSFootball(f)
	}
	return nil, nil, fmt.Errorf("unknown source %q, want hudl or dsfootball", source)
}

// runEnv is everything a command needs to touch the database
type runEnv struct {
	cfg    *config.Config
	db     *store.Database
	runner *backfill.Runner
}

// withEnv loads config, connects and migrates the database and wires a
// runner. Redis is optional: without it documents are not cached and games
// are not announced.
func withEnv(fn func(ctx context.Context, env *runEnv) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log = logging.Component("cli")

	db, err := store.NewDatabase(cfg.DatabaseURL, logging.Component("store"))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	deps := backfill.RunnerDeps{
		Plays:   repository.NewPlayRepository(db),
		Rosters: repository.NewPlayerRepository(db),
		Tables:  repository.NewModelTableRepository(db),
		Rules:   cfg.ConversionRules(),
	}

	var raw sportapp.RawCache
	if redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.RawCacheTTL); err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache or stream")
	} else {
		defer redisCache.Close()
		raw = redisCache
		deps.Publisher = publisher.NewRedisStreamPublisher(redisCache.Client())
	}

	client := sportapp.NewClient(sportapp.ClientConfig{
		BaseURL:    cfg.SportAppBase,
		APIKey:     cfg.SportAppKey,
		RatePerSec: cfg.SportAppRatePerSec,
		Timeout:    cfg.SportAppTimeout,
	}, logging.Component("sportapp"))
	deps.Fetcher = sportapp.NewIngester(client, raw, cfg.FetchWorkers, logging.Component("ingest"))

	if cfg.ModelURL != "" {
		deps.Predictor = model.NewClient(cfg.ModelURL, cfg.ModelTimeout, logging.Component("model"))
	}

	return fn(ctx, &runEnv{
		cfg:    cfg,
		db:     db,
		runner: backfill.NewRunner(deps, logging.Component("runner")),
	})
}

func report(summary *pbp.RunSummary) {
	if summary == nil {
		return
	}
	log.WithFields(logrus.Fields{
		"games":   summary.Games,
		"plays":   summary.Plays,
		"skipped": len(summary.Skipped),
	}).Info("Run summary")
	for _, skip := range summary.Skipped {
		log.WithFields(logrus.Fields{"kind": skip.Kind, "id": skip.ID}).Warn(skip.Reason)
	}
	for _, note := range summary.Notes {
		log.Info(note)
	}
}

type consoleReporter struct{}

func (c *consoleReporter) OnJobStart(spec backfill.JobSpec) {
	log.WithFields(logrus.Fields{"type": spec.Type, "dry_run": spec.DryRun}).Info("Starting job")
}

func (c *consoleReporter) OnGameProcessed(gameID int) {
	log.WithField("game_id", gameID).Info("Processed game")
}

func (c *consoleReporter) OnSkipped(skip pbp.Skip) {
	log.WithFields(logrus.Fields{"kind": skip.Kind, "id": skip.ID}).Warn("Skipped")
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	log.Infof("Progress: %s (%d/%d)", message, current, total)
}

func (c *consoleReporter) OnJobComplete(summary *pbp.RunSummary) {
	log.Info("Job complete")
}

func (c *consoleReporter) OnJobError(err error) {
	log.WithError(err).Error("Job error")
}
