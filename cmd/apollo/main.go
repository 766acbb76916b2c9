package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/apollo/internal/api/rest"
	"github.com/fortuna/apollo/internal/api/websocket"
	"github.com/fortuna/apollo/internal/backfill"
	"github.com/fortuna/apollo/internal/cache"
	"github.com/fortuna/apollo/internal/config"
	"github.com/fortuna/apollo/internal/ingest/sportapp"
	"github.com/fortuna/apollo/internal/logging"
	"github.com/fortuna/apollo/internal/model"
	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/publisher"
	"github.com/fortuna/apollo/internal/scheduler"
	"github.com/fortuna/apollo/internal/store"
	"github.com/fortuna/apollo/internal/store/repository"
)

const (
	serviceName    = "apollo"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.Component("main")
	log.WithField("version", serviceVersion).Infof("Starting %s - play-by-play analytics service", serviceName)

	db, err := store.NewDatabase(cfg.DatabaseURL, logging.Component("store"))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}
	log.Info("Database migrations applied")

	redisCache := connectRedis(cfg, log)
	defer redisCache.Close()

	client := sportapp.NewClient(sportapp.ClientConfig{
		BaseURL:    cfg.SportAppBase,
		APIKey:     cfg.SportAppKey,
		RatePerSec: cfg.SportAppRatePerSec,
		Timeout:    cfg.SportAppTimeout,
	}, logging.Component("sportapp"))
	ingester := sportapp.NewIngester(client, redisCache, cfg.FetchWorkers, logging.Component("ingest"))

	var (
		predictor   pbp.Predictor
		modelClient *model.Client
	)
	if cfg.ModelURL != "" {
		modelClient = model.NewClient(cfg.ModelURL, cfg.ModelTimeout, logging.Component("model"))
		predictor = modelClient
		log.WithField("url", cfg.ModelURL).Info("Model service configured")
	} else {
		log.Warn("MODEL_URL not set, games are stored without EP/WP")
	}

	runner := backfill.NewRunner(backfill.RunnerDeps{
		Fetcher:   ingester,
		Plays:     repository.NewPlayRepository(db),
		Rosters:   repository.NewPlayerRepository(db),
		Tables:    repository.NewModelTableRepository(db),
		Predictor: predictor,
		Publisher: publisher.NewRedisStreamPublisher(redisCache.Client()),
		Rules:     cfg.ConversionRules(),
	}, logging.Component("runner"))

	jobs := backfill.NewService(db, runner, logging.Component("jobs"))
	jobs.Start()
	log.Info("Ingest job service started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.Orchestrator
	if cfg.EnableScheduler {
		schedCfg := scheduler.DefaultConfig()
		schedCfg.Schedule = cfg.ScheduleCron
		schedCfg.GameIDs = cfg.ScheduleGameIDs
		sched = scheduler.NewOrchestrator(jobs, schedCfg, logging.Component("scheduler"))
		if err := sched.Start(ctx); err != nil {
			log.WithError(err).Fatal("Failed to start scheduler")
		}
		log.WithField("schedule", cfg.ScheduleCron).Info("Scheduler started")
	}

	checks := map[string]rest.HealthChecker{
		"postgres": func(context.Context) error { return db.HealthCheck() },
		"redis":    redisCache.HealthCheck,
	}
	if modelClient != nil {
		checks["model"] = modelClient.HealthCheck
	}

	restServer := rest.NewServer(cfg.RESTPort, rest.NewHandler(db, checks), jobs)
	go func() {
		log.WithField("port", cfg.RESTPort).Info("Starting REST API server")
		if err := restServer.Start(); err != nil {
			log.WithError(err).Warn("REST server stopped")
		}
	}()

	wsServer := websocket.NewServer(redisCache.Client(), logging.Component("websocket"))
	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil {
			log.WithError(err).Warn("WebSocket server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully")
	cancel()
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("REST API server shutdown error")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("WebSocket server shutdown error")
	}
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Job service shutdown error")
	}

	log.Info("Apollo stopped")
}

// connectRedis retries while the cache container comes up
func connectRedis(cfg *config.Config, log *logrus.Entry) *cache.RedisCache {
	const maxRetries = 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.RawCacheTTL)
		if err == nil {
			log.Info("Connected to Redis")
			return redisCache
		}
		log.WithError(err).WithField("attempt", i+1).Warn("Redis connection failed, retrying")
		time.Sleep(retryDelay)
	}
	log.Fatalf("Failed to connect to Redis after %d attempts", maxRetries)
	return nil
}
