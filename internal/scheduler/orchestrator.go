package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fortuna/apollo/internal/backfill"
)

// Enqueuer queues ingest jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error)
}

// Orchestrator queues the periodic refresh of configured games
type Orchestrator struct {
	jobs   Enqueuer
	config *Config
	cron   *cron.Cron
	log    *logrus.Entry

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	lastRun time.Time
	lastErr error
}

// Config holds scheduler configuration
type Config struct {
	Schedule      string        // cron expression, default "0 3 * * *"
	GameIDs       []int         // games refreshed on every run
	RebuildTables bool          // queue a model table rebuild after the refresh
	Timeout       time.Duration // bound on queueing one run
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		Schedule:      "0 3 * * *",
		RebuildTables: true,
		Timeout:       30 * time.Second,
	}
}

// NewOrchestrator creates a new scheduler orchestrator
func NewOrchestrator(jobs Enqueuer, config *Config, log *logrus.Entry) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Orchestrator{
		jobs:   jobs,
		config: config,
		cron:   cron.New(),
		log:    log,
	}
}

// Start registers the refresh and starts the cron runner
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("scheduler is already running")
	}

	if _, err := o.cron.AddFunc(o.config.Schedule, o.refresh); err != nil {
		return fmt.Errorf("failed to schedule refresh %q: %w", o.config.Schedule, err)
	}

	o.ctx, o.cancel = context.WithCancel(ctx)
	o.cron.Start()
	o.running = true

	o.log.WithFields(logrus.Fields{
		"schedule": o.config.Schedule,
		"games":    len(o.config.GameIDs),
	}).Info("Scheduler started")
	return nil
}

// Stop gracefully stops the scheduler
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.cancel()
	o.running = false
	o.mu.Unlock()

	// a refresh in flight still needs the lock to finish
	<-o.cron.Stop().Done()
	o.log.Info("Scheduler stopped")
}

func (o *Orchestrator) refresh() {
	o.mu.Lock()
	ctx := o.ctx
	o.mu.Unlock()

	if err := o.TriggerRefresh(ctx); err != nil {
		o.log.WithError(err).Error("Scheduled refresh failed")
	}
}

// TriggerRefresh queues the refresh jobs now
func (o *Orchestrator) TriggerRefresh(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	err := o.enqueue(ctx)

	o.mu.Lock()
	o.lastRun, o.lastErr = time.Now(), err
	o.mu.Unlock()
	return err
}

func (o *Orchestrator) enqueue(ctx context.Context) error {
	if len(o.config.GameIDs) == 0 {
		o.log.Warn("No games configured for refresh")
		return nil
	}

	job, err := o.jobs.Enqueue(ctx, backfill.Request{GameIDs: o.config.GameIDs})
	if err != nil {
		return fmt.Errorf("queue refresh of %d games: %w", len(o.config.GameIDs), err)
	}
	o.log.WithField("job_id", job.JobID).Info("Queued game refresh")

	if !o.config.RebuildTables {
		return nil
	}
	job, err = o.jobs.Enqueue(ctx, backfill.Request{RebuildTables: true})
	if err != nil {
		return fmt.Errorf("queue table rebuild: %w", err)
	}
	o.log.WithField("job_id", job.JobID).Info("Queued model table rebuild")
	return nil
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := map[string]interface{}{
		"running":        o.running,
		"schedule":       o.config.Schedule,
		"game_ids":       o.config.GameIDs,
		"rebuild_tables": o.config.RebuildTables,
	}
	if !o.lastRun.IsZero() {
		status["last_run"] = o.lastRun
	}
	if o.lastErr != nil {
		status["last_error"] = o.lastErr.Error()
	}
	if o.running {
		if entries := o.cron.Entries(); len(entries) > 0 {
			status["next_run"] = entries[0].Next
		}
	}
	return status
}
