package backfill

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
)

// Request represents an ingest invocation request.
type Request struct {
	Source        pbp.Source `json:"source"`
	GameIDs       []int      `json:"game_ids"`
	RebuildTables bool       `json:"rebuild_tables"`
	DryRun        bool       `json:"dry_run"`
}

// DeriveType infers the job type based on populated fields.
func (r Request) DeriveType() (JobType, error) {
	if len(r.GameIDs) > 0 {
		return JobTypeGames, nil
	}
	if r.RebuildTables {
		return JobTypeRebuildTables, nil
	}
	return "", fmt.Errorf("unable to determine job type from request")
}

// Service coordinates job persistence, execution, and status reporting.
type Service struct {
	repo   *Repository
	runner *Runner

	historyLimit int
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// NewService constructs a Service. Call Start to launch workers.
func NewService(db *store.Database, runner *Runner, log *logrus.Entry) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		repo:         NewRepository(db),
		runner:       runner,
		historyLimit: 10,
		pollInterval: 3 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
		log:          log,
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	if err := s.repo.ResetStuckJobs(s.ctx); err != nil {
		s.log.WithError(err).Warn("failed to reset jobs")
	}

	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops workers and waits for completion.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue creates a new job from the provided request.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	if req.Source == "" {
		req.Source = pbp.SourceSportApp
	}
	if req.Source != pbp.SourceSportApp {
		return nil, fmt.Errorf("source %s cannot be fetched, import it from a file instead", req.Source)
	}

	jobType, err := req.DeriveType()
	if err != nil {
		return nil, err
	}

	job := &Job{
		JobType:       jobType,
		Source:        req.Source,
		GameIDs:       pq.Int64Array{},
		Status:        JobStatusQueued,
		StatusMessage: sql.NullString{String: "Queued", Valid: true},
	}

	switch jobType {
	case JobTypeGames:
		ids := pbp.UniqueGameIDs(req.GameIDs)
		for _, id := range ids {
			job.GameIDs = append(job.GameIDs, int64(id))
		}
		job.ProgressTotal = len(ids)
	case JobTypeRebuildTables:
		job.ProgressTotal = 2
	}

	stored, err := s.repo.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}

	_ = s.repo.AppendEvent(ctx, stored.JobID, "queued", "Job queued", nil, nil)
	s.log.WithFields(logrus.Fields{
		"job_id":   stored.JobID,
		"job_type": stored.JobType,
		"games":    len(stored.GameIDs),
	}).Info("Job queued")

	return stored, nil
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus(ctx context.Context) (*StatusSummary, error) {
	active, err := s.repo.GetActiveJob(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListRecentJobs(ctx, s.historyLimit)
	if err != nil {
		return nil, err
	}

	return &StatusSummary{
		ActiveJob: active,
		History:   history,
	}, nil
}

// GetJob returns a single job.
func (s *Service) GetJob(ctx context.Context, jobID int64) (*Job, error) {
	return s.repo.GetJob(ctx, jobID)
}

func (s *Service) worker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			job, err := s.repo.MarkNextJobRunning(s.ctx)
			if err != nil {
				s.log.WithError(err).Error("claim job error")
				time.Sleep(time.Second)
				continue
			}
			if job == nil {
				select {
				case <-s.ctx.Done():
					return
				case <-ticker.C:
					continue
				}
			}

			s.executeJob(job)
		}
	}
}

func (s *Service) executeJob(job *Job) {
	log := s.log.WithFields(logrus.Fields{"job_id": job.JobID, "job_type": job.JobType})

	spec, err := buildSpec(job)
	if err != nil {
		log.WithError(err).Error("invalid job spec")
		_ = s.repo.UpdateStatus(s.ctx, job.JobID, JobStatusFailed, "Invalid job specification", err)
		return
	}

	reporter := &jobReporter{
		ctx:   s.ctx,
		repo:  s.repo,
		jobID: job.JobID,
		total: specProgressUnits(spec),
	}

	log.Info("Running job")
	if _, err := s.runner.Run(s.ctx, spec, reporter); err != nil {
		log.WithError(err).Error("Job failed")
		_ = s.repo.UpdateStatus(s.ctx, job.JobID, JobStatusFailed, "Job failed", err)
		return
	}

	_ = s.repo.UpdateStatus(s.ctx, job.JobID, JobStatusCompleted, "Job completed", nil)
	log.Info("Job completed")
}

func buildSpec(job *Job) (JobSpec, error) {
	spec := JobSpec{
		Type:   job.JobType,
		Source: job.Source,
	}

	switch job.JobType {
	case JobTypeGames:
		if len(job.GameIDs) == 0 {
			return spec, fmt.Errorf("games job missing game_ids")
		}
		for _, id := range job.GameIDs {
			spec.GameIDs = append(spec.GameIDs, int(id))
		}
		spec.Rosters = true
	case JobTypeRebuildTables:
	default:
		return spec, fmt.Errorf("unknown job type %s", job.JobType)
	}

	return spec, nil
}

// jobReporter mirrors runner callbacks into the job row and its events.
type jobReporter struct {
	ctx   context.Context
	repo  *Repository
	jobID int64
	total int
}

func (r *jobReporter) OnJobStart(spec JobSpec) {
	if r.total == 0 {
		r.total = specProgressUnits(spec)
	}
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, 0, r.total, "Job starting")
}

func (r *jobReporter) OnGameProcessed(gameID int) {
	_ = r.repo.AppendEvent(r.ctx, r.jobID, "game", fmt.Sprintf("Game %d processed", gameID), nil, nil)
}

func (r *jobReporter) OnSkipped(skip pbp.Skip) {
	if skip.Kind == "game" {
		_ = r.repo.IncrementSkipped(r.ctx, r.jobID)
	}
	_ = r.repo.AppendEvent(r.ctx, r.jobID, "skip", fmt.Sprintf("Skipped %s %s: %s", skip.Kind, skip.ID, skip.Reason), nil, nil)
}

func (r *jobReporter) OnProgress(message string, current int, total int) {
	if total == 0 {
		_ = r.repo.AppendEvent(r.ctx, r.jobID, "progress", message, nil, nil)
		return
	}
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, current, valueOr(total, r.total), message)
}

func (r *jobReporter) OnJobComplete(summary *pbp.RunSummary) {
	msg := "Job complete"
	if summary != nil {
		msg = fmt.Sprintf("Job complete: %d games, %d plays, %d skipped", summary.Games, summary.Plays, len(summary.Skipped))
		for _, note := range summary.Notes {
			_ = r.repo.AppendEvent(r.ctx, r.jobID, "note", note, nil, nil)
		}
	}
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, r.total, r.total, msg)
}

func (r *jobReporter) OnJobError(err error) {
	_ = r.repo.AppendEvent(r.ctx, r.jobID, "error", err.Error(), nil, nil)
}

func specProgressUnits(spec JobSpec) int {
	switch spec.Type {
	case JobTypeGames:
		return len(spec.GameIDs)
	case JobTypeRebuildTables:
		return 2
	default:
		return 0
	}
}

func valueOr(val, fallback int) int {
	if val > 0 {
		return val
	}
	return fallback
}
