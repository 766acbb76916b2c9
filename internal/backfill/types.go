package backfill

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/apollo/internal/pbp"
)

// JobType enumerates the supported ingest job variants.
type JobType string

const (
	JobTypeGames         JobType = "games"
	JobTypeRebuildTables JobType = "rebuild_tables"
)

// JobStatus represents the lifecycle state for a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job models the database representation of an ingest job.
type Job struct {
	JobID           int64          `json:"job_id"`
	JobType         JobType        `json:"job_type"`
	Source          pbp.Source     `json:"source"`
	GameIDs         pq.Int64Array  `json:"game_ids"`
	Status          JobStatus      `json:"status"`
	StatusMessage   sql.NullString `json:"status_message"`
	ProgressCurrent int            `json:"progress_current"`
	ProgressTotal   int            `json:"progress_total"`
	SkippedGames    int            `json:"skipped_games"`
	LastError       sql.NullString `json:"last_error"`
	RetryCount      int            `json:"retry_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	StartedAt       sql.NullTime   `json:"started_at"`
	CompletedAt     sql.NullTime   `json:"completed_at"`
}

// Copy returns a shallow copy to prevent external mutation.
func (j *Job) Copy() *Job {
	if j == nil {
		return nil
	}
	cpy := *j
	cpy.GameIDs = append(pq.Int64Array(nil), j.GameIDs...)
	return &cpy
}

// JobSpec describes the work to be performed by the runner.
type JobSpec struct {
	Type    JobType
	Source  pbp.Source
	GameIDs []int
	Rosters bool
	DryRun  bool
}

// Reporter receives lifecycle callbacks from the runner.
type Reporter interface {
	OnJobStart(spec JobSpec)
	OnGameProcessed(gameID int)
	OnSkipped(skip pbp.Skip)
	OnProgress(message string, current int, total int)
	OnJobComplete(summary *pbp.RunSummary)
	OnJobError(err error)
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	ActiveJob *Job   `json:"active_job,omitempty"`
	History   []*Job `json:"recent_jobs,omitempty"`
}
