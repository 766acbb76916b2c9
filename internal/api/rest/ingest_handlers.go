package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fortuna/apollo/internal/backfill"
	"github.com/fortuna/apollo/internal/pbp"
)

// JobQueue accepts ingest requests and reports on queued jobs
type JobQueue interface {
	Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error)
	GetStatus(ctx context.Context) (*backfill.StatusSummary, error)
	GetJob(ctx context.Context, jobID int64) (*backfill.Job, error)
}

// IngestHandler proxies API calls to the ingest job service.
type IngestHandler struct {
	jobs JobQueue
}

// NewIngestHandler wires the REST layer to the job service.
func NewIngestHandler(jobs JobQueue) *IngestHandler {
	return &IngestHandler{jobs: jobs}
}

type apiIngestRequest struct {
	Source        string `json:"source"`
	GameID        int    `json:"game_id"`
	GameIDs       []int  `json:"game_ids"`
	RebuildTables bool   `json:"rebuild_tables"`
	DryRun        bool   `json:"dry_run"`
}

// HandleIngestRequest handles POST /api/v1/ingest
func (h *IngestHandler) HandleIngestRequest(w http.ResponseWriter, r *http.Request) {
	var req apiIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ingestReq := backfill.Request{
		Source:        pbp.Source(req.Source),
		RebuildTables: req.RebuildTables,
		DryRun:        req.DryRun,
	}
	ingestReq.GameIDs = append(ingestReq.GameIDs, req.GameIDs...)
	if req.GameID > 0 {
		ingestReq.GameIDs = append(ingestReq.GameIDs, req.GameID)
	}

	job, err := h.jobs.Enqueue(r.Context(), ingestReq)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to enqueue ingest job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Ingest job queued",
		"job":     jobPayload(job),
	})
}

// HandleIngestStatus handles GET /api/v1/ingest/status
func (h *IngestHandler) HandleIngestStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.jobs.GetStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch status", err)
		return
	}

	respondJSON(w, http.StatusOK, buildStatusPayload(summary))
}

// HandleGetJob handles GET /api/v1/ingest/jobs/{jobID}
func (h *IngestHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(mux.Vars(r)["jobID"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid jobID", err)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch job", err)
		return
	}
	if job == nil {
		respondError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, jobPayload(job))
}

func buildStatusPayload(summary *backfill.StatusSummary) map[string]interface{} {
	response := map[string]interface{}{
		"status":  "idle",
		"message": "No active jobs",
		"history": []map[string]interface{}{},
	}

	if summary.ActiveJob != nil {
		response["status"] = summary.ActiveJob.Status
		if summary.ActiveJob.StatusMessage.Valid {
			response["message"] = summary.ActiveJob.StatusMessage.String
		}
		response["active_job"] = jobPayload(summary.ActiveJob)
	}

	history := make([]map[string]interface{}, 0, len(summary.History))
	for _, job := range summary.History {
		history = append(history, jobPayload(job))
	}

	response["history"] = history
	return response
}

func jobPayload(job *backfill.Job) map[string]interface{} {
	if job == nil {
		return nil
	}

	payload := map[string]interface{}{
		"job_id":           job.JobID,
		"job_type":         job.JobType,
		"source":           job.Source,
		"status":           job.Status,
		"progress_current": job.ProgressCurrent,
		"progress_total":   job.ProgressTotal,
		"skipped_games":    job.SkippedGames,
		"retry_count":      job.RetryCount,
		"created_at":       job.CreatedAt,
		"updated_at":       job.UpdatedAt,
	}

	if job.StatusMessage.Valid {
		payload["status_message"] = job.StatusMessage.String
	}
	if len(job.GameIDs) > 0 {
		payload["game_ids"] = job.GameIDs
	}
	if job.StartedAt.Valid {
		payload["started_at"] = job.StartedAt.Time
	}
	if job.CompletedAt.Valid {
		payload["completed_at"] = job.CompletedAt.Time
	}
	if job.LastError.Valid {
		payload["last_error"] = job.LastError.String
	}

	return payload
}
