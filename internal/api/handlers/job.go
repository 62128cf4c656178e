package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/live-subtitle/backend/internal/job"
)

type JobHandler struct {
	queue   *job.Queue
	monitor *job.Monitor
}

// NewJobHandler serves the job queue. monitor may be nil; when set, newly
// queued jobs are watched until they finish.
func NewJobHandler(queue *job.Queue, monitor *job.Monitor) *JobHandler {
	return &JobHandler{queue: queue, monitor: monitor}
}

// ListJobs returns all jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.ListJobs()
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

type enqueueRequest struct {
	FilePath string `json:"file_path"`
	Label    string `json:"label"`
	job.TranscribeParams
}

// Enqueue queues a transcription job
func (h *JobHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.FilePath = strings.TrimSpace(req.FilePath)
	if req.FilePath == "" {
		jsonError(w, "file_path is required", http.StatusBadRequest)
		return
	}
	if strings.Contains(req.FilePath, "..") {
		jsonError(w, "invalid file_path", http.StatusBadRequest)
		return
	}
	if req.Label == "" {
		req.Label = filepath.Base(req.FilePath)
	}

	j, err := h.queue.Enqueue(job.JobTranscribe, req.Label, req.FilePath, req.TranscribeParams)
	if err != nil {
		jsonError(w, "failed to queue job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if h.monitor != nil {
		h.monitor.Start(j.ID, j.Label, nil)
	}
	jsonResponse(w, j, http.StatusAccepted)
}

// GetJob returns a single job by ID
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	j, err := h.queue.GetJob(id)
	if err != nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(j)
}

// Status reports the coarse status pollers use
func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.queue.Check(r.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			jsonError(w, "job not found", http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, report, http.StatusOK)
}

// CancelJob cancels a pending or running job
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	if err := h.queue.CancelJob(id); err != nil {
		jsonError(w, "failed to cancel job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RetryJob re-queues a failed or cancelled job
func (h *JobHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	if err := h.queue.RetryJob(id); err != nil {
		jsonError(w, "failed to retry job: "+err.Error(), http.StatusBadRequest)
		return
	}
	if h.monitor != nil {
		if j, err := h.queue.GetJob(id); err == nil {
			h.monitor.Start(j.ID, j.Label, nil)
		}
	}

	jsonResponse(w, map[string]string{"status": "retrying"}, http.StatusOK)
}
