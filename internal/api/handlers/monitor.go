package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/live-subtitle/backend/internal/job"
)

// MonitorHandler exposes the background job monitor
type MonitorHandler struct {
	monitor *job.Monitor
}

func NewMonitorHandler(monitor *job.Monitor) *MonitorHandler {
	return &MonitorHandler{monitor: monitor}
}

// Active lists the jobs being polled
func (h *MonitorHandler) Active(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.monitor.Active(), http.StatusOK)
}

// Watch starts polling a job, e.g. one submitted straight to the backend
func (h *MonitorHandler) Watch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Label string `json:"label"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if !h.monitor.Start(id, body.Label, nil) {
		jsonError(w, "job is already being monitored", http.StatusConflict)
		return
	}
	jsonResponse(w, map[string]string{"status": "monitoring"}, http.StatusAccepted)
}

// Unwatch stops polling a job without a notification
func (h *MonitorHandler) Unwatch(w http.ResponseWriter, r *http.Request) {
	if !h.monitor.Stop(chi.URLParam(r, "id")) {
		jsonError(w, "job is not being monitored", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
