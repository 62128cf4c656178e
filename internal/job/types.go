package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranscribe JobType = "transcribe"
)

// JobStatus represents the current state of a job in the queue
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// RemoteStatus is the coarse status reported to pollers
type RemoteStatus string

const (
	RemoteInProgress RemoteStatus = "InProgress"
	RemoteCompleted  RemoteStatus = "Completed"
	RemoteFailed     RemoteStatus = "Failed"
)

// Remote maps a queue status to what pollers see. Cancelled jobs are
// reported as failed so a poller always reaches a terminal state.
func (s JobStatus) Remote() RemoteStatus {
	switch s {
	case StatusCompleted:
		return RemoteCompleted
	case StatusFailed, StatusCancelled:
		return RemoteFailed
	default:
		return RemoteInProgress
	}
}

// Job represents a queued transcription
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Label       string          `json:"label"`
	FilePath    string          `json:"file_path"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TranscribeParams are parameters for a transcription job
type TranscribeParams struct {
	Model    string `json:"model"`            // "whisper-1"
	Language string `json:"language"`         // "auto", "ko", "en", "ja", etc.
	Prompt   string `json:"prompt,omitempty"` // vocabulary hint passed to the engine
}

// TranscribeResult is the output of a successful transcription
type TranscribeResult struct {
	Text     string  `json:"text"`
	Language string  `json:"language"` // detected or specified language
	Duration float64 `json:"duration"` // processing time in seconds
}

// StatusReport is the body of GET /jobs/{id}/status
type StatusReport struct {
	Status   RemoteStatus    `json:"status"`
	Message  string          `json:"message,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// Report builds the status report for j
func (j *Job) Report() StatusReport {
	r := StatusReport{
		Status:   j.Status.Remote(),
		Filename: j.Label,
	}
	switch r.Status {
	case RemoteFailed:
		r.Message = j.Error
		if r.Message == "" && j.Status == StatusCancelled {
			r.Message = "cancelled"
		}
	case RemoteCompleted:
		r.Result = j.Result
	}
	return r
}

// JobHandler processes a job. Implementations are provided by the transcribe package.
type JobHandler func(ctx context.Context, job *Job, updateProgress func(float64)) error

// NotificationWriter records a server-side notification when a job finishes
type NotificationWriter interface {
	AddJobNotification(ctx context.Context, jobID, status, filename, message string) error
}
