// Package notify carries user-facing notifications from background work to
// whoever is listening, and keeps the persisted ones in sync with the store.
package notify

import "time"

// Kind is the severity shown to the user
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
)

// Action is the click target of a notification
type Action struct {
	Label       string `json:"label"`
	TargetJobID string `json:"targetJobId"`
}

// Notification is what subscribers receive. A Persistent notification with
// DurationMs 0 stays until it is marked read.
type Notification struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	JobID      string    `json:"jobId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	IsRead     bool      `json:"isRead"`
	Persistent bool      `json:"persistent"`
	DurationMs int       `json:"durationMs"`
	Action     *Action   `json:"action,omitempty"`
}

// Clickable reports whether the notification has an action
func (n Notification) Clickable() bool {
	return n.Action != nil
}

// Record is a notification row as stored by the backend and returned by
// GET /api/notifications.
type Record struct {
	ID        string    `json:"notification_id" db:"id"`
	JobID     string    `json:"project_id" db:"job_id"`
	Status    string    `json:"project_status" db:"status"`
	Filename  string    `json:"filename" db:"filename"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"creation_time" db:"created_at"`
}

// FromRecord maps a stored row to a persistent notification
func FromRecord(r Record) Notification {
	n := Notification{
		ID:         "db-" + r.ID,
		Message:    r.Message,
		JobID:      r.JobID,
		CreatedAt:  r.CreatedAt,
		IsRead:     r.IsRead,
		Persistent: true,
	}
	switch r.Status {
	case "Completed":
		n.Kind = KindSuccess
		n.Title = "Transcription Complete!"
		n.Action = &Action{Label: "View Results", TargetJobID: r.JobID}
	case "Failed":
		n.Kind = KindError
		n.Title = "Transcription Failed"
	case "InProgress", "In Progress":
		n.Kind = KindInfo
		n.Title = "Transcription Running"
	default:
		n.Kind = KindInfo
		n.Title = "Notification"
	}
	return n
}
