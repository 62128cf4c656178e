package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("job not found")

// Queue persists jobs in sqlite and runs them one at a time
type Queue struct {
	db       *sql.DB
	mu       sync.RWMutex
	pending  chan string // job IDs to process
	cancels  map[string]context.CancelFunc
	handlers map[JobType]JobHandler
	notifier NotificationWriter
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewQueue creates and starts a new job queue. notifier may be nil.
func NewQueue(db *sql.DB, notifier NotificationWriter) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		db:       db,
		pending:  make(chan string, 100),
		cancels:  make(map[string]context.CancelFunc),
		handlers: make(map[JobType]JobHandler),
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	// Resume any pending/running jobs from DB on startup
	q.resumeJobs()

	go q.worker()

	return q
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue creates a new job and adds it to the queue
func (q *Queue) Enqueue(jobType JobType, label, filePath string, params interface{}) (*Job, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		Label:     label,
		FilePath:  filePath,
		Params:    paramsJSON,
		CreatedAt: time.Now(),
	}

	_, err = q.db.Exec(`
		INSERT INTO jobs (id, type, status, label, file_path, params, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.Status, job.Label, job.FilePath, string(job.Params), job.Progress, job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	q.push(job.ID)
	log.Printf("[job] job %s queued (%s)", job.ID, job.Label)
	return job, nil
}

func (q *Queue) push(id string) {
	select {
	case q.pending <- id:
	default:
		log.Printf("[job] queue full, job %s will be picked up on next restart", id)
	}
}

const jobColumns = `id, type, status, label, file_path, params, progress, result, error, created_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	job := &Job{}
	var params, result, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.Label, &job.FilePath, &params, &job.Progress,
		&result, &errMsg, &job.CreatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	if params.Valid {
		job.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		job.Result = json.RawMessage(result.String)
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(id string) (*Job, error) {
	job, err := scanJob(q.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job, err
}

// ListJobs returns all jobs ordered by creation time (newest first)
func (q *Queue) ListJobs() ([]*Job, error) {
	rows, err := q.db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Check reports the coarse status of a job. It lets the queue stand in for
// the HTTP status client when the monitor runs in the same process.
func (q *Queue) Check(ctx context.Context, id string) (StatusReport, error) {
	job, err := q.GetJob(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return StatusReport{}, err
		}
		return StatusReport{}, &TransportError{Op: "check " + id, Err: err}
	}
	return job.Report(), nil
}

// CancelJob cancels a pending or running job
func (q *Queue) CancelJob(id string) error {
	q.mu.Lock()
	if cancelFn, ok := q.cancels[id]; ok {
		cancelFn()
		delete(q.cancels, id)
	}
	q.mu.Unlock()

	_, err := q.db.Exec(`
		UPDATE jobs SET status = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		StatusCancelled, time.Now(), id, StatusPending, StatusRunning,
	)
	return err
}

// RetryJob re-queues a failed or cancelled job
func (q *Queue) RetryJob(id string) error {
	res, err := q.db.Exec(`
		UPDATE jobs SET status = ?, progress = 0, error = NULL, result = NULL, started_at = NULL, completed_at = NULL
		WHERE id = ? AND status IN (?, ?)`,
		StatusPending, id, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s is not failed or cancelled", id)
	}
	q.push(id)
	log.Printf("[job] job %s re-queued", id)
	return nil
}

// UpdateProgress updates the progress of a running job
func (q *Queue) UpdateProgress(id string, progress float64) {
	q.db.Exec("UPDATE jobs SET progress = ? WHERE id = ?", progress, id)
}

// Stop shuts down the queue and waits for the worker to exit
func (q *Queue) Stop() {
	q.cancel()
	<-q.done
}

// worker processes jobs from the pending channel one at a time
func (q *Queue) worker() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case jobID := <-q.pending:
			q.processJob(jobID)
		}
	}
}

// processJob runs a single job
func (q *Queue) processJob(jobID string) {
	job, err := q.GetJob(jobID)
	if err != nil {
		log.Printf("[job] failed to load job %s: %v", jobID, err)
		return
	}

	// Skip if not pending
	if job.Status != StatusPending {
		return
	}

	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()

	if !ok {
		log.Printf("[job] no handler for job type %s", job.Type)
		q.failJob(job, fmt.Sprintf("no handler for job type: %s", job.Type))
		return
	}

	now := time.Now()
	job.StartedAt = &now
	job.Status = StatusRunning
	q.db.Exec("UPDATE jobs SET status = ?, started_at = ? WHERE id = ?",
		StatusRunning, now, job.ID)

	ctx, cancelFn := context.WithCancel(q.ctx)
	q.mu.Lock()
	q.cancels[job.ID] = cancelFn
	q.mu.Unlock()

	updateProgress := func(progress float64) {
		q.UpdateProgress(job.ID, progress)
	}

	done := make(chan error, 1)
	go func() {
		done <- handler(ctx, job, updateProgress)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-done:
	}

	switch {
	case ctx.Err() != nil:
		// CancelJob or Stop; a stopped job stays running and is resumed on restart
		log.Printf("[job] job %s cancelled", job.ID)
		if q.ctx.Err() == nil {
			q.notify(job, RemoteFailed, "cancelled")
		}
	case runErr != nil:
		q.failJob(job, runErr.Error())
	default:
		q.completeJob(job)
	}

	q.mu.Lock()
	delete(q.cancels, job.ID)
	q.mu.Unlock()
	cancelFn()
}

func (q *Queue) completeJob(job *Job) {
	now := time.Now()
	var result any
	if len(job.Result) > 0 {
		result = string(job.Result)
	}
	q.db.Exec("UPDATE jobs SET status = ?, progress = 1.0, result = ?, completed_at = ? WHERE id = ?",
		StatusCompleted, result, now, job.ID)
	log.Printf("[job] job %s completed", job.ID)
	q.notify(job, RemoteCompleted, "")
}

func (q *Queue) failJob(job *Job, errMsg string) {
	now := time.Now()
	q.db.Exec("UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ?",
		StatusFailed, errMsg, now, job.ID)
	log.Printf("[job] job %s failed: %s", job.ID, errMsg)
	q.notify(job, RemoteFailed, errMsg)
}

func (q *Queue) notify(job *Job, status RemoteStatus, message string) {
	if q.notifier == nil {
		return
	}
	if err := q.notifier.AddJobNotification(context.Background(), job.ID, string(status), job.Label, message); err != nil {
		log.Printf("[job] record notification for %s: %v", job.ID, err)
	}
}

// resumeJobs re-queues any pending jobs found in DB on startup
func (q *Queue) resumeJobs() {
	// Mark any previously "running" jobs as pending (server restarted)
	q.db.Exec("UPDATE jobs SET status = ? WHERE status = ?", StatusPending, StatusRunning)

	rows, err := q.db.Query("SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC", StatusPending)
	if err != nil {
		log.Printf("[job] failed to resume jobs: %v", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		select {
		case q.pending <- id:
			count++
		default:
		}
	}

	if count > 0 {
		log.Printf("[job] resumed %d pending jobs", count)
	}
}
