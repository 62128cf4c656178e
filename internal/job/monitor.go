package job

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/live-subtitle/backend/internal/notify"
	"github.com/live-subtitle/backend/internal/timer"
)

// Policy controls how often a job is polled.
type Policy struct {
	InitialDelay   time.Duration
	BaseDelay      time.Duration
	Step           time.Duration
	MaxDelay       time.Duration
	RetryBase      time.Duration
	RetryMax       time.Duration
	MaxAttempts    int
	RequestTimeout time.Duration
}

// DefaultPolicy polls for at most 120 attempts, roughly ten minutes or more.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay:   1 * time.Second,
		BaseDelay:      3 * time.Second,
		Step:           200 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		RetryBase:      5 * time.Second,
		RetryMax:       30 * time.Second,
		MaxAttempts:    120,
		RequestTimeout: 30 * time.Second,
	}
}

// pollDelay is the wait after the attempt-th unfinished answer.
func (p Policy) pollDelay(attempt int) time.Duration {
	d := p.BaseDelay + time.Duration(attempt)*p.Step
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// retryDelay is the wait after the attempt-th failed check.
func (p Policy) retryDelay(attempt int) time.Duration {
	exp := attempt - 1
	if exp > 3 {
		exp = 3
	}
	if exp < 0 {
		exp = 0
	}
	d := p.RetryBase * time.Duration(1<<exp)
	if d > p.RetryMax {
		return p.RetryMax
	}
	return d
}

// Emitter receives the notifications produced by the monitor
type Emitter interface {
	Emit(n notify.Notification)
}

// MonitoredJob is a job being polled
type MonitoredJob struct {
	JobID     string    `json:"jobId"`
	Label     string    `json:"label"`
	StartedAt time.Time `json:"startedAt"`
	Attempt   int       `json:"attempt"`

	handle     timer.CancelToken
	onComplete func(StatusReport)
}

// cancel drops the pending poll. handle is nil until Start has announced the job.
func (mj *MonitoredJob) cancel() {
	if mj.handle != nil {
		mj.handle.Cancel()
	}
}

// Monitor polls remote jobs until they finish and reports the outcome as
// notifications. Each job has at most one poll loop.
type Monitor struct {
	client  StatusClient
	emitter Emitter
	sched   timer.Scheduler
	policy  Policy

	mu     sync.Mutex
	jobs   map[string]*MonitoredJob
	closed bool
}

func NewMonitor(client StatusClient, emitter Emitter, sched timer.Scheduler, policy Policy) *Monitor {
	return &Monitor{
		client:  client,
		emitter: emitter,
		sched:   sched,
		policy:  policy,
		jobs:    make(map[string]*MonitoredJob),
	}
}

// Start begins polling jobID. It returns false when the job is already
// monitored or the monitor is closed. onComplete may be nil.
func (m *Monitor) Start(jobID, label string, onComplete func(StatusReport)) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if _, ok := m.jobs[jobID]; ok {
		m.mu.Unlock()
		return false
	}
	mj := &MonitoredJob{
		JobID:      jobID,
		Label:      label,
		StartedAt:  time.Now(),
		onComplete: onComplete,
	}
	m.jobs[jobID] = mj
	m.mu.Unlock()

	log.Printf("[monitor] watching job %s (%s)", jobID, label)
	m.emitter.Emit(notify.Notification{
		ID:         "bg-" + jobID,
		Kind:       notify.KindInfo,
		Title:      "Transcription Running",
		Message:    fmt.Sprintf("Your transcription %q is processing in the background", label),
		JobID:      jobID,
		CreatedAt:  time.Now(),
		DurationMs: 5000,
	})

	// The first poll is scheduled only once the running notice is out, so
	// no outcome can overtake it.
	m.mu.Lock()
	if m.currentLocked(mj) {
		mj.handle = m.sched.After(m.policy.InitialDelay, func() { m.poll(mj) })
	}
	m.mu.Unlock()
	return true
}

// Stop cancels polling for jobID without a notification.
func (m *Monitor) Stop(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	mj, ok := m.jobs[jobID]
	if !ok {
		return false
	}
	mj.cancel()
	delete(m.jobs, jobID)
	return true
}

// IsMonitoring reports whether jobID is being polled.
func (m *Monitor) IsMonitoring(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[jobID]
	return ok
}

// Active returns a snapshot of the polled jobs, oldest first.
func (m *Monitor) Active() []MonitoredJob {
	m.mu.Lock()
	out := make([]MonitoredJob, 0, len(m.jobs))
	for _, mj := range m.jobs {
		out = append(out, MonitoredJob{
			JobID:     mj.JobID,
			Label:     mj.Label,
			StartedAt: mj.StartedAt,
			Attempt:   mj.Attempt,
		})
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Close cancels every poll loop. Later Start calls are ignored.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, mj := range m.jobs {
		mj.cancel()
		delete(m.jobs, id)
	}
}

// currentLocked reports whether mj still owns its slot. A stopped or finished job
// is gone from the table, so a callback that raced with it does nothing.
func (m *Monitor) currentLocked(mj *MonitoredJob) bool {
	return m.jobs[mj.JobID] == mj
}

func (m *Monitor) poll(mj *MonitoredJob) {
	m.mu.Lock()
	if !m.currentLocked(mj) {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.policy.RequestTimeout)
	report, err := m.client.Check(ctx, mj.JobID)
	cancel()

	m.mu.Lock()
	if !m.currentLocked(mj) {
		m.mu.Unlock()
		return
	}

	if err != nil {
		mj.Attempt++
		if mj.Attempt < m.policy.MaxAttempts {
			delay := m.policy.retryDelay(mj.Attempt)
			mj.handle = m.sched.After(delay, func() { m.poll(mj) })
			m.mu.Unlock()
			log.Printf("[monitor] job %s: check failed (attempt %d), retrying in %s: %v", mj.JobID, mj.Attempt, delay, err)
			return
		}
		delete(m.jobs, mj.JobID)
		m.mu.Unlock()
		log.Printf("[monitor] job %s: giving up after %d attempts: %v", mj.JobID, mj.Attempt, err)
		m.timedOut(mj)
		return
	}

	switch report.Status {
	case RemoteCompleted:
		delete(m.jobs, mj.JobID)
		m.mu.Unlock()
		m.completed(mj, report)
	case RemoteFailed:
		delete(m.jobs, mj.JobID)
		m.mu.Unlock()
		m.failed(mj, report)
	default:
		mj.Attempt++
		if mj.Attempt < m.policy.MaxAttempts {
			mj.handle = m.sched.After(m.policy.pollDelay(mj.Attempt), func() { m.poll(mj) })
			m.mu.Unlock()
			return
		}
		delete(m.jobs, mj.JobID)
		m.mu.Unlock()
		m.timedOut(mj)
	}
}

func (m *Monitor) completed(mj *MonitoredJob, report StatusReport) {
	log.Printf("[monitor] job %s completed", mj.JobID)
	if report.Filename == "" {
		report.Filename = mj.Label
	}
	if mj.onComplete != nil {
		mj.onComplete(report)
	}
	name := mj.Label
	if name == "" {
		name = "Your file"
	}
	m.emitter.Emit(notify.Notification{
		ID:         "complete-" + mj.JobID,
		Kind:       notify.KindSuccess,
		Title:      "Transcription Complete!",
		Message:    fmt.Sprintf("%q has been transcribed successfully", name),
		JobID:      mj.JobID,
		CreatedAt:  time.Now(),
		Persistent: true,
		Action:     &notify.Action{Label: "View Results", TargetJobID: mj.JobID},
	})
}

func (m *Monitor) failed(mj *MonitoredJob, report StatusReport) {
	reason := report.Message
	if reason == "" {
		reason = "Unknown error"
	}
	log.Printf("[monitor] job %s: %v: %s", mj.JobID, ErrRemoteJobFailed, reason)
	m.emitter.Emit(notify.Notification{
		ID:         "failed-" + mj.JobID,
		Kind:       notify.KindError,
		Title:      "Transcription Failed",
		Message:    fmt.Sprintf("%q failed to transcribe: %s", mj.Label, reason),
		JobID:      mj.JobID,
		CreatedAt:  time.Now(),
		Persistent: true,
	})
}

func (m *Monitor) timedOut(mj *MonitoredJob) {
	m.emitter.Emit(notify.Notification{
		ID:         "timeout-" + mj.JobID,
		Kind:       notify.KindWarning,
		Title:      "Transcription Timeout",
		Message:    fmt.Sprintf("%q is taking longer than expected. Please check manually.", mj.Label),
		JobID:      mj.JobID,
		CreatedAt:  time.Now(),
		Persistent: true,
		Action:     &notify.Action{Label: "Check Status", TargetJobID: mj.JobID},
	})
}
