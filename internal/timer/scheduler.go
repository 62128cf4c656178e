package timer

import (
	"sort"
	"sync"
	"time"
)

// CancelToken cancels a scheduled callback. Cancel is safe to call more than
// once and after the callback has already fired.
type CancelToken interface {
	Cancel()
}

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	After(d time.Duration, fn func()) CancelToken
}

// Real schedules callbacks on the runtime timer.
type Real struct{}

func (Real) After(d time.Duration, fn func()) CancelToken {
	return realToken{t: time.AfterFunc(d, fn)}
}

type realToken struct {
	t *time.Timer
}

func (r realToken) Cancel() {
	r.t.Stop()
}

// Manual is a scheduler driven by an explicit clock, for tests and
// deterministic replays. Callbacks run on the goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	m         *Manual
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

func (t *manualTask) Cancel() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.cancelled = true
}

// NewManual creates a manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) After(d time.Duration, fn func()) CancelToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Now returns the elapsed manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the delays, relative to now, of callbacks that have not
// fired or been cancelled, in firing order.
func (m *Manual) Pending() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compact()
	out := make([]time.Duration, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.at-m.now)
	}
	return out
}

// Advance moves the clock forward by d, firing every callback that becomes
// due, including callbacks scheduled by callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		m.compact()
		if len(m.tasks) == 0 || m.tasks[0].at > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.now = t.at
		m.mu.Unlock()

		t.fn()
	}
}

// RunNext jumps to the next due callback and fires it. It reports false when
// nothing is scheduled.
func (m *Manual) RunNext() bool {
	m.mu.Lock()
	m.compact()
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	m.now = t.at
	m.mu.Unlock()

	t.fn()
	return true
}

// RunAll fires callbacks until none remain or limit callbacks have run.
// It returns the number of callbacks fired.
func (m *Manual) RunAll(limit int) int {
	n := 0
	for n < limit && m.RunNext() {
		n++
	}
	return n
}

// compact drops cancelled tasks and keeps the rest ordered. Callers hold mu.
func (m *Manual) compact() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].at != m.tasks[j].at {
			return m.tasks[i].at < m.tasks[j].at
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
}
