// Package pages tracks the browser tabs connected to the relay and delivers
// directives to them. Each tab holds a server-sent event stream open for
// directives and may open port connections to push captions.
package pages

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/live-subtitle/backend/internal/protocol"
)

// ErrContextLost is returned when the target tab has no open stream or its
// stream cannot keep up.
var ErrContextLost = errors.New("page context lost")

const streamBuffer = 32

// Stream is one open directive stream for a tab.
type Stream struct {
	C     <-chan protocol.Directive
	c     chan protocol.Directive
	tabID protocol.TabID
	hub   *Hub
	once  sync.Once
}

// Close detaches the stream. When it was the tab's last stream the tab is
// forgotten and the tab-closed callback runs.
func (s *Stream) Close() {
	s.once.Do(func() { s.hub.detach(s) })
}

type tab struct {
	streams  map[*Stream]struct{}
	lastSeen uint64
}

// Hub is the registry of connected tabs.
type Hub struct {
	mu       sync.Mutex
	tabs     map[protocol.TabID]*tab
	seq      uint64
	closed   bool
	onClosed func(protocol.TabID)
}

func NewHub() *Hub {
	return &Hub{tabs: make(map[protocol.TabID]*tab)}
}

// OnTabClosed registers fn to run after a tab's last stream goes away.
func (h *Hub) OnTabClosed(fn func(protocol.TabID)) {
	h.mu.Lock()
	h.onClosed = fn
	h.mu.Unlock()
}

// Connect opens a directive stream for tabID and marks the tab as the most
// recently active one.
func (h *Hub) Connect(tabID protocol.TabID) (*Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("%w: hub closed", ErrContextLost)
	}

	t, ok := h.tabs[tabID]
	if !ok {
		t = &tab{streams: make(map[*Stream]struct{})}
		h.tabs[tabID] = t
		log.Printf("[pages] tab %d connected", tabID)
	}
	h.seq++
	t.lastSeen = h.seq

	c := make(chan protocol.Directive, streamBuffer)
	s := &Stream{C: c, c: c, tabID: tabID, hub: h}
	t.streams[s] = struct{}{}
	return s, nil
}

func (h *Hub) detach(s *Stream) {
	h.mu.Lock()
	t, ok := h.tabs[s.tabID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := t.streams[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(t.streams, s)
	close(s.c)

	gone := len(t.streams) == 0
	if gone {
		delete(h.tabs, s.tabID)
	}
	fn := h.onClosed
	h.mu.Unlock()

	if gone {
		log.Printf("[pages] tab %d closed", s.tabID)
		if fn != nil {
			fn(s.tabID)
		}
	}
}

// Activate marks a known tab as the most recently active one.
func (h *Hub) Activate(tabID protocol.TabID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs[tabID]
	if !ok {
		return fmt.Errorf("%w: tab %d", ErrContextLost, tabID)
	}
	h.seq++
	t.lastSeen = h.seq
	return nil
}

// ActiveTab returns the most recently active connected tab.
func (h *Hub) ActiveTab() (protocol.TabID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var (
		best  protocol.TabID
		seen  uint64
		found bool
	)
	for id, t := range h.tabs {
		if !found || t.lastSeen > seen {
			best, seen, found = id, t.lastSeen, true
		}
	}
	return best, found
}

// Known reports whether tabID has an open stream.
func (h *Hub) Known(tabID protocol.TabID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.tabs[tabID]
	return ok
}

// Tabs returns the connected tab IDs in ascending order.
func (h *Hub) Tabs() []protocol.TabID {
	h.mu.Lock()
	ids := make([]protocol.TabID, 0, len(h.tabs))
	for id := range h.tabs {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Send delivers d to every stream of tabID without blocking. It fails with
// ErrContextLost when the tab is unknown or no stream accepted the directive.
func (h *Hub) Send(tabID protocol.TabID, d protocol.Directive) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs[tabID]
	if !ok {
		return fmt.Errorf("%w: tab %d", ErrContextLost, tabID)
	}
	delivered := 0
	for s := range t.streams {
		select {
		case s.c <- d:
			delivered++
		default:
		}
	}
	if delivered == 0 {
		return fmt.Errorf("%w: tab %d not keeping up", ErrContextLost, tabID)
	}
	return nil
}

// Broadcast sends d to every connected tab. Failures are logged and skipped.
func (h *Hub) Broadcast(d protocol.Directive) {
	for _, id := range h.Tabs() {
		if err := h.Send(id, d); err != nil {
			log.Printf("[pages] WARNING: broadcast %s: %v", d.Type, err)
		}
	}
}

// ShowCaption hands a translated caption to the overlay in tabID.
func (h *Hub) ShowCaption(tabID protocol.TabID, c protocol.TranslatedCaption) error {
	return h.Send(tabID, protocol.CaptionUpdate(c))
}

// Close ends every stream. Tab-closed callbacks are not run.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, t := range h.tabs {
		for s := range t.streams {
			close(s.c)
			delete(t.streams, s)
		}
		delete(h.tabs, id)
	}
}
