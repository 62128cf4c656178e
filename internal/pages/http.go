package pages

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/live-subtitle/backend/internal/protocol"
)

// HandlerFunc processes one decoded request from a port.
type HandlerFunc func(ctx context.Context, sender protocol.Sender, req protocol.Request) protocol.Reply

const keepAliveInterval = 25 * time.Second

// ServeDirectives streams directives for tabID as server-sent events until
// the client disconnects.
func (h *Hub) ServeDirectives(w http.ResponseWriter, r *http.Request, tabID protocol.TabID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	stream, err := h.Connect(tabID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case d, ok := <-stream.C:
			if !ok {
				return
			}
			data, err := json.Marshal(d)
			if err != nil {
				log.Printf("[pages] marshal %s: %v", d.Type, err)
				continue
			}
			if _, err := w.Write([]byte(formatEvent(string(d.Type), data))); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func formatEvent(event string, data []byte) string {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteString("\n")
	for _, line := range strings.Split(string(data), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// ServePort runs a full-duplex NDJSON port for tabID. Every request line is
// decoded and passed to handle, and the reply is written back as one line.
func (h *Hub) ServePort(w http.ResponseWriter, r *http.Request, tabID protocol.TabID, name string, handle HandlerFunc) {
	rc := http.NewResponseController(w)
	if err := rc.EnableFullDuplex(); err != nil {
		// HTTP/2 is full duplex already
		log.Printf("[pages] port %q: full duplex: %v", name, err)
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Printf("[pages] port %q: flush: %v", name, err)
		return
	}

	log.Printf("[pages] port %q opened for tab %d", name, tabID)
	defer log.Printf("[pages] port %q closed for tab %d", name, tabID)

	if h.Known(tabID) {
		_ = h.Activate(tabID)
	}

	id := tabID
	sender := protocol.Sender{TabID: &id, Port: name}
	enc := json.NewEncoder(w)

	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var reply protocol.Reply
		req, err := protocol.Decode([]byte(line))
		if err != nil {
			reply = protocol.Result{Success: false, Error: err.Error()}
		} else {
			reply = handle(r.Context(), sender, req)
		}

		if err := enc.Encode(reply); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[pages] port %q read: %v", name, err)
	}
}
