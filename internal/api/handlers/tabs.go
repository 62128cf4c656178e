package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/live-subtitle/backend/internal/pages"
	"github.com/live-subtitle/backend/internal/protocol"
)

const defaultPortName = "runtime"

type TabsHandler struct {
	hub    *pages.Hub
	handle pages.HandlerFunc
}

func NewTabsHandler(hub *pages.Hub, handle pages.HandlerFunc) *TabsHandler {
	return &TabsHandler{hub: hub, handle: handle}
}

func tabParam(r *http.Request) (protocol.TabID, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "tabID"))
	if err != nil {
		return 0, false
	}
	return protocol.TabID(n), true
}

// ListTabs returns the connected tabs and the active one
func (h *TabsHandler) ListTabs(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Tabs   []protocol.TabID `json:"tabs"`
		Active *protocol.TabID  `json:"active,omitempty"`
	}{Tabs: h.hub.Tabs()}
	if id, ok := h.hub.ActiveTab(); ok {
		resp.Active = &id
	}
	jsonResponse(w, resp, http.StatusOK)
}

// Directives streams directives for a tab as server-sent events
func (h *TabsHandler) Directives(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabParam(r)
	if !ok {
		jsonError(w, "invalid tab ID", http.StatusBadRequest)
		return
	}
	h.hub.ServeDirectives(w, r, tabID)
}

// Port opens a named full-duplex message port for a tab
func (h *TabsHandler) Port(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabParam(r)
	if !ok {
		jsonError(w, "invalid tab ID", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultPortName
	}
	h.hub.ServePort(w, r, tabID, name, h.handle)
}

// Activate marks a tab as the most recently focused one
func (h *TabsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabParam(r)
	if !ok {
		jsonError(w, "invalid tab ID", http.StatusBadRequest)
		return
	}
	if err := h.hub.Activate(tabID); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
