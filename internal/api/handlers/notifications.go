package handlers

import (
	"context"
	"net/http"

	"github.com/live-subtitle/backend/internal/notify"
)

// NotificationRecords is the server-side notification table
type NotificationRecords interface {
	ListNotifications(ctx context.Context) ([]notify.Record, error)
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
}

type NotificationsHandler struct {
	records NotificationRecords
	bus     *notify.Bus
}

// NewNotificationsHandler serves stored notifications and the live feed
// held by bus. bus may be nil, in which case the feed routes answer 503.
func NewNotificationsHandler(records NotificationRecords, bus *notify.Bus) *NotificationsHandler {
	return &NotificationsHandler{records: records, bus: bus}
}

// List returns the stored notifications, newest first
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.ListNotifications(r.Context())
	if err != nil {
		jsonError(w, "failed to load notifications", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, records, http.StatusOK)
}

// MarkRead flags every stored notification read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.records.MarkAllNotificationsRead(r.Context())
	if err != nil {
		jsonError(w, "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]int64{"updated": n}, http.StatusOK)
}

type feedResponse struct {
	Notifications []notify.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// feedReady writes a 503 when no feed is wired.
func (h *NotificationsHandler) feedReady(w http.ResponseWriter) bool {
	if h.bus == nil {
		jsonError(w, "notification feed is not enabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *NotificationsHandler) feed() feedResponse {
	return feedResponse{Notifications: h.bus.Notifications(), Unread: h.bus.UnreadCount()}
}

// Feed returns the notifications the relay has emitted or fetched
func (h *NotificationsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if !h.feedReady(w) {
		return
	}
	jsonResponse(w, h.feed(), http.StatusOK)
}

// RefreshFeed replaces the feed's persistent entries with the store's
func (h *NotificationsHandler) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	if !h.feedReady(w) {
		return
	}
	if _, err := h.bus.FetchPersisted(r.Context()); err != nil {
		jsonError(w, "failed to fetch notifications: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, h.feed(), http.StatusOK)
}

// MarkFeedRead marks everything read in the store and the feed
func (h *NotificationsHandler) MarkFeedRead(w http.ResponseWriter, r *http.Request) {
	if !h.feedReady(w) {
		return
	}
	if err := h.bus.MarkAllRead(r.Context()); err != nil {
		jsonError(w, "failed to mark notifications read: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, h.feed(), http.StatusOK)
}
