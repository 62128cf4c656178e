package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/live-subtitle/backend/internal/notify"
)

type stubRecords struct{}

func (stubRecords) ListNotifications(ctx context.Context) ([]notify.Record, error) {
	return []notify.Record{}, nil
}

func (stubRecords) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	return 0, nil
}

func TestNotificationsHandler_NoFeed(t *testing.T) {
	h := NewNotificationsHandler(stubRecords{}, nil)

	for name, fn := range map[string]http.HandlerFunc{
		"feed":      h.Feed,
		"refresh":   h.RefreshFeed,
		"mark-read": h.MarkFeedRead,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fn(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/feed", nil))
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Contains(t, rec.Body.String(), "not enabled")
		})
	}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
