package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/live-subtitle/backend/internal/capture"
	"github.com/live-subtitle/backend/internal/config"
	"github.com/live-subtitle/backend/internal/db"
	"github.com/live-subtitle/backend/internal/job"
	"github.com/live-subtitle/backend/internal/notify"
	"github.com/live-subtitle/backend/internal/pages"
	"github.com/live-subtitle/backend/internal/protocol"
	"github.com/live-subtitle/backend/internal/timer"
)

type upperTranslator struct{}

func (upperTranslator) Translate(ctx context.Context, text, target string, censor bool) (string, error) {
	return strings.ToUpper(text), nil
}

type testEnv struct {
	srv     *httptest.Server
	db      *db.Database
	hub     *pages.Hub
	monitor *job.Monitor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)

	hub := pages.NewHub()
	coord := capture.NewCoordinator(hub, upperTranslator{}, database, database.LoadCaptureSettings(context.Background()))
	hub.OnTabClosed(coord.TabClosed)

	queue := job.NewQueue(database.DB(), database)
	queue.RegisterHandler(job.JobTranscribe, func(ctx context.Context, j *job.Job, progress func(float64)) error {
		j.Result, _ = json.Marshal(job.TranscribeResult{Text: "hello", Language: "en"})
		return nil
	})

	bus := notify.NewBus(database.NotificationStore())
	monitor := job.NewMonitor(queue, bus, timer.NewManual(), job.DefaultPolicy())

	cfg := &config.Config{CORSOrigins: []string{"*"}, GeminiModel: "gemini-2.0-flash"}
	srv := httptest.NewServer(NewRouter(Services{
		Config:      cfg,
		DB:          database,
		Hub:         hub,
		Coordinator: coord,
		Queue:       queue,
		Monitor:     monitor,
		Bus:         bus,
		Engine:      "test",
	}))

	t.Cleanup(func() {
		srv.Close()
		monitor.Close()
		hub.Close()
		queue.Stop()
		database.Close()
	})
	return &testEnv{srv: srv, db: database, hub: hub, monitor: monitor}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRuntimeMessages(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/runtime/message", `{"type":"GET_STATUS"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"isCapturing":false}`, string(body))

	_, body = e.do(t, http.MethodPost, "/api/runtime/message",
		`{"type":"START_CAPTURE","settings":{"targetLanguage":"es"}}`, map[string]string{"X-Tab-ID": "7"})
	assert.JSONEq(t, `{"success":true}`, string(body))

	_, body = e.do(t, http.MethodPost, "/api/runtime/message", `{"type":"START_CAPTURE","tabId":8}`, nil)
	assert.JSONEq(t, `{"success":false,"error":"Already capturing captions"}`, string(body))

	_, body = e.do(t, http.MethodPost, "/api/runtime/message", `{"type":"TRANSLATE_TEXT","text":"hi","targetLanguage":"es"}`, nil)
	assert.JSONEq(t, `{"success":true,"translatedText":"HI"}`, string(body))

	_, body = e.do(t, http.MethodPost, "/api/runtime/message", `{"type":"BOGUS"}`, nil)
	assert.JSONEq(t, `{"success":false,"error":"unknown message type"}`, string(body))

	resp, _ = e.do(t, http.MethodPost, "/api/runtime/message", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/runtime/message", `{"type":"GET_STATUS"}`, map[string]string{"X-Tab-ID": "seven"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = e.do(t, http.MethodPost, "/api/runtime/message", `{"type":"STOP_CAPTURE"}`, nil)
	assert.JSONEq(t, `{"success":true}`, string(body))
}

func TestSettingsRoutes(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPut, "/api/settings", `{"targetLanguage":"ja","showOriginal":false}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ja", got["targetLanguage"])
	assert.Equal(t, false, got["showOriginal"])
	assert.Equal(t, true, got["censorProfanity"])
	assert.Equal(t, false, got["isCapturing"])

	saved := e.db.LoadCaptureSettings(context.Background())
	assert.Equal(t, "ja", saved.TargetLanguage)
	assert.False(t, saved.ShowOriginal)

	_, body = e.do(t, http.MethodGet, "/api/settings", "", nil)
	assert.Contains(t, string(body), `"translation":{"engine":"test","gemini_model":"gemini-2.0-flash"}`)

	resp, _ = e.do(t, http.MethodPut, "/api/settings/translation", `{"gemini_model":"gpt-4"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = e.do(t, http.MethodPut, "/api/settings/translation", `{"gemini_model":"gemini-2.5-pro"}`, nil)
	assert.Contains(t, string(body), `"gemini_model":"gemini-2.5-pro"`)
	assert.Equal(t, "gemini-2.5-pro", e.db.GetSetting("gemini_model", ""))

	// no key configured
	_, body = e.do(t, http.MethodGet, "/api/translate/gemini-models", "", nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestJobRoutes(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/jobs", `{"file_path":"talks/keynote.mp3","language":"en"}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var j job.Job
	require.NoError(t, json.Unmarshal(body, &j))
	assert.Equal(t, "keynote.mp3", j.Label)
	assert.True(t, e.monitor.IsMonitoring(j.ID))

	_, body = e.do(t, http.MethodGet, "/api/jobs/monitored", "", nil)
	assert.Contains(t, string(body), j.ID)

	require.Eventually(t, func() bool {
		_, body := e.do(t, http.MethodGet, "/api/jobs/"+j.ID+"/status", "", nil)
		var report job.StatusReport
		return json.Unmarshal(body, &report) == nil && report.Status == job.RemoteCompleted
	}, 5*time.Second, 20*time.Millisecond)

	resp, _ = e.do(t, http.MethodGet, "/api/jobs/nope/status", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/jobs", `{"file_path":"../etc/passwd"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/jobs/"+j.ID+"/retry", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/api/jobs/"+j.ID+"/watch", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, "/api/jobs/"+j.ID+"/watch", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/jobs/remote-1/watch", `{"label":"upload.wav"}`, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/api/jobs/remote-1/watch", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNotificationRoutes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.db.AddJobNotification(ctx, "j1", "Completed", "talk.mp3", ""))

	_, body := e.do(t, http.MethodGet, "/api/notifications", "", nil)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "j1", records[0]["project_id"])
	assert.Equal(t, false, records[0]["is_read"])

	_, body = e.do(t, http.MethodGet, "/api/notifications/feed", "", nil)
	assert.JSONEq(t, `{"notifications":[],"unread":0}`, string(body))

	_, body = e.do(t, http.MethodPost, "/api/notifications/feed/refresh", "", nil)
	var feed struct {
		Notifications []notify.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(body, &feed))
	require.Len(t, feed.Notifications, 1)
	assert.Equal(t, 1, feed.Unread)

	_, body = e.do(t, http.MethodPost, "/api/notifications/feed/mark-read", "", nil)
	require.NoError(t, json.Unmarshal(body, &feed))
	assert.Zero(t, feed.Unread)

	_, body = e.do(t, http.MethodPost, "/api/notifications/mark-read", "", nil)
	assert.JSONEq(t, `{"updated":0}`, string(body))
}

func TestTabRoutes(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/api/tabs/3/activate", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/tabs/abc/directives", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.srv.URL+"/api/tabs/3/directives", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return e.hub.Known(3) }, 2*time.Second, 10*time.Millisecond)

	_, body := e.do(t, http.MethodGet, "/api/tabs", "", nil)
	assert.JSONEq(t, `{"tabs":[3],"active":3}`, string(body))

	// no tab given: the active one is used
	_, body = e.do(t, http.MethodPost, "/api/runtime/message", `{"type":"START_CAPTURE"}`, nil)
	assert.JSONEq(t, `{"success":true}`, string(body))

	reader := bufio.NewReader(stream.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: "+string(protocol.TypeCaptureStarted)+"\n", line)
}
