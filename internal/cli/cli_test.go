package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/live-subtitle/backend/internal/config"
)

func fastPolling(t *testing.T, backend string) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv("BACKEND_URL", backend)
	for _, k := range []string{"POLL_INITIAL_DELAY", "POLL_BASE_DELAY", "POLL_MAX_DELAY", "POLL_RETRY_BASE", "POLL_RETRY_MAX"} {
		t.Setenv(k, "1ms")
	}
	t.Setenv("POLL_STEP", "0s")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWatch_Completes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/42/status", r.URL.Path)
		if calls.Add(1) < 3 {
			w.Write([]byte(`{"status":"InProgress"}`))
			return
		}
		w.Write([]byte(`{"status":"Completed","filename":"talk.mp3"}`))
	}))
	defer srv.Close()
	fastPolling(t, srv.URL)

	out, err := execute(t, "watch", "42", "--label", "talk.mp3")
	require.NoError(t, err)
	assert.Contains(t, out, "Transcription Running")
	assert.Contains(t, out, `"talk.mp3" has been transcribed successfully`)
	assert.EqualValues(t, 3, calls.Load())
}

func TestWatch_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"Failed","message":"unsupported codec"}`))
	}))
	defer srv.Close()
	fastPolling(t, srv.URL)

	out, err := execute(t, "watch", "7", "--label", "clip.mkv")
	assert.ErrorIs(t, err, errWatchIncomplete)
	assert.Contains(t, out, "unsupported codec")
}

func TestWatch_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	fastPolling(t, srv.URL)
	t.Setenv("POLL_MAX_ATTEMPTS", "3")

	out, err := execute(t, "watch", "9", "--label", "x.mp3")
	assert.ErrorIs(t, err, errWatchIncomplete)
	assert.Contains(t, out, "Transcription Timeout")
}

func TestNotifications(t *testing.T) {
	var marked atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/notifications":
			w.Write([]byte(`[{"notification_id":"01J","project_id":"42","project_status":"Completed",
				"filename":"talk.mp3","message":"\"talk.mp3\" has been transcribed successfully",
				"is_read":false,"creation_time":"2026-01-02T10:00:00Z"}]`))
		case "/api/notifications/mark-read":
			marked.Store(true)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	fastPolling(t, srv.URL)

	out, err := execute(t, "notifications", "--mark-read")
	require.NoError(t, err)
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "has been transcribed successfully")
	assert.Contains(t, out, "Marked 1 notifications read.")
	assert.True(t, marked.Load())
	markRead = false
}

func TestTranslate_None(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	out, err := execute(t, "translate", "--to", "none", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "hello there\n", out)
	translateTo = "en"
}
