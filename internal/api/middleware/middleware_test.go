package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	h := rl.Handler(okHandler())

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)
	limited := do("1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, do("2.2.2.2").Code)

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)
	assert.Len(t, rl.buckets, 1)
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(8)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too long a body")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, rec.Body.String())
}

func TestLoggerKeepsFlusher(t *testing.T) {
	var flushed bool
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if assert.True(t, ok) {
			f.Flush()
			flushed = true
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tabs/1/directives", nil))
	assert.True(t, flushed)

	assert.True(t, silent("/api/jobs/abc/status"))
	assert.True(t, silent("/api/health"))
	assert.False(t, silent("/api/jobs"))
}

func TestCORSHandler(t *testing.T) {
	opts := CORSHandler(nil)
	assert.Equal(t, []string{"*"}, opts.AllowedOrigins)
	assert.False(t, opts.AllowCredentials)
	assert.Contains(t, opts.AllowedHeaders, "X-Tab-ID")

	opts = CORSHandler([]string{"chrome-extension://abc"})
	assert.True(t, opts.AllowCredentials)
}
