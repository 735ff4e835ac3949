package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Routes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body>hi</body></html>"), 0o600))

	metricsHit := false
	s := New(Options{
		Root:        root,
		MetricsPath: "/metrics",
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			metricsHit = true
			w.WriteHeader(http.StatusOK)
		}),
	})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, metricsHit)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "<html><body>hi</body></html>", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livereload.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "live reload is only mounted in watch mode")
}

func TestServer_WatchModeInjectsLiveReload(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body>hi</body></html>"), 0o600))

	s := New(Options{Root: root, Watch: true, SourceDir: t.TempDir(), Build: func(context.Context) error { return nil }})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), `<script async src="/livereload.js"></script></body>`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livereload.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EventSource")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "first build has not run yet")
}

func TestWatcher_InitialBuildAndRebuild(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(src, "dist")
	require.NoError(t, os.MkdirAll(out, 0o750))

	var builds atomic.Int32
	w := NewWatcher(src, []string{out}, func(context.Context) error {
		builds.Add(1)
		return nil
	}, NewLiveReloadHub(), nil)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("initial build did not complete")
	}
	assert.Equal(t, int32(1), builds.Load())

	// Writes into the output root must not trigger a rebuild loop.
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())

	require.NoError(t, os.WriteFile(filepath.Join(src, "index.html"), []byte("changed"), 0o600))
	require.Eventually(t, func() bool { return builds.Load() == 2 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_BuildErrorStillReady(t *testing.T) {
	w := NewWatcher(t.TempDir(), nil, func(context.Context) error { return assert.AnError }, nil, nil)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}
	assert.ErrorIs(t, w.LastError(), assert.AnError)
}

func TestShouldIgnoreEvent(t *testing.T) {
	for _, p := range []string{"/x/.hidden", "/x/page.html~", "/x/.page.html.swp", "/x/#page#"} {
		assert.True(t, shouldIgnoreEvent(p), p)
	}
	assert.False(t, shouldIgnoreEvent("/x/css/base.css"))
}
