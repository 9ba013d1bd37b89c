package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/testutil"
)

func writeSeed(t *testing.T, path string, stages int) stage.Graph {
	t.Helper()
	g := testutil.BuildGraph(t, stages)
	format, err := stage.FormatForPath(path)
	require.NoError(t, err)
	data, err := stage.Encode(g, format)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return g
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	cfg.SessionSecret = "test-secret-key-32-bytes-long!!"
	return NewServer(cfg)
}

func TestServer_Handler(t *testing.T) {
	s := newTestServer(t, Config{})
	h, err := s.Handler()
	require.NoError(t, err)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusSeeOther},
		{"/boards/main", http.StatusOK},
		{"/boards/main/graph.json", http.StatusOK},
		{"/static/stageflow.css", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestServer_DefaultFitView(t *testing.T) {
	s := newTestServer(t, Config{})
	assert.Equal(t, stage.DefaultFitView, s.fitView)

	custom := stage.FitView{Duration: time.Second, Padding: 0.2, MinZoom: 0.1, MaxZoom: 2}
	s = newTestServer(t, Config{FitView: custom})
	assert.Equal(t, custom, s.fitView)
}

func TestServer_ReloadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	want := writeSeed(t, path, 3)

	s := newTestServer(t, Config{SeedFile: path})
	main, ok := s.Registry().Get("main")
	require.True(t, ok)

	updates := s.Notifier().Subscribe("main")
	defer s.Notifier().Unsubscribe("main", updates)

	require.NoError(t, s.reloadSeed())
	assert.Equal(t, want, main.Graph())

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("reseeding the default board did not notify listeners")
	}

	fresh, _ := s.Registry().Get("fresh")
	assert.Equal(t, want, fresh.Graph())
}

func TestServer_ReloadSeedErrors(t *testing.T) {
	dir := t.TempDir()

	s := newTestServer(t, Config{SeedFile: filepath.Join(dir, "seed.txt")})
	assert.Error(t, s.reloadSeed(), "unknown extension")

	s = newTestServer(t, Config{SeedFile: filepath.Join(dir, "missing.json")})
	assert.Error(t, s.reloadSeed())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"stages":[],"nodes":[],"edges":[]}`), 0600))
	s = newTestServer(t, Config{SeedFile: bad})
	assert.ErrorIs(t, s.reloadSeed(), stage.ErrInvalidGraph)
}

func TestServer_WatchSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	writeSeed(t, path, 1)

	s := newTestServer(t, Config{SeedFile: path, Watch: true})
	require.NoError(t, s.reloadSeed())
	main, _ := s.Registry().Get("main")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.watchSeed(ctx) }()
	defer func() {
		// let any pending debounced reload finish before the test ends
		time.Sleep(150 * time.Millisecond)
		cancel()
		assert.NoError(t, <-done)
	}()

	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)
	writeSeed(t, path, 4)

	require.Eventually(t, func() bool {
		return len(main.Graph().Stages) == 4
	}, 2*time.Second, 20*time.Millisecond)
}
