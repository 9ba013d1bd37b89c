// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/testutil"
	"github.com/leapstack-labs/stageflow/internal/ui/notifier"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Registry     *board.Registry
	Snapshots    *snapshot.Store
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// FixtureOption customises a TestFixture.
type FixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	maxStages int
	snapshots bool
}

// WithMaxStages lowers the board stage cap.
func WithMaxStages(n int) FixtureOption {
	return func(c *fixtureConfig) { c.maxStages = n }
}

// WithoutSnapshots disables the snapshot store.
func WithoutSnapshots() FixtureOption {
	return func(c *fixtureConfig) { c.snapshots = false }
}

// SetupTestFixture creates a registry with deterministic ids, an
// in-memory snapshot store and a notifier wired to board changes.
func SetupTestFixture(t *testing.T, opts ...FixtureOption) *TestFixture {
	t.Helper()

	cfg := fixtureConfig{snapshots: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	notify := notifier.New()
	fixture := &TestFixture{
		Registry: board.NewRegistry(board.Config{
			MaxStages: cfg.maxStages,
			IDs:       stage.NewCounterIDs("t"),
			OnChange:  notify.Broadcast,
			Logger:    testutil.NewTestLogger(t),
		}),
		Notifier:     notify,
		SessionStore: NewTestSessionStore(),
	}

	if cfg.snapshots {
		store, err := snapshot.Open(snapshot.MemoryPath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		fixture.Snapshots = store
	}

	return fixture
}

// Board returns the named board, failing the test on an invalid name.
func (f *TestFixture) Board(t *testing.T, name string) *board.Board {
	t.Helper()
	b, ok := f.Registry.Get(name)
	require.True(t, ok, "invalid board name %q", name)
	return b
}

// RequestWithPathParams wraps a request with chi URL params given as
// key, value pairs.
func RequestWithPathParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
