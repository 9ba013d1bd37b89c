package editor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/testutil"
	"github.com/leapstack-labs/stageflow/internal/ui/features"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupTestRouter(t *testing.T, opts ...features.FixtureOption) (http.Handler, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, opts...)
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r,
		fixture.Registry,
		fixture.Snapshots,
		fixture.SessionStore,
		fixture.Notifier,
		stage.DefaultFitView,
		testutil.NewTestLogger(t),
	))
	return r, fixture
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func events(body string) int {
	return strings.Count(body, "event:")
}

// =============================================================================
// Page Tests
// =============================================================================

func TestBoardPage(t *testing.T) {
	h, _ := setupTestRouter(t)

	rec := do(t, h, http.MethodGet, "/boards/main", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>main - Stageflow</title>",
		"data-init",
		"/boards/main/updates",
		`id="canvas"`,
		`id="toolbar"`,
		`id="snapshots"`,
		"Stage 1",
		"1 / 10 stages",
		"Formulation",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
	assert.NotContains(t, body, "disabled>Add Stage")
	assert.NotEmpty(t, rec.Result().Cookies(), "the board is remembered in the session")
}

func TestBoardPage_InvalidBoard(t *testing.T) {
	h, _ := setupTestRouter(t)

	rec := do(t, h, http.MethodGet, "/boards/-bad", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndex_RedirectsToLastBoard(t *testing.T) {
	h, _ := setupTestRouter(t)

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/boards/main", rec.Header().Get("Location"))

	page := do(t, h, http.MethodGet, "/boards/lab", "")
	require.Equal(t, http.StatusOK, page.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range page.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/boards/lab", rec.Header().Get("Location"))
}

// =============================================================================
// Mutation Tests
// =============================================================================

func TestAddStage(t *testing.T) {
	h, fixture := setupTestRouter(t)

	rec := do(t, h, http.MethodPost, "/boards/main/stages", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.GreaterOrEqual(t, events(body), 3, "toolbar, canvas and fit-view patches")
	assert.Contains(t, body, "Stage 2")
	assert.Contains(t, body, "fitView")
	assert.Contains(t, body, `"duration":800`)

	g := fixture.Board(t, "main").Graph()
	assert.Equal(t, []string{"Stage 1", "Stage 2"}, g.Stages)
}

func TestAddStage_AtCapDisablesButton(t *testing.T) {
	h, fixture := setupTestRouter(t, features.WithMaxStages(2))

	first := do(t, h, http.MethodPost, "/boards/main/stages", "")
	assert.Contains(t, first.Body.String(), "disabled>Add Stage")

	second := do(t, h, http.MethodPost, "/boards/main/stages", "")
	assert.Contains(t, second.Body.String(), "disabled>Add Stage")
	assert.NotContains(t, second.Body.String(), "fitView", "a refused add does not re-fit")

	assert.Len(t, fixture.Board(t, "main").Graph().Stages, 2)
}

func TestDeleteNode(t *testing.T) {
	h, fixture := setupTestRouter(t)
	b := fixture.Board(t, "main")

	do(t, h, http.MethodPost, "/boards/main/stages", "")
	do(t, h, http.MethodPost, "/boards/main/stages", "")
	require.Len(t, b.Graph().Stages, 3)

	rec := do(t, h, http.MethodDelete, "/boards/main/nodes/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, b.Graph().Stages, 2)
	require.NoError(t, b.Graph().Validate())

	// step nodes are not deletable
	step := b.Graph().StepsOf("0")[0]
	do(t, h, http.MethodDelete, "/boards/main/nodes/"+step.ID, "")
	assert.Len(t, b.Graph().Nodes, 10)
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantEdges int
	}{
		{
			name:      "parent to step target handle",
			body:      `{"source":"0","target":"t1_1","targetHandle":"a"}`,
			wantEdges: 1,
		},
		{
			name:      "step right handle to step left handle",
			body:      `{"source":"t1_1","sourceHandle":"b","target":"t1_3","targetHandle":"a"}`,
			wantEdges: 1,
		},
		{
			name:      "unknown source handle is ignored",
			body:      `{"source":"t1_1","sourceHandle":"zz","target":"t1_3"}`,
			wantEdges: 0,
		},
		{
			name:      "last step has no bottom source handle",
			body:      `{"source":"t1_4","sourceHandle":"","target":"0"}`,
			wantEdges: 1, // falls through to its right-hand handle
		},
		{
			name:      "unknown node is ignored",
			body:      `{"source":"nope","target":"0"}`,
			wantEdges: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestRouter(t)

			rec := do(t, h, http.MethodPost, "/boards/main/edges", tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.GreaterOrEqual(t, events(rec.Body.String()), 1)

			g := fixture.Board(t, "main").Graph()
			assert.Len(t, g.EdgesOf(stage.EdgeUser), tt.wantEdges)
		})
	}
}

func TestConnect_BadSignals(t *testing.T) {
	h, fixture := setupTestRouter(t)

	rec := do(t, h, http.MethodPost, "/boards/main/edges", "{not json")
	assert.Contains(t, rec.Body.String(), "failed to read signals")
	assert.Empty(t, fixture.Board(t, "main").Graph().EdgesOf(stage.EdgeUser))
}

func TestDeleteEdge(t *testing.T) {
	h, fixture := setupTestRouter(t)
	b := fixture.Board(t, "main")

	do(t, h, http.MethodPost, "/boards/main/stages", "")
	do(t, h, http.MethodPost, "/boards/main/edges", `{"source":"0","target":"1"}`)
	user := b.Graph().EdgesOf(stage.EdgeUser)
	require.Len(t, user, 1)

	rec := do(t, h, http.MethodDelete, "/boards/main/edges/"+user[0].ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, b.Graph().EdgesOf(stage.EdgeUser))

	// fixed topology edges cannot be removed
	do(t, h, http.MethodDelete, "/boards/main/edges/0-%3E1", "")
	assert.Len(t, b.Graph().EdgesOf(stage.EdgeInterStage), 1)
}

func TestMoveNode(t *testing.T) {
	h, fixture := setupTestRouter(t)
	b := fixture.Board(t, "main")

	rec := do(t, h, http.MethodPost, "/boards/main/nodes/0/position", `{"x":40,"y":-20}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	parent, ok := b.Graph().Node("0")
	require.True(t, ok)
	assert.Equal(t, stage.Position{X: 40, Y: -20}, parent.Position)

	// steps are not draggable
	do(t, h, http.MethodPost, "/boards/main/nodes/t1_1/position", `{"x":1,"y":1}`)
	step, _ := b.Graph().Node("t1_1")
	assert.Equal(t, stage.Position{X: 20, Y: 35}, step.Position)
}

// =============================================================================
// Export Tests
// =============================================================================

func TestExport(t *testing.T) {
	h, fixture := setupTestRouter(t)
	do(t, h, http.MethodPost, "/boards/main/stages", "")
	want := fixture.Board(t, "main").Graph()

	tests := []struct {
		path        string
		format      stage.Format
		contentType string
	}{
		{"/boards/main/graph.json", stage.FormatJSON, "application/json"},
		{"/boards/main/graph.yaml", stage.FormatYAML, "application/yaml"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "main."+string(tt.format))

			got, err := stage.Decode(rec.Body.Bytes(), tt.format)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	rec := do(t, h, http.MethodGet, "/boards/main/graph.xml", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Snapshot Tests
// =============================================================================

func TestSnapshots_SaveAndRestore(t *testing.T) {
	h, fixture := setupTestRouter(t)
	b := fixture.Board(t, "main")
	saved := b.Graph()

	rec := do(t, h, http.MethodPost, "/boards/main/snapshots", `{"snapshotName":"v1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/boards/main/snapshots/v1/restore")

	snap, err := fixture.Snapshots.Latest(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, saved, snap.Graph)

	do(t, h, http.MethodPost, "/boards/main/stages", "")
	require.Len(t, b.Graph().Stages, 2)

	rec = do(t, h, http.MethodPost, "/boards/main/snapshots/v1/restore", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, saved, b.Graph())
}

func TestSnapshots_DefaultName(t *testing.T) {
	h, fixture := setupTestRouter(t)

	do(t, h, http.MethodPost, "/boards/lab/snapshots", `{"snapshotName":"  "}`)

	_, err := fixture.Snapshots.Latest(context.Background(), "lab")
	assert.NoError(t, err)
}

func TestSnapshots_Errors(t *testing.T) {
	h, _ := setupTestRouter(t)

	rec := do(t, h, http.MethodPost, "/boards/main/snapshots/missing/restore", "")
	assert.Contains(t, rec.Body.String(), "console.error")

	rec = do(t, h, http.MethodPost, "/boards/main/snapshots", `{"snapshotName":"../x"}`)
	assert.Contains(t, rec.Body.String(), "invalid snapshot name")
}

func TestSnapshots_Disabled(t *testing.T) {
	h, _ := setupTestRouter(t, features.WithoutSnapshots())

	page := do(t, h, http.MethodGet, "/boards/main", "")
	assert.NotContains(t, page.Body.String(), `id="snapshots"`)

	rec := do(t, h, http.MethodPost, "/boards/main/snapshots", `{}`)
	assert.Contains(t, rec.Body.String(), "snapshots are disabled")
}

// =============================================================================
// BoardUpdates Tests - SSE endpoint for live updates only
// =============================================================================

func TestBoardUpdates_SendsUpdateOnChange(t *testing.T) {
	h, fixture := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/boards/main/updates", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	// let the stream subscribe, then change the board from elsewhere
	time.Sleep(50 * time.Millisecond)
	fixture.Board(t, "main").Do(func(m *stage.Manager) bool {
		_, ok := m.AddStage()
		return ok
	})

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, events(body), 2, "toolbar and canvas patches")
	assert.Contains(t, body, "Stage 2")
}

func TestBoardUpdates_NoInitialState(t *testing.T) {
	h, fixture := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/boards/main/updates", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 100*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	// changes to another board are not streamed here
	time.Sleep(30 * time.Millisecond)
	fixture.Board(t, "other").Do(func(m *stage.Manager) bool {
		_, ok := m.AddStage()
		return ok
	})

	<-done
	assert.Equal(t, 0, events(rec.Body.String()))
}

func TestBoardUpdates_SnapshotSaveRefreshesOtherBoards(t *testing.T) {
	h, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/boards/lab/updates", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	// the save happens on main, the lab view lists the new snapshot
	time.Sleep(50 * time.Millisecond)
	saved := do(t, h, http.MethodPost, "/boards/main/snapshots", `{"snapshotName":"v1"}`)
	require.Equal(t, http.StatusOK, saved.Code)

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, events(body), 2, "toolbar and canvas patches")
	assert.Contains(t, body, "/boards/lab/snapshots/v1/restore")
}
