// Package editor serves the stage graph editor: the board page, its live
// update stream and the endpoints the page calls for every user action.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/ui/notifier"
)

const (
	sessionName = "stageflow"
	sessionKey  = "board"
)

// Handlers provides HTTP handlers for the editor.
type Handlers struct {
	registry     *board.Registry
	snapshots    *snapshot.Store
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	fitView      stage.FitView
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance. snapshots may be nil to
// disable saving.
func NewHandlers(
	registry *board.Registry,
	snapshots *snapshot.Store,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	fitView stage.FitView,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		snapshots:    snapshots,
		sessionStore: sessionStore,
		notifier:     notify,
		fitView:      fitView,
		logger:       logger,
	}
}

// Index redirects to the board last opened in this browser.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	name := board.DefaultName
	if sess, err := h.sessionStore.Get(r, sessionName); err == nil {
		if last, ok := sess.Values[sessionKey].(string); ok && board.ValidName(last) {
			name = last
		}
	}
	http.Redirect(w, r, boardPath(name), http.StatusSeeOther)
}

// BoardPage renders the full editor page.
func (h *Handlers) BoardPage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	h.remember(w, r, b.Name())

	view, err := h.buildView(r, b)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := Page(b.Name(), view).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// BoardUpdates is the long-lived SSE stream of a board. It re-renders the
// toolbar and canvas whenever the board changes. The initial state is
// already part of BoardPage.
func (h *Handlers) BoardUpdates(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(b.Name())
	defer h.notifier.Unsubscribe(b.Name(), updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := h.sendBoard(r, sse, b); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// AddStage appends a stage and asks the page to re-fit the view.
func (h *Handlers) AddStage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sse := datastar.NewSSE(w, r)

	added := b.Do(func(m *stage.Manager) bool {
		_, ok := m.AddStage()
		return ok
	})
	if err := h.sendBoard(r, sse, b); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if !added {
		return
	}

	h.logger.Debug("stage added", "board", b.Name())
	box := h.fitView.ViewBox(b.Graph().Bounds(), ViewportWidth, ViewportHeight)
	_ = sse.MarshalAndPatchSignals(map[string]any{
		"fitView": FitViewSignal{
			Duration: h.fitView.Duration.Milliseconds(),
			Padding:  h.fitView.Padding,
			MinZoom:  h.fitView.MinZoom,
			MaxZoom:  h.fitView.MaxZoom,
			ViewBox:  viewBox(box),
		},
	})
}

// DeleteNode handles a node deletion reported by the page. Only stage
// containers are deletable; other ids are ignored.
func (h *Handlers) DeleteNode(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(m *stage.Manager) bool {
		_, ok := m.DeleteNodes([]string{chi.URLParam(r, "id")})
		return ok
	})
}

// Connect adds a user edge. Connections the node handles do not allow are
// ignored.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals ConnectSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}

	c := signals.Connection()
	h.mutate(w, r, func(m *stage.Manager) bool {
		if !stage.CanConnect(m.Graph(), c) {
			return false
		}
		m.Connect(c)
		return true
	})
}

// DeleteEdge removes a user edge.
func (h *Handlers) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(m *stage.Manager) bool {
		_, n := m.RemoveEdges([]string{chi.URLParam(r, "id")})
		return n > 0
	})
}

// MoveNode records a drag of a stage container.
func (h *Handlers) MoveNode(w http.ResponseWriter, r *http.Request) {
	var signals PositionSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}

	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(m *stage.Manager) bool {
		return m.MoveNode(id, stage.Position{X: signals.X, Y: signals.Y})
	})
}

// Export downloads the board graph as JSON or YAML.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	format, err := stage.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data, err := stage.Encode(b.Graph(), format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	contentType := "application/json"
	if format == stage.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.Name()+"."+string(format)))
	_, _ = w.Write(data)
}

// SaveSnapshot stores the board under the requested snapshot name, or
// the board name when none is given.
func (h *Handlers) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var signals SnapshotSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}

	sse := datastar.NewSSE(w, r)
	if h.snapshots == nil {
		_ = sse.ConsoleError(errors.New("snapshots are disabled"))
		return
	}

	name := strings.TrimSpace(signals.SnapshotName)
	if name == "" {
		name = b.Name()
	}
	if !board.ValidName(name) {
		_ = sse.ConsoleError(fmt.Errorf("invalid snapshot name %q", name))
		return
	}

	snap, err := h.snapshots.Save(r.Context(), name, b.Graph())
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	h.logger.Info("snapshot saved", "board", b.Name(), "snapshot", snap.Name, "id", snap.ID)
	// every open board lists the shared snapshots
	h.notifier.BroadcastAll()

	view, err := h.buildView(r, b)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := sse.PatchElementTempl(Snapshots(view)); err != nil {
		_ = sse.ConsoleError(err)
	}
	_ = sse.MarshalAndPatchSignals(map[string]any{"snapshotName": ""})
}

// RestoreSnapshot replaces the board with the newest snapshot of a name.
func (h *Handlers) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sse := datastar.NewSSE(w, r)
	if h.snapshots == nil {
		_ = sse.ConsoleError(errors.New("snapshots are disabled"))
		return
	}

	snap, err := h.snapshots.Latest(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	var restoreErr error
	b.Do(func(m *stage.Manager) bool {
		restoreErr = m.Restore(snap.Graph)
		return restoreErr == nil
	})
	if restoreErr != nil {
		_ = sse.ConsoleError(restoreErr)
		return
	}
	h.logger.Info("snapshot restored", "board", b.Name(), "snapshot", snap.Name, "id", snap.ID)

	if err := h.sendBoard(r, sse, b); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// mutate applies fn to the request's board and answers with the
// re-rendered board. Listeners of the board are notified by the registry.
func (h *Handlers) mutate(w http.ResponseWriter, r *http.Request, fn func(m *stage.Manager) bool) {
	b, ok := h.board(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sse := datastar.NewSSE(w, r)
	b.Do(fn)
	if err := h.sendBoard(r, sse, b); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) board(r *http.Request) (*board.Board, bool) {
	return h.registry.Get(chi.URLParam(r, "board"))
}

func (h *Handlers) remember(w http.ResponseWriter, r *http.Request, name string) {
	sess, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		// a stale cookie still yields a usable new session
		h.logger.Debug("session decode failed", "error", err)
	}
	if sess == nil {
		return
	}
	sess.Values[sessionKey] = name
	if err := sess.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}
}

// sendBoard patches the toolbar and canvas with the board's current state.
func (h *Handlers) sendBoard(r *http.Request, sse *datastar.ServerSentEventGenerator, b *board.Board) error {
	view, err := h.buildView(r, b)
	if err != nil {
		return err
	}
	if err := sse.PatchElementTempl(Toolbar(view)); err != nil {
		return err
	}
	return sse.PatchElementTempl(Canvas(view))
}

func (h *Handlers) buildView(r *http.Request, b *board.Board) (BoardView, error) {
	g, canAdd := b.State()
	view := BoardView{
		Board:     b.Name(),
		Graph:     g,
		CanAdd:    canAdd,
		MaxStages: h.registry.MaxStages(),
		ViewBox:   h.fitView.ViewBox(g.Bounds(), ViewportWidth, ViewportHeight),
		Persist:   h.snapshots != nil,
	}
	if h.snapshots == nil {
		return view, nil
	}

	list, err := h.snapshots.List(r.Context())
	if err != nil {
		return view, fmt.Errorf("failed to list snapshots: %w", err)
	}
	view.Snapshots = list
	return view, nil
}
