package editor

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/ui/notifier"
)

// SetupRoutes registers the editor routes.
func SetupRoutes(
	router chi.Router,
	registry *board.Registry,
	snapshots *snapshot.Store,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	fitView stage.FitView,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(registry, snapshots, sessionStore, notify, fitView, logger)

	router.Get("/", handlers.Index)

	router.Route("/boards/{board}", func(r chi.Router) {
		// Page route (full page render with content)
		r.Get("/", handlers.BoardPage)
		// SSE route (live updates only)
		r.Get("/updates", handlers.BoardUpdates)

		r.Post("/stages", handlers.AddStage)
		r.Delete("/nodes/{id}", handlers.DeleteNode)
		r.Post("/nodes/{id}/position", handlers.MoveNode)
		r.Post("/edges", handlers.Connect)
		r.Delete("/edges/{id}", handlers.DeleteEdge)
		r.Get("/graph.{format}", handlers.Export)

		r.Post("/snapshots", handlers.SaveSnapshot)
		r.Post("/snapshots/{name}/restore", handlers.RestoreSnapshot)
	})

	return nil
}
