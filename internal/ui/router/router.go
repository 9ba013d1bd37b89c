// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
	editorFeature "github.com/leapstack-labs/stageflow/internal/ui/features/editor"
	"github.com/leapstack-labs/stageflow/internal/ui/notifier"
	"github.com/leapstack-labs/stageflow/internal/ui/resources"
)

// Deps are the shared services handed to every feature.
type Deps struct {
	Registry     *board.Registry
	Snapshots    *snapshot.Store
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	FitView      stage.FitView
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps) error {
	// Static assets
	router.Handle("/static/*", resources.Handler())

	// Feature routes
	return editorFeature.SetupRoutes(router,
		deps.Registry,
		deps.Snapshots,
		deps.SessionStore,
		deps.Notifier,
		deps.FitView,
		deps.Logger,
	)
}
