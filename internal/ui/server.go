// Package ui serves the browser editor for stage graphs.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/ui/notifier"
	"github.com/leapstack-labs/stageflow/internal/ui/router"
)

// Server is the main UI server.
type Server struct {
	registry     *board.Registry
	snapshots    *snapshot.Store
	sessionStore *sessions.CookieStore
	notifier     *notifier.Notifier
	port         int
	watch        bool
	seedFile     string
	fitView      stage.FitView
	logger       *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	MaxStages int
	// MaxBoards caps the open boards; zero uses board.DefaultMaxBoards.
	MaxBoards int
	// IDs overrides the id token source; nil uses random ids.
	IDs stage.IDSource
	// Snapshots enables saving and restoring boards. May be nil.
	Snapshots *snapshot.Store
	Port      int
	Watch     bool
	// SeedFile is an optional diagram file (JSON or YAML) new boards start
	// from. With Watch set it is reloaded on change.
	SeedFile      string
	SessionSecret string
	FitView       stage.FitView
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	notify := notifier.New()
	registry := board.NewRegistry(board.Config{
		MaxStages: cfg.MaxStages,
		MaxBoards: cfg.MaxBoards,
		IDs:       cfg.IDs,
		OnChange:  notify.Broadcast,
		Logger:    logger,
	})

	fitView := cfg.FitView
	if fitView == (stage.FitView{}) {
		fitView = stage.DefaultFitView
	}

	return &Server{
		registry:     registry,
		snapshots:    cfg.Snapshots,
		sessionStore: sessionStore,
		notifier:     notify,
		port:         cfg.Port,
		watch:        cfg.Watch,
		seedFile:     cfg.SeedFile,
		fitView:      fitView,
		logger:       logger,
	}
}

// Registry returns the boards served by this server.
func (s *Server) Registry() *board.Registry {
	return s.registry
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler builds the HTTP handler with all middleware and routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, router.Deps{
		Registry:     s.registry,
		Snapshots:    s.snapshots,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		FitView:      s.fitView,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s.seedFile != "" {
		if err := s.reloadSeed(); err != nil {
			return err
		}
	}

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.seedFile != "" {
		eg.Go(func() error {
			return s.watchSeed(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// reloadSeed reads the seed file and makes it the starting graph of every
// new board. The default board is reset to it.
func (s *Server) reloadSeed() error {
	format, err := stage.FormatForPath(s.seedFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(s.seedFile)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	g, err := stage.Decode(data, format)
	if err != nil {
		return fmt.Errorf("invalid seed file %s: %w", s.seedFile, err)
	}
	return s.registry.Reseed(g)
}

// watchSeed reloads the seed file when it changes. The parent directory
// is watched so editors that replace the file on save are picked up.
func (s *Server) watchSeed(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target, err := filepath.Abs(s.seedFile)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch seed file", "error", err)
		// Don't fail - continue without watching
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("seed file changed, reloading", "file", event.Name)
				if err := s.reloadSeed(); err != nil {
					s.logger.Error("seed reload failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
