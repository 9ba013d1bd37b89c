package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stageflow/internal/cli/config"
	"github.com/leapstack-labs/stageflow/internal/ui"
)

// devSessionSecret signs session cookies when nothing else is configured.
const devSessionSecret = "stageflow-dev-secret-change-in-production" //nolint:gosec

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Seed      string
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the browser editor",
		Long: `Start a local web server serving the stage diagram editor.

The editor provides:
- One board per URL (/boards/{name}), shared live between tabs
- Add, delete and connect stages; drag stages around
- JSON, YAML and XML export
- Saved snapshots per board

With a seed file, new boards start from that diagram; with --watch the
file is reloaded whenever it changes.`,
		Example: `  # Start UI on default port
  stageflow ui

  # Start on custom port
  stageflow ui --port 3000

  # Seed boards from a diagram and follow edits to it
  stageflow ui --seed diagram.yaml --watch

  # Start without auto-opening browser
  stageflow ui --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload the seed file when it changes")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "Diagram file (json or yaml) new boards start from")

	return cmd
}

// serverConfig merges the loaded configuration with the command flags.
func serverConfig(cmd *cobra.Command, cfg *config.Config, opts *UIOptions) ui.Config {
	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	seed := cfg.UI.SeedFile
	if opts.Seed != "" {
		seed = opts.Seed
	}

	return ui.Config{
		MaxStages:     cfg.MaxStages,
		MaxBoards:     cfg.UI.MaxBoards,
		Port:          port,
		Watch:         watch,
		SeedFile:      seed,
		SessionSecret: sessionSecret(cfg),
		FitView:       cfg.FitView.StageFitView(),
	}
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	serverCfg := serverConfig(cmd, cfg, opts)
	serverCfg.Logger = logger

	if cfg.Snapshots.Path != "" {
		store, cleanup, err := cmdCtx.OpenSnapshots()
		if err != nil {
			return err
		}
		defer cleanup()
		serverCfg.Snapshots = store
	}

	server := ui.NewServer(serverCfg)

	autoOpen := cfg.UI.AutoOpen && !opts.NoBrowser
	url := fmt.Sprintf("http://localhost:%d", serverCfg.Port)
	if autoOpen {
		go openBrowser(url)
	}

	r := cmdCtx.Renderer
	r.Println("Starting UI server on " + url)
	r.Muted("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// sessionSecret returns the configured cookie secret, falling back to
// STAGEFLOW_SESSION_SECRET and then a fixed development secret.
func sessionSecret(cfg *config.Config) string {
	if cfg.UI.SessionSecret != "" {
		return cfg.UI.SessionSecret
	}
	if secret := os.Getenv("STAGEFLOW_SESSION_SECRET"); secret != "" {
		return secret
	}
	return devSessionSecret
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	ctx := context.Background()
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
