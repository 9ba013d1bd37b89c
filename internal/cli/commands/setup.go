package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stageflow/internal/cli/config"
	"github.com/leapstack-labs/stageflow/internal/cli/output"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	mode := output.Mode(cfg.OutputFormat)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// OpenSnapshots opens the configured snapshot database.
// Returns the store and a cleanup function that must be called (typically via defer).
func (c *CommandContext) OpenSnapshots() (*snapshot.Store, func(), error) {
	store, err := snapshot.Open(c.Cfg.Snapshots.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshots: %w", err)
	}
	store.SetRetention(c.Cfg.Snapshots.Keep)

	version, err := store.MigrationVersion()
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to read snapshot schema version: %w", err)
	}
	c.Logger.Debug("snapshot store opened", "path", store.Path(), "schema_version", version)

	return store, func() { _ = store.Close() }, nil
}

// ManagerOptions returns the stage options implied by the configuration.
func (c *CommandContext) ManagerOptions() []stage.Option {
	return []stage.Option{stage.WithMaxStages(c.Cfg.MaxStages)}
}

// getConfig returns the current configuration, or the defaults when the
// command runs outside the root command (as in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}
