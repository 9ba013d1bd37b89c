package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/mcpserver"
)

// MCPOptions holds options for the mcp command.
type MCPOptions struct {
	Input         string
	Board         string
	WithSnapshots bool
}

// NewMCPCommand creates the mcp command.
func NewMCPCommand(version string) *cobra.Command {
	opts := &MCPOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve a stage graph to MCP clients over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools: get_graph, add_stage, delete_stage, connect, remove_edge,
validate_graph, and with snapshots enabled save_snapshot and
restore_snapshot. The graph is also readable as the resource
stageflow://graph.`,
		Example: `  # Serve the initial graph
  stageflow mcp

  # Serve a diagram and allow saving it
  stageflow mcp --input diagram.yaml --snapshots-enabled`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, opts, version)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Diagram file (json or yaml) to start from")
	cmd.Flags().StringVar(&opts.Board, "board", board.DefaultName, "Board name, used as the default snapshot name")
	cmd.Flags().BoolVar(&opts.WithSnapshots, "snapshots-enabled", false, "Expose the save_snapshot and restore_snapshot tools")

	return cmd
}

func runMCP(cmd *cobra.Command, opts *MCPOptions, version string) error {
	cmdCtx := NewCommandContext(cmd)

	registry := board.NewRegistry(board.Config{
		MaxStages: cmdCtx.Cfg.MaxStages,
		Logger:    cmdCtx.Logger,
	})
	if opts.Input != "" {
		g, _, err := buildGraph(&GraphOptions{Input: opts.Input}, cmdCtx.ManagerOptions()...)
		if err != nil {
			return err
		}
		if err := registry.Reseed(g); err != nil {
			return err
		}
	}

	// boards created after the reseed start from the seed
	b, ok := registry.Get(opts.Board)
	if !ok {
		return fmt.Errorf("invalid board name %q", opts.Board)
	}

	cfg := mcpserver.Config{
		Version: version,
		Board:   b,
		Logger:  cmdCtx.Logger,
	}
	if opts.WithSnapshots {
		store, cleanup, err := cmdCtx.OpenSnapshots()
		if err != nil {
			return err
		}
		defer cleanup()
		cfg.Snapshots = store
	}

	return mcpserver.New(cfg).Run(cmd.Context())
}
