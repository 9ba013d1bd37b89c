package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/tui"
)

// TUIOptions holds options for the tui command.
type TUIOptions struct {
	Input string
	Save  string
}

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	opts := &TUIOptions{}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit a stage graph in the terminal",
		Long: `Open an interactive terminal editor for one stage graph.

Keys: a add stage, ↑/↓ move, d delete the stage under the cursor,
c mark a connection source then c again on the target, esc cancel,
x remove the most recent connection, ? help, q quit.`,
		Example: `  # Start from the initial graph
  stageflow tui

  # Edit a diagram and save the result as snapshot "main"
  stageflow tui --input diagram.yaml --save main`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Diagram file (json or yaml) to start from")
	cmd.Flags().StringVar(&opts.Save, "save", "", "Save the graph as a snapshot with this name on quit")

	return cmd
}

func runTUI(cmd *cobra.Command, opts *TUIOptions) error {
	cmdCtx := NewCommandContext(cmd)

	g, _, err := buildGraph(&GraphOptions{Input: opts.Input}, cmdCtx.ManagerOptions()...)
	if err != nil {
		return err
	}
	m := stage.New(cmdCtx.ManagerOptions()...)
	if err := m.Restore(g); err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(m),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal editor failed: %w", err)
	}

	if opts.Save == "" {
		return nil
	}
	model, ok := final.(tui.Model)
	if !ok {
		return nil
	}

	store, cleanup, err := cmdCtx.OpenSnapshots()
	if err != nil {
		return err
	}
	defer cleanup()

	snap, err := store.Save(cmd.Context(), opts.Save, model.Graph())
	if err != nil {
		return err
	}
	cmdCtx.Renderer.Success(fmt.Sprintf("Saved snapshot %s of %s (%d stages)", snap.ID, snap.Name, snap.Stages))
	return nil
}
