package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stageflow/internal/cli/output"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

// snapshotDetail is the structured form of a shown snapshot.
type snapshotDetail struct {
	snapshot.Summary `yaml:",inline"`
	Graph            stage.Graph `json:"graph" yaml:"graph"`
}

// NewSnapshotCommand creates the snapshot command and its subcommands.
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snapshots"},
		Short:   "Manage saved board snapshots",
		Long: `Manage the board snapshots saved from the editor.

Snapshots live in the SQLite database configured by snapshots.path
(default: .stageflow/snapshots.db).`,
	}

	cmd.AddCommand(newSnapshotListCommand())
	cmd.AddCommand(newSnapshotShowCommand())
	cmd.AddCommand(newSnapshotSaveCommand())
	cmd.AddCommand(newSnapshotDeleteCommand())
	cmd.AddCommand(newSnapshotPruneCommand())

	return cmd
}

func newSnapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenSnapshots()
			if err != nil {
				return err
			}
			defer cleanup()

			return listSnapshots(cmd.Context(), cmdCtx.Renderer, store)
		},
	}
}

func newSnapshotShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show the latest snapshot of a board, or a snapshot by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenSnapshots()
			if err != nil {
				return err
			}
			defer cleanup()

			return showSnapshot(cmd.Context(), cmdCtx.Renderer, store, args[0])
		},
	}
}

func newSnapshotSaveCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a diagram file as a snapshot",
		Example: `  # Make diagram.yaml the board "main" restores to
  stageflow snapshot save main --input diagram.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			g, _, err := buildGraph(&GraphOptions{Input: input}, cmdCtx.ManagerOptions()...)
			if err != nil {
				return err
			}

			store, cleanup, err := cmdCtx.OpenSnapshots()
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := store.Save(cmd.Context(), args[0], g)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Saved snapshot %s of %s (%d stages)", snap.ID, snap.Name, snap.Stages))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Diagram file (json or yaml)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newSnapshotDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete every snapshot of a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenSnapshots()
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Deleted %d snapshot(s) of %s", n, args[0]))
			return nil
		},
	}
}

func newSnapshotPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune <name>",
		Short: "Delete all but the newest snapshots of a board",
		Example: `  # Keep the three newest snapshots of main
  stageflow snapshot prune main --keep 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1, got %d", keep)
			}

			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenSnapshots()
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := store.Prune(cmd.Context(), args[0], keep)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Pruned %d snapshot(s) of %s", n, args[0]))
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 1, "Number of newest snapshots to keep")
	return cmd
}

func listSnapshots(ctx context.Context, r *output.Renderer, store *snapshot.Store) error {
	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []snapshot.Summary{}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(list)
	case output.ModeYAML:
		return r.YAML(list)
	}

	r.Header(1, fmt.Sprintf("Snapshots (%d total)", len(list)))
	r.Println("")
	if len(list) == 0 {
		r.Muted("No snapshots saved yet.")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.Stages),
			s.CreatedAt.Local().Format(time.DateTime),
			s.ID,
		})
	}
	r.Table([]string{"Name", "Stages", "Saved", "ID"}, rows)
	return nil
}

func showSnapshot(ctx context.Context, r *output.Renderer, store *snapshot.Store, key string) error {
	snap, err := store.Latest(ctx, key)
	if errors.Is(err, snapshot.ErrNotFound) {
		snap, err = store.Get(ctx, key)
	}
	if err != nil {
		return err
	}

	detail := snapshotDetail{
		Summary: snapshot.Summary{
			ID:        snap.ID,
			Name:      snap.Name,
			Stages:    snap.Stages,
			CreatedAt: snap.CreatedAt,
		},
		Graph: snap.Graph,
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(detail)
	case output.ModeYAML:
		return r.YAML(detail)
	}

	r.Header(1, "Snapshot "+snap.Name)
	r.Println("")
	r.Println(output.FormatKeyValue("ID", snap.ID))
	r.Println(output.FormatKeyValue("Stages", strconv.Itoa(snap.Stages)))
	r.Println(output.FormatKeyValue("Saved", snap.CreatedAt.Local().Format(time.DateTime)))
	r.Println("")
	return renderGraph(r, snap.Graph)
}
