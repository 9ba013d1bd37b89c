package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/stageflow/internal/cli/config"
	"github.com/leapstack-labs/stageflow/internal/cli/output"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

// exampleDiagram is the seed diagram written by init --example.
const exampleDiagram = "diagram.yaml"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a stageflow project",
		Long: `Initialize a stageflow project with a default stageflow.yaml.

Use --example to also write a three-stage diagram.yaml and point the
editor's seed_file at it, so every new board starts from that diagram.`,
		Example: `  # Initialize in current directory
  stageflow init

  # Initialize with an example seed diagram
  stageflow init --example

  # Force overwrite existing config
  stageflow init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, force, example)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Write an example seed diagram")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, example bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "stageflow.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("stageflow.yaml already exists. Use --force to overwrite")
	}

	seedFile := ""
	if example {
		seedFile = exampleDiagram
		data, err := stage.Encode(exampleGraph(), stage.FormatYAML)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, exampleDiagram), data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", exampleDiagram, err)
		}
	}

	data, err := initialConfig(seedFile)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write stageflow.yaml: %w", err)
	}

	r.Success("Created stageflow.yaml")
	if example {
		r.Success("Created " + exampleDiagram)
	}
	r.Println("")
	r.Println("Next steps:")
	r.Println("  stageflow ui      Edit boards in the browser")
	r.Println("  stageflow tui     Edit a board in the terminal")
	r.Println("  stageflow graph   Print a stage graph")

	return nil
}

// initialConfig renders the default configuration as YAML, in the same
// shape the loader reads.
func initialConfig(seedFile string) ([]byte, error) {
	d := config.Default()

	doc := map[string]any{
		"max_stages": d.MaxStages,
		"output":     d.OutputFormat,
		"log_level":  d.LogLevel,
		"snapshots": map[string]any{
			"path": d.Snapshots.Path,
			"keep": d.Snapshots.Keep,
		},
		"ui": map[string]any{
			"port":       d.UI.Port,
			"auto_open":  d.UI.AutoOpen,
			"watch":      d.UI.Watch,
			"seed_file":  seedFile,
			"max_boards": d.UI.MaxBoards,
		},
		"fit_view": map[string]any{
			"duration": d.FitView.Duration.String(),
			"padding":  d.FitView.Padding,
			"min_zoom": d.FitView.MinZoom,
			"max_zoom": d.FitView.MaxZoom,
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return append([]byte("# stageflow configuration\n"), data...), nil
}

// exampleGraph is three stages with the last step of the first stage
// feeding the third stage.
func exampleGraph() stage.Graph {
	m := stage.New()
	m.AddStage()
	m.AddStage()
	g := m.Graph()

	steps := g.StepsOf(stage.ParentID(0))
	m.Connect(stage.Connection{Source: steps[len(steps)-1].ID, SourceHandle: "b", Target: stage.ParentID(2)})
	return m.Graph()
}
