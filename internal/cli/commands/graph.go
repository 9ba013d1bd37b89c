package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stageflow/internal/cli/output"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

// GraphOptions holds options for the graph command.
type GraphOptions struct {
	Input   string
	Stages  int
	Delete  []string
	Connect []string
}

// graphReport is the structured form of the graph command's output.
type graphReport struct {
	Stages int         `json:"stages" yaml:"stages"`
	Valid  bool        `json:"valid" yaml:"valid"`
	Errors []string    `json:"errors,omitempty" yaml:"errors,omitempty"`
	Graph  stage.Graph `json:"graph" yaml:"graph"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &GraphOptions{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build a stage graph and print it",
		Long: `Build a stage graph by applying operations to the initial graph (or a
diagram file) and print the result.

Operations run in order: stages are appended up to --stages, then the
--delete node ids are removed, then --connect edges are drawn.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # Show a three-stage graph
  stageflow graph --stages 3

  # Delete the second stage of four
  stageflow graph --stages 4 --delete 1

  # Connect two stages, step handles are optional (node[:handle])
  stageflow graph --stages 2 --connect "0->1"

  # Load a diagram file and export it as YAML
  stageflow graph --input diagram.json -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			g, warnings, err := buildGraph(opts, cmdCtx.ManagerOptions()...)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				cmdCtx.Renderer.Warning(w)
			}
			return renderGraph(cmdCtx.Renderer, g)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Diagram file (json or yaml) to start from")
	cmd.Flags().IntVar(&opts.Stages, "stages", 0, "Append stages until the graph has this many")
	cmd.Flags().StringSliceVar(&opts.Delete, "delete", nil, "Node ids to delete (stage ids are parent ids)")
	cmd.Flags().StringSliceVar(&opts.Connect, "connect", nil, "Connections as source[:handle]->target[:handle]")

	return cmd
}

// buildGraph applies opts to a fresh manager. Operations that do nothing
// are reported as warnings, not errors.
func buildGraph(opts *GraphOptions, managerOpts ...stage.Option) (stage.Graph, []string, error) {
	m := stage.New(managerOpts...)
	var warnings []string

	if opts.Input != "" {
		format, err := stage.FormatForPath(opts.Input)
		if err != nil {
			return stage.Graph{}, nil, err
		}
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return stage.Graph{}, nil, fmt.Errorf("failed to read diagram: %w", err)
		}
		g, err := stage.Decode(data, format)
		if err != nil {
			return stage.Graph{}, nil, fmt.Errorf("failed to load %s: %w", opts.Input, err)
		}
		if err := m.Restore(g); err != nil {
			return stage.Graph{}, nil, fmt.Errorf("failed to load %s: %w", opts.Input, err)
		}
	}

	for m.StageCount() < opts.Stages {
		if _, ok := m.AddStage(); !ok {
			warnings = append(warnings, fmt.Sprintf("stage cap of %d reached", m.MaxStages()))
			break
		}
	}

	if len(opts.Delete) > 0 {
		if _, ok := m.DeleteNodes(opts.Delete); !ok {
			warnings = append(warnings, fmt.Sprintf("nothing deleted for %s", strings.Join(opts.Delete, ", ")))
		}
	}

	for _, spec := range opts.Connect {
		c, err := parseConnection(spec)
		if err != nil {
			return stage.Graph{}, nil, err
		}
		if !stage.CanConnect(m.Graph(), c) {
			warnings = append(warnings, fmt.Sprintf("%s does not join a source handle to a target handle", spec))
			continue
		}
		m.Connect(c)
	}

	return m.Graph(), warnings, nil
}

// parseConnection parses "source[:handle]->target[:handle]".
func parseConnection(s string) (stage.Connection, error) {
	src, tgt, ok := strings.Cut(s, "->")
	if !ok || strings.TrimSpace(src) == "" || strings.TrimSpace(tgt) == "" {
		return stage.Connection{}, fmt.Errorf("invalid connection %q (want source[:handle]->target[:handle])", s)
	}

	var c stage.Connection
	c.Source, c.SourceHandle, _ = strings.Cut(strings.TrimSpace(src), ":")
	c.Target, c.TargetHandle, _ = strings.Cut(strings.TrimSpace(tgt), ":")
	return c, nil
}

func renderGraph(r *output.Renderer, g stage.Graph) error {
	report := graphReport{Stages: len(g.Stages), Valid: true, Graph: g}
	if err := g.Validate(); err != nil {
		report.Valid = false
		report.Errors = validationMessages(err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(report)
	case output.ModeYAML:
		return r.YAML(report)
	default:
		graphTables(r, report)
		return nil
	}
}

func graphTables(r *output.Renderer, report graphReport) {
	g := report.Graph

	r.Header(1, fmt.Sprintf("Stage graph (%d stages)", report.Stages))
	r.Println("")

	rows := make([][]string, 0, len(g.Stages))
	for _, p := range g.Parents() {
		steps := g.StepsOf(p.ID)
		names := make([]string, 0, len(steps))
		for _, s := range steps {
			names = append(names, fmt.Sprintf("%s (%s)", s.Data.Step, s.ID))
		}
		rows = append(rows, []string{
			p.ID,
			p.Data.Label,
			fmt.Sprintf("%s,%s", formatCoord(p.Position.X), formatCoord(p.Position.Y)),
			strings.Join(names, " > "),
		})
	}
	r.Table([]string{"ID", "Label", "Position", "Steps"}, rows)
	r.Println("")

	r.Header(2, "Edges")
	r.Println("")
	edgeRows := make([][]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		edgeRows = append(edgeRows, []string{
			e.ID,
			string(e.Kind),
			endpoint(e.Source, e.SourceHandle),
			endpoint(e.Target, e.TargetHandle),
			strconv.FormatBool(e.Deletable),
		})
	}
	r.Table([]string{"ID", "Kind", "Source", "Target", "Deletable"}, edgeRows)
	r.Println("")

	if report.Valid {
		r.Success("graph satisfies the stage invariants")
		return
	}
	for _, msg := range report.Errors {
		r.Error(msg)
	}
}

func endpoint(node, handle string) string {
	if handle == "" {
		return node
	}
	return node + ":" + handle
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// validationMessages flattens a joined validation error into lines.
func validationMessages(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, validationMessages(e)...)
		}
		return msgs
	}
	return []string{err.Error()}
}
