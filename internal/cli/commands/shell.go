package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/cli/output"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

const shellPrompt = "stageflow> "

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	var input string
	var name string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Edit a stage graph from an interactive prompt",
		Long: `Start a line-oriented editor for one stage graph.

Type .help for the command list. History is kept next to the snapshot
database; tab completes commands, stage ids and edge ids.`,
		Example: `  # Start from the initial graph
  stageflow shell

  # Edit a diagram, saving snapshots under "lab"
  stageflow shell --input diagram.yaml --name lab`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, input, name)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Diagram file (json or yaml) to start from")
	cmd.Flags().StringVar(&name, "name", board.DefaultName, "Default snapshot name for save and restore")

	return cmd
}

func runShell(cmd *cobra.Command, input, name string) error {
	cmdCtx := NewCommandContext(cmd)

	g, _, err := buildGraph(&GraphOptions{Input: input}, cmdCtx.ManagerOptions()...)
	if err != nil {
		return err
	}
	m := stage.New(cmdCtx.ManagerOptions()...)
	if err := m.Restore(g); err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenSnapshots()
	if err != nil {
		return err
	}
	defer cleanup()

	sess := &shellSession{
		ctx:     cmd.Context(),
		manager: m,
		r:       cmdCtx.Renderer,
		store:   store,
		name:    name,
	}

	// Setup history file (project-local)
	historyFile := ""
	if dir := filepath.Dir(cmdCtx.Cfg.Snapshots.Path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err == nil {
			historyFile = filepath.Join(dir, "shell_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    sess.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stageflow shell (%d stages)\n", m.StageCount())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if sess.exec(line) {
			break
		}
	}
	return nil
}

// shellSession applies shell commands to one manager.
type shellSession struct {
	ctx     context.Context
	manager *stage.Manager
	r       *output.Renderer
	store   *snapshot.Store
	name    string
}

// exec runs one input line and reports whether the shell should exit.
func (s *shellSession) exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	command, args := strings.ToLower(parts[0]), parts[1:]

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(s.r)

	case ".clear":
		s.r.Printf("\033[H\033[2J")

	case "add":
		if _, ok := s.manager.AddStage(); !ok {
			s.r.Warning(fmt.Sprintf("stage cap of %d reached", s.manager.MaxStages()))
			return false
		}
		s.r.Success("added " + stage.StageLabel(s.manager.StageCount()-1))

	case "delete":
		if len(args) == 0 {
			s.r.Error("usage: delete <stage-id>...")
			return false
		}
		if _, ok := s.manager.DeleteNodes(args); !ok {
			s.r.Warning("nothing deleted (unknown id, or the only stage)")
			return false
		}
		s.r.Success(fmt.Sprintf("%d stages remain", s.manager.StageCount()))

	case "connect":
		s.connect(args)

	case "unlink":
		if len(args) == 0 {
			s.r.Error("usage: unlink <edge-id>...")
			return false
		}
		_, n := s.manager.RemoveEdges(args)
		if n == 0 {
			s.r.Warning("no deletable edge removed")
			return false
		}
		s.r.Success(fmt.Sprintf("removed %d edge(s)", n))

	case "show":
		if err := renderGraph(s.r, s.manager.Graph()); err != nil {
			s.r.Error(err.Error())
		}

	case "validate":
		if err := s.manager.Validate(); err != nil {
			for _, msg := range validationMessages(err) {
				s.r.Error(msg)
			}
			return false
		}
		s.r.Success("graph satisfies the stage invariants")

	case "export":
		s.export(args)

	case "save":
		s.save(args)

	case "restore":
		s.restore(args)

	default:
		s.r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (s *shellSession) connect(args []string) {
	var spec string
	switch len(args) {
	case 1:
		spec = args[0]
	case 2:
		spec = args[0] + "->" + args[1]
	default:
		s.r.Error("usage: connect <source[:handle]> <target[:handle]>")
		return
	}

	c, err := parseConnection(spec)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	if !stage.CanConnect(s.manager.Graph(), c) {
		s.r.Warning(fmt.Sprintf("%s cannot connect to %s with those handles", c.Source, c.Target))
		return
	}
	edge, _ := s.manager.Connect(c)
	s.r.Success("added edge " + edge.ID)
}

func (s *shellSession) export(args []string) {
	name := "json"
	if len(args) > 0 {
		name = args[0]
	}
	format, err := stage.ParseFormat(name)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	data, err := stage.Encode(s.manager.Graph(), format)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	s.r.Printf("%s", data)
}

func (s *shellSession) snapshotName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.name
}

func (s *shellSession) save(args []string) {
	if s.store == nil {
		s.r.Error("snapshots are not available")
		return
	}
	snap, err := s.store.Save(s.ctx, s.snapshotName(args), s.manager.Graph())
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	s.r.Success(fmt.Sprintf("saved %s as %s", snap.Name, snap.ID))
}

func (s *shellSession) restore(args []string) {
	if s.store == nil {
		s.r.Error("snapshots are not available")
		return
	}
	snap, err := s.store.Latest(s.ctx, s.snapshotName(args))
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	if err := s.manager.Restore(snap.Graph); err != nil {
		s.r.Error(err.Error())
		return
	}
	s.r.Success(fmt.Sprintf("restored %s (%d stages)", snap.Name, snap.Stages))
}

// completer completes commands, stage ids for delete and user edge ids
// for unlink.
func (s *shellSession) completer() *readline.PrefixCompleter {
	stageIDs := func(string) []string {
		var ids []string
		for _, p := range s.manager.Graph().Parents() {
			ids = append(ids, p.ID)
		}
		return ids
	}
	edgeIDs := func(string) []string {
		var ids []string
		for _, e := range s.manager.Graph().EdgesOf(stage.EdgeUser) {
			ids = append(ids, e.ID)
		}
		return ids
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("add"),
		readline.PcItem("delete", readline.PcItemDynamic(stageIDs)),
		readline.PcItem("connect"),
		readline.PcItem("unlink", readline.PcItemDynamic(edgeIDs)),
		readline.PcItem("show"),
		readline.PcItem("validate"),
		readline.PcItem("export", readline.PcItem("json"), readline.PcItem("yaml")),
		readline.PcItem("save"),
		readline.PcItem("restore"),
		readline.PcItem(".help"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
	)
}

func printShellHelp(r *output.Renderer) {
	help := `
Commands:
  add                              Append a stage
  delete <stage-id>...             Delete stages (later stages are renumbered)
  connect <source> <target>        Draw an edge; endpoints are node[:handle]
  unlink <edge-id>...              Remove user-drawn edges
  show                             Print the graph
  validate                         Check the stage invariants
  export [json|yaml]               Print the graph as a diagram file
  save [name]                      Save a snapshot
  restore [name]                   Restore the latest snapshot
  .help                            Show this help message
  .clear                           Clear the screen
  .quit / .exit                    Exit the shell
`
	r.Println(help)
}
