package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/leapstack-labs/stageflow/internal/cli/testutil"
	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/testutil"
)

func setupShell(t *testing.T, stages int, opts ...stage.Option) (*shellSession, *clitest.TestRenderer) {
	t.Helper()
	tr := clitest.NewTestRendererMarkdown()
	return &shellSession{
		ctx:     context.Background(),
		manager: testutil.NewManager(t, stages, opts...),
		r:       tr.Renderer,
		store:   setupSnapshotStore(t),
		name:    "main",
	}, tr
}

func TestShell_Exec(t *testing.T) {
	tests := []struct {
		name       string
		stages     int
		lines      []string
		wantStages int
		wantUser   int
		wantOut    string
		wantErrOut string
	}{
		{name: "add", stages: 1, lines: []string{"add"}, wantStages: 2, wantOut: "added Stage 2"},
		{name: "delete interior", stages: 3, lines: []string{"delete 1"}, wantStages: 2, wantOut: "2 stages remain"},
		{name: "delete only stage", stages: 1, lines: []string{"delete 0"}, wantStages: 1, wantErrOut: "nothing deleted"},
		{name: "delete without ids", stages: 1, lines: []string{"delete"}, wantStages: 1, wantErrOut: "usage: delete"},
		{name: "connect pair", stages: 2, lines: []string{"connect t1_1:b t2_2:a"}, wantStages: 2, wantUser: 1, wantOut: "added edge"},
		{name: "connect spec", stages: 2, lines: []string{"connect 0->1"}, wantStages: 2, wantUser: 1},
		{name: "connect bad handle", stages: 2, lines: []string{"connect t1_1:a 1"}, wantStages: 2, wantErrOut: "cannot connect"},
		{name: "unlink fixed edge", stages: 2, lines: []string{"unlink 0->1"}, wantStages: 2, wantErrOut: "no deletable edge"},
		{name: "validate", stages: 2, lines: []string{"validate"}, wantStages: 2, wantOut: "satisfies the stage invariants"},
		{name: "show", stages: 2, lines: []string{"show"}, wantStages: 2, wantOut: "# Stage graph (2 stages)"},
		{name: "export yaml", stages: 1, lines: []string{"export yaml"}, wantStages: 1, wantOut: "- Stage 1"},
		{name: "export unknown", stages: 1, lines: []string{"export xml"}, wantStages: 1, wantErrOut: "unsupported diagram format"},
		{name: "unknown command", stages: 1, lines: []string{"explode"}, wantStages: 1, wantErrOut: "unknown command: explode"},
		{name: "blank line", stages: 1, lines: []string{"   "}, wantStages: 1},
		{name: "help", stages: 1, lines: []string{".help"}, wantStages: 1, wantOut: "connect <source> <target>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, tr := setupShell(t, tt.stages)
			for _, line := range tt.lines {
				assert.False(t, sess.exec(line))
			}

			g := sess.manager.Graph()
			assert.Len(t, g.Stages, tt.wantStages)
			assert.Len(t, g.EdgesOf(stage.EdgeUser), tt.wantUser)
			if tt.wantOut != "" {
				assert.Contains(t, tr.Output(), tt.wantOut)
			}
			if tt.wantErrOut != "" {
				assert.Contains(t, tr.ErrorOutput(), tt.wantErrOut)
			}
		})
	}
}

func TestShell_UnlinkUserEdge(t *testing.T) {
	sess, tr := setupShell(t, 2)
	sess.exec("connect 0 1")
	users := sess.manager.Graph().EdgesOf(stage.EdgeUser)
	require.Len(t, users, 1)

	sess.exec("unlink " + users[0].ID)
	assert.Empty(t, sess.manager.Graph().EdgesOf(stage.EdgeUser))
	assert.Contains(t, tr.Output(), "removed 1 edge(s)")
}

func TestShell_CapWarning(t *testing.T) {
	sess, tr := setupShell(t, 2, stage.WithMaxStages(2))
	sess.exec("add")
	assert.Contains(t, tr.ErrorOutput(), "stage cap of 2 reached")
}

func TestShell_SaveRestore(t *testing.T) {
	sess, tr := setupShell(t, 3)

	sess.exec("save")
	assert.Contains(t, tr.Output(), "saved main as")

	sess.exec("delete 2 1")
	require.Equal(t, 1, sess.manager.StageCount())

	sess.exec("restore")
	assert.Equal(t, 3, sess.manager.StageCount())
	assert.Contains(t, tr.Output(), "restored main (3 stages)")

	sess.exec("restore other")
	assert.Contains(t, tr.ErrorOutput(), "snapshot not found")

	sess.store = nil
	sess.exec("save")
	assert.Contains(t, tr.ErrorOutput(), "snapshots are not available")
}

func TestShell_Quit(t *testing.T) {
	sess, _ := setupShell(t, 1)
	assert.True(t, sess.exec(".quit"))
	assert.True(t, sess.exec(".exit"))
}
