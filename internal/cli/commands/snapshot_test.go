package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/leapstack-labs/stageflow/internal/cli/testutil"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/testutil"
)

func setupSnapshotStore(t *testing.T) *snapshot.Store {
	t.Helper()
	store, err := snapshot.Open(snapshot.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestListSnapshots(t *testing.T) {
	ctx := context.Background()
	store := setupSnapshotStore(t)

	tr := clitest.NewTestRendererMarkdown()
	require.NoError(t, listSnapshots(ctx, tr.Renderer, store))
	assert.Contains(t, tr.Output(), "# Snapshots (0 total)")
	assert.Contains(t, tr.Output(), "No snapshots saved yet.")

	_, err := store.Save(ctx, "main", testutil.BuildGraph(t, 3))
	require.NoError(t, err)

	tr = clitest.NewTestRendererMarkdown()
	require.NoError(t, listSnapshots(ctx, tr.Renderer, store))
	assert.Contains(t, tr.Output(), "# Snapshots (1 total)")
	assert.Contains(t, tr.Output(), "| main | 3 |")
	clitest.AssertNoANSI(t, tr.Output())

	tr = clitest.NewTestRendererJSON()
	require.NoError(t, listSnapshots(ctx, tr.Renderer, store))
	var list []snapshot.Summary
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "main", list[0].Name)
}

func TestShowSnapshot(t *testing.T) {
	ctx := context.Background()
	store := setupSnapshotStore(t)
	g := testutil.BuildGraph(t, 2)
	saved, err := store.Save(ctx, "main", g)
	require.NoError(t, err)

	t.Run("by name", func(t *testing.T) {
		tr := clitest.NewTestRendererMarkdown()
		require.NoError(t, showSnapshot(ctx, tr.Renderer, store, "main"))
		assert.Contains(t, tr.Output(), "# Snapshot main")
		assert.Contains(t, tr.Output(), "- **ID**: "+saved.ID)
		assert.Contains(t, tr.Output(), "Stage graph (2 stages)")
	})

	t.Run("by id", func(t *testing.T) {
		tr := clitest.NewTestRendererJSON()
		require.NoError(t, showSnapshot(ctx, tr.Renderer, store, saved.ID))

		var detail snapshotDetail
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &detail))
		assert.Equal(t, "main", detail.Name)
		assert.Equal(t, g, detail.Graph)
	})

	t.Run("yaml", func(t *testing.T) {
		tr := clitest.NewTestRendererYAML()
		require.NoError(t, showSnapshot(ctx, tr.Renderer, store, "main"))
		assert.Contains(t, tr.Output(), "name: main\n")
	})

	t.Run("missing", func(t *testing.T) {
		tr := clitest.NewTestRendererMarkdown()
		err := showSnapshot(ctx, tr.Renderer, store, "nope")
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})
}

func TestSnapshotCommand_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	diagram := clitest.WriteDiagram(t, dir, "diagram.json", testutil.BuildGraph(t, 2))

	run := func(args ...string) (string, error) {
		cmd := NewSnapshotCommand()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		return buf.String(), err
	}

	out, err := run("save", "main", "--input", diagram)
	require.NoError(t, err)
	assert.Contains(t, out, "of main (2 stages)")

	out, err = run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "| main | 2 |")

	for i := 0; i < 2; i++ {
		_, err = run("save", "main", "--input", diagram)
		require.NoError(t, err)
	}
	out, err = run("prune", "main", "--keep", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 1 snapshot(s) of main")

	_, err = run("prune", "main", "--keep", "0")
	assert.Error(t, err)

	out, err = run("delete", "main")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 snapshot(s) of main")

	_, err = run("delete", "main")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	_, err = run("save", "main")
	assert.Error(t, err, "--input is required")
}

func TestSnapshotCommandMetadata(t *testing.T) {
	cmd := NewSnapshotCommand()

	assert.Equal(t, "snapshot", cmd.Use)
	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show", "save", "delete", "prune"}, names)
}
