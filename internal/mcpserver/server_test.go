package mcpserver

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/testutil"
)

type fixture struct {
	board   *board.Board
	session *mcp.ClientSession
}

func setupTestServer(t *testing.T, withSnapshots bool) *fixture {
	t.Helper()
	ctx := context.Background()

	registry := board.NewRegistry(board.Config{
		MaxStages: 3,
		IDs:       stage.NewCounterIDs("t"),
		Logger:    testutil.NewTestLogger(t),
	})
	b, ok := registry.Get(board.DefaultName)
	require.True(t, ok)

	cfg := Config{Version: "test", Board: b, Logger: testutil.NewTestLogger(t)}
	if withSnapshots {
		store, err := snapshot.Open(snapshot.MemoryPath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		cfg.Snapshots = store
	}
	server := New(cfg)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return &fixture{board: b, session: session}
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestTools_Listed(t *testing.T) {
	f := setupTestServer(t, false)

	res, err := f.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_graph", "add_stage", "delete_stage", "connect", "remove_edge", "validate_graph"}, names)
}

func TestTools_SnapshotToolsOnlyWithStore(t *testing.T) {
	f := setupTestServer(t, true)

	res, err := f.session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, res.Tools, 8)
}

func TestTool_AddStage(t *testing.T) {
	f := setupTestServer(t, false)

	text, isErr := f.call(t, "add_stage", nil)
	assert.False(t, isErr)
	assert.Equal(t, "added Stage 2 (id 1)", text)

	f.call(t, "add_stage", nil)
	text, isErr = f.call(t, "add_stage", nil)
	assert.True(t, isErr)
	assert.Contains(t, text, "stage cap of 3 reached")
	assert.Len(t, f.board.Graph().Stages, 3)
}

func TestTool_DeleteStage(t *testing.T) {
	f := setupTestServer(t, false)

	text, isErr := f.call(t, "delete_stage", map[string]any{"stage_id": "0"})
	assert.True(t, isErr, "the only stage stays")
	assert.Contains(t, text, "graph unchanged")

	f.call(t, "add_stage", nil)
	f.call(t, "add_stage", nil)
	text, isErr = f.call(t, "delete_stage", map[string]any{"stage_id": "1"})
	assert.False(t, isErr)
	assert.Equal(t, "deleted stage 1; 2 stages remain", text)

	g := f.board.Graph()
	require.NoError(t, g.Validate())
	assert.Equal(t, []string{"Stage 1", "Stage 2"}, g.Stages)
}

func TestTool_ConnectAndRemoveEdge(t *testing.T) {
	f := setupTestServer(t, false)
	f.call(t, "add_stage", nil)

	text, isErr := f.call(t, "connect", map[string]any{
		"source": "t1_1", "source_handle": "b",
		"target": "t2_2", "target_handle": "a",
	})
	require.False(t, isErr, text)

	users := f.board.Graph().EdgesOf(stage.EdgeUser)
	require.Len(t, users, 1)
	assert.Contains(t, text, users[0].ID)
	assert.Equal(t, "b", users[0].SourceHandle)

	_, isErr = f.call(t, "connect", map[string]any{"source": "t1_1", "source_handle": "a", "target": "1"})
	assert.True(t, isErr, "a target handle cannot start an edge")

	_, isErr = f.call(t, "remove_edge", map[string]any{"edge_id": "0->1"})
	assert.True(t, isErr, "stage chain edges are not deletable")

	_, isErr = f.call(t, "remove_edge", map[string]any{"edge_id": users[0].ID})
	assert.False(t, isErr)
	assert.Empty(t, f.board.Graph().EdgesOf(stage.EdgeUser))
}

func TestTool_GetAndValidateGraph(t *testing.T) {
	f := setupTestServer(t, false)

	text, isErr := f.call(t, "get_graph", nil)
	require.False(t, isErr)
	g, err := stage.Decode([]byte(text), stage.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, f.board.Graph(), g)

	text, isErr = f.call(t, "validate_graph", nil)
	assert.False(t, isErr)
	assert.Equal(t, "graph is valid", text)
}

func TestTool_Snapshots(t *testing.T) {
	f := setupTestServer(t, true)

	f.call(t, "add_stage", nil)
	text, isErr := f.call(t, "save_snapshot", nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, "of main (2 stages)")

	f.call(t, "delete_stage", map[string]any{"stage_id": "1"})
	require.Len(t, f.board.Graph().Stages, 1)

	text, isErr = f.call(t, "restore_snapshot", nil)
	require.False(t, isErr, text)
	assert.Len(t, f.board.Graph().Stages, 2)

	_, isErr = f.call(t, "restore_snapshot", map[string]any{"name": "missing"})
	assert.True(t, isErr)
}

func TestResources(t *testing.T) {
	f := setupTestServer(t, false)
	ctx := context.Background()

	res, err := f.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: GraphURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	g, err := stage.Decode([]byte(res.Contents[0].Text), stage.FormatJSON)
	require.NoError(t, err)
	assert.Len(t, g.Stages, 1)

	res, err = f.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: schemaURIPrefix + "connect"})
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "source_handle")

	_, err = f.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: schemaURIPrefix + "nope"})
	assert.Error(t, err)
}
