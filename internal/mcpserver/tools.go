package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

// Arguments structs

type GetGraphArgs struct{}

type AddStageArgs struct{}

type DeleteStageArgs struct {
	StageID string `json:"stage_id" jsonschema:"the parent node id of the stage to delete, such as 1"`
}

type ConnectArgs struct {
	Source       string `json:"source" jsonschema:"id of the node the edge starts at"`
	Target       string `json:"target" jsonschema:"id of the node the edge ends at"`
	SourceHandle string `json:"source_handle,omitempty" jsonschema:"source handle id; empty picks the node's first source handle"`
	TargetHandle string `json:"target_handle,omitempty" jsonschema:"target handle id; empty picks the node's first target handle"`
}

type RemoveEdgeArgs struct {
	EdgeID string `json:"edge_id" jsonschema:"id of a user-drawn edge"`
}

type ValidateGraphArgs struct{}

type SaveSnapshotArgs struct {
	Name string `json:"name,omitempty" jsonschema:"snapshot name; defaults to the board name"`
}

type RestoreSnapshotArgs struct {
	Name string `json:"name,omitempty" jsonschema:"snapshot name; defaults to the board name"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_graph",
		Description: "Returns the stage graph (stage labels, nodes and edges) as JSON",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ GetGraphArgs) (*mcp.CallToolResult, any, error) {
		return s.graphResult(s.board.Graph())
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_stage",
		Description: "Appends a stage after the last one and links it to its predecessor",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ AddStageArgs) (*mcp.CallToolResult, any, error) {
		var maxStages, count int
		added := s.board.Do(func(m *stage.Manager) bool {
			_, ok := m.AddStage()
			maxStages, count = m.MaxStages(), m.StageCount()
			return ok
		})
		if !added {
			return errorResult(fmt.Sprintf("stage cap of %d reached; graph unchanged", maxStages)), nil, nil
		}
		s.logger.Debug("stage added", "stages", count)
		return textResult(fmt.Sprintf("added %s (id %s)", stage.StageLabel(count-1), stage.ParentID(count-1))), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_stage",
		Description: "Deletes a stage by its parent id; later stages are renumbered and the stage chain is relinked",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args DeleteStageArgs) (*mcp.CallToolResult, any, error) {
		var count int
		deleted := s.board.Do(func(m *stage.Manager) bool {
			_, ok := m.DeleteStage(args.StageID)
			count = m.StageCount()
			return ok
		})
		if !deleted {
			return errorResult(fmt.Sprintf("no stage %q to delete (the only stage cannot be deleted); graph unchanged", args.StageID)), nil, nil
		}
		return textResult(fmt.Sprintf("deleted stage %s; %d stages remain", args.StageID, count)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "connect",
		Description: "Draws a deletable edge from a source handle to a target handle",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args ConnectArgs) (*mcp.CallToolResult, any, error) {
		c := stage.Connection{
			Source:       args.Source,
			Target:       args.Target,
			SourceHandle: args.SourceHandle,
			TargetHandle: args.TargetHandle,
		}

		var edge stage.Edge
		connected := s.board.Do(func(m *stage.Manager) bool {
			if !stage.CanConnect(m.Graph(), c) {
				return false
			}
			edge, _ = m.Connect(c)
			return true
		})
		if !connected {
			return errorResult(fmt.Sprintf("%s cannot connect to %s with the given handles", c.Source, c.Target)), nil, nil
		}
		return textResult(fmt.Sprintf("connected %s -> %s as edge %s", edge.Source, edge.Target, edge.ID)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "remove_edge",
		Description: "Removes a user-drawn edge; stage chain edges cannot be removed",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args RemoveEdgeArgs) (*mcp.CallToolResult, any, error) {
		removed := s.board.Do(func(m *stage.Manager) bool {
			_, n := m.RemoveEdges([]string{args.EdgeID})
			return n > 0
		})
		if !removed {
			return errorResult(fmt.Sprintf("no deletable edge %q", args.EdgeID)), nil, nil
		}
		return textResult(fmt.Sprintf("removed edge %s", args.EdgeID)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "validate_graph",
		Description: "Checks the graph against the stage invariants",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ ValidateGraphArgs) (*mcp.CallToolResult, any, error) {
		if err := s.board.Graph().Validate(); err != nil {
			return errorResult(strings.ReplaceAll(err.Error(), "\n", "; ")), nil, nil
		}
		return textResult("graph is valid"), nil, nil
	})

	if s.snapshots == nil {
		return
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "save_snapshot",
		Description: "Saves the current graph as a named snapshot",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args SaveSnapshotArgs) (*mcp.CallToolResult, any, error) {
		name := s.snapshotName(args.Name)
		snap, err := s.snapshots.Save(ctx, name, s.board.Graph())
		if err != nil {
			return errorResult(fmt.Sprintf("save failed: %v", err)), nil, nil
		}
		return textResult(fmt.Sprintf("saved snapshot %s of %s (%d stages)", snap.ID, snap.Name, snap.Stages)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "restore_snapshot",
		Description: "Replaces the graph with the latest snapshot of that name",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args RestoreSnapshotArgs) (*mcp.CallToolResult, any, error) {
		name := s.snapshotName(args.Name)
		snap, err := s.snapshots.Latest(ctx, name)
		if errors.Is(err, snapshot.ErrNotFound) {
			return errorResult(fmt.Sprintf("no snapshot named %s", name)), nil, nil
		}
		if err != nil {
			return errorResult(fmt.Sprintf("restore failed: %v", err)), nil, nil
		}

		var restoreErr error
		s.board.Do(func(m *stage.Manager) bool {
			restoreErr = m.Restore(snap.Graph)
			return restoreErr == nil
		})
		if restoreErr != nil {
			return errorResult(fmt.Sprintf("restore failed: %v", restoreErr)), nil, nil
		}
		return textResult(fmt.Sprintf("restored %s (%d stages)", snap.Name, snap.Stages)), nil, nil
	})
}

func (s *Server) snapshotName(name string) string {
	if name == "" {
		return s.board.Name()
	}
	return name
}

func (s *Server) graphResult(g stage.Graph) (*mcp.CallToolResult, any, error) {
	data, err := stage.Encode(g, stage.FormatJSON)
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
