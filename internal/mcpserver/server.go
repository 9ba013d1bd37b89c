// Package mcpserver exposes a stage graph to MCP clients. Each manager
// operation is a tool; the graph itself is a resource.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/snapshot"
)

// GraphURI is the resource URI of the served graph.
const GraphURI = "stageflow://graph"

// Config holds configuration for the MCP server.
type Config struct {
	Version string
	// Board is the graph the tools operate on.
	Board *board.Board
	// Snapshots enables the save and restore tools. May be nil.
	Snapshots *snapshot.Store
	Logger    *slog.Logger
}

// Server is an MCP server over one board.
type Server struct {
	board     *board.Board
	snapshots *snapshot.Store
	mcpServer *mcp.Server
	logger    *slog.Logger
}

// New creates a server with every tool and resource registered.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		board:     cfg.Board,
		snapshots: cfg.Snapshots,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: "stageflow", Version: version}, nil),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.mcpServer
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "board", s.board.Name())
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
