package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/sketchiq/internal/studio"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the diagram studio as tools.
type Server struct {
	ctrl *studio.Controller
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server driving ctrl.
func NewServer(ctrl *studio.Controller) *Server {
	s := &Server{ctrl: ctrl}

	s.mcp = server.NewMCPServer(
		"sketchiq",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(generateDiagramTool, s.handleGenerateDiagram)
	s.mcp.AddTool(fixDiagramTool, s.handleFixDiagram)
	s.mcp.AddTool(revertDiagramTool, s.handleRevertDiagram)
	s.mcp.AddTool(getDiagramTool, s.handleGetDiagram)
	s.mcp.AddTool(listHistoryTool, s.handleListHistory)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
