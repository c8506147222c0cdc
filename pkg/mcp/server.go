// Package mcp serves the landscape graph tools over the Model Context Protocol.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/mcp/tools"
	"github.com/ekaya-inc/landscape-engine/pkg/middleware"
	"github.com/ekaya-inc/landscape-engine/pkg/services"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "landscape-engine"

// Server wraps the mcp-go MCPServer with the engine's tools.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance without tools.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// NewLandscapeServer creates an MCP server with the health and landscape graph tools registered.
func NewLandscapeServer(
	version string,
	catalog services.LandscapeCatalog,
	store services.LandscapeGraphService,
	logger *zap.Logger,
) *Server {
	s := NewServer(ServerName, version, logger)
	tools.RegisterHealthTool(s.mcp, version, store)
	tools.RegisterLandscapeTools(s.mcp, &tools.LandscapeToolDeps{
		Catalog: catalog,
		Store:   store,
		Logger:  logger.Named("mcp-tools"),
	})
	return s
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterRoutes mounts the streamable HTTP transport at /mcp with call logging.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", middleware.MCPRequestLogger(s.logger)(s.NewStreamableHTTPServer()))
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
