// Package tools provides MCP tool implementations over the landscape graph.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/landscape-engine/pkg/services"
)

type healthResult struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	LoadedLandscapes int    `json:"loaded_landscapes"`
	GraphInitialized bool   `json:"graph_initialized"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and whether the graph has been populated.
func RegisterHealthTool(s *server.MCPServer, version string, store services.LandscapeGraphService) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		if store != nil {
			result.LoadedLandscapes = len(store.LoadedLandscapes())
			_, err := store.Summary()
			result.GraphInitialized = err == nil
		}
		return jsonResult(result)
	})
}
