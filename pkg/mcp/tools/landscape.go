package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/models"
	"github.com/ekaya-inc/landscape-engine/pkg/services"
)

// LandscapeToolDeps contains dependencies for landscape graph MCP tools.
type LandscapeToolDeps struct {
	Catalog services.LandscapeCatalog
	Store   services.LandscapeGraphService
	Logger  *zap.Logger
}

// RegisterLandscapeTools registers the read-only landscape graph tools.
func RegisterLandscapeTools(s *server.MCPServer, deps *LandscapeToolDeps) {
	registerListLandscapesTool(s, deps)
	registerGraphSummaryTool(s, deps)
	registerNodeRelationsTool(s, deps)
	registerFlattenedLandscapeTool(s, deps)
	registerMergedLandscapeTool(s, deps)
}

type listLandscapesResult struct {
	Available []models.LandscapeInfo `json:"available"`
	Loaded    []models.LandscapeInfo `json:"loaded"`
}

func registerListLandscapesTool(s *server.MCPServer, deps *LandscapeToolDeps) {
	tool := mcp.NewTool(
		"list_landscapes",
		mcp.WithDescription(
			"List the landscapes that can be loaded (files and database) and the landscapes currently loaded into the graph.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		available, err := deps.Catalog.Available(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list available landscapes: %w", err)
		}
		return jsonResult(listLandscapesResult{
			Available: available,
			Loaded:    deps.Store.LoadedLandscapes(),
		})
	})
}

func registerGraphSummaryTool(s *server.MCPServer, deps *LandscapeToolDeps) {
	tool := mcp.NewTool(
		"get_graph_summary",
		mcp.WithDescription(
			"Summarise the federated landscape graph: loaded landscapes, completed population stages, "+
				"node and edge counts, edge counts per relation type, and connectivity.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := deps.Store.Summary()
		if err != nil {
			if result := errorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(summary)
	})
}

type nodeRelationsResult struct {
	NodeID    string `json:"node_id"`
	Policy    string `json:"policy"`
	Relations any    `json:"relations"`
	Count     int    `json:"count"`
}

func registerNodeRelationsTool(s *server.MCPServer, deps *LandscapeToolDeps) {
	tool := mcp.NewTool(
		"get_node_relations",
		mcp.WithDescription(
			"Get the outgoing then incoming relations of a node (entity id such as 'db.schema.table', or an idtype id). "+
				"An unknown node returns no relations.",
		),
		mcp.WithString(
			"node_id",
			mcp.Required(),
			mcp.Description("Entity or idtype id"),
		),
		mcp.WithString(
			"policy",
			mcp.Description("Optional - 'all' (default), 'configured' (declared relations only), or 'no_fragments'"),
			mcp.Enum(string(services.RelationPolicyAll), string(services.RelationPolicyConfigured), string(services.RelationPolicyNoFragments)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nodeID, err := req.RequireString("node_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		policy, err := services.ParseRelationPolicy(getOptionalString(req, "policy"))
		if err != nil {
			return errorResult(err), nil
		}

		links, err := deps.Store.RelationsForNode(nodeID, policy)
		if err != nil {
			if result := errorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}

		deps.Logger.Debug("Returned node relations",
			zap.String("node_id", nodeID),
			zap.String("policy", string(policy)),
			zap.Int("count", len(links)))

		return jsonResult(nodeRelationsResult{
			NodeID:    nodeID,
			Policy:    string(policy),
			Relations: links,
			Count:     len(links),
		})
	})
}

func registerFlattenedLandscapeTool(s *server.MCPServer, deps *LandscapeToolDeps) {
	tool := mcp.NewTool(
		"get_flattened_landscape",
		mcp.WithDescription(
			"Return the federated graph as a single landscape document: idtypes, databases with schemas and entities, "+
				"and the explicitly configured relations.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, err := deps.Store.FlattenedLandscape()
		if err != nil {
			if result := errorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(doc)
	})
}

func registerMergedLandscapeTool(s *server.MCPServer, deps *LandscapeToolDeps) {
	tool := mcp.NewTool(
		"get_merged_landscape",
		mcp.WithDescription(
			"Merge the loaded landscape documents into one document, dropping relations and named id sets "+
				"that reference entities missing from the merge.",
		),
		mcp.WithString(
			"log_level",
			mcp.Description("Optional - verbosity of the merge diagnostics: debug, info, warning (default), error, critical"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := deps.Store.MergedLandscape(getOptionalString(req, "log_level"))
		if result == nil {
			return NewErrorResult("no_landscapes", "no landscapes are loaded"), nil
		}
		return jsonResult(result)
	})
}
