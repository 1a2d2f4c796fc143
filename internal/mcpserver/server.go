// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes dashboard routing, search and coordinate tools via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/headstone/internal/geo"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/roles"
	"github.com/starford/headstone/internal/route"
	"github.com/starford/headstone/internal/search"
)

// Server wraps the MCP server with dashboard tools.
type Server struct {
	mcp   *server.MCPServer
	index *search.Index
}

// New creates a new MCP server with all tools registered. A nil index
// searches the built-in content.
func New(ix *search.Index) *Server {
	if ix == nil {
		ix = search.New()
	}
	s := &Server{index: ix}

	s.mcp = server.NewMCPServer(
		"Headstone",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_dashboard",
		mcp.WithDescription("Rank the dashboard's pages and shortcuts for a query. "+
			"Returns at most 8 entries, best match first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithString("role", mcp.Description("Role whose index to search (admin, employee, customer). Defaults to admin."),
			mcp.Enum("admin", "employee", "customer")),
	), s.searchDashboard)

	s.mcp.AddTool(mcp.NewTool("resolve_route",
		mcp.WithDescription("Resolve a URL fragment such as #/admin/scheduling to its role, page and canonical path. "+
			"See the "+RouteGuideURI+" resource for the rules."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Fragment or path to resolve")),
		mcp.WithString("fallback_role", mcp.Description("Role used when the path names none")),
	), s.resolveRoute)

	s.mcp.AddTool(mcp.NewTool("list_navigation",
		mcp.WithDescription("List the navigation menu and routable pages of one role, or of every role."),
		mcp.WithString("role", mcp.Description("Optional role (empty for all)")),
	), s.listNavigation)

	s.mcp.AddTool(mcp.NewTool("parse_coordinate",
		mcp.WithDescription("Validate a GPS latitude/longitude pair. Accepts decimals with optional "+
			"degree signs and N/S/E/W suffixes; values are rounded to 6 decimals."),
		mcp.WithString("latitude", mcp.Required(), mcp.Description("Latitude, e.g. 40.730610° N")),
		mcp.WithString("longitude", mcp.Required(), mcp.Description("Longitude, e.g. 73.935242 W")),
	), s.parseCoordinate)

	s.mcp.AddResource(
		mcp.NewResource(RouteGuideURI, "Route Guide",
			mcp.WithResourceDescription("How dashboard locations resolve, with every role's pages."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRouteGuide,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	slog.Info("mcp: serving on stdio")
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchDashboard(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	role := models.Role(req.GetString("role", string(roles.Default)))
	results := s.index.Search(role, query)
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) resolveRoute(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fallback := models.Role(req.GetString("fallback_role", string(roles.Default)))
	return jsonResult(route.Resolve(route.Normalize(path), fallback))
}

func (s *Server) listNavigation(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if role := req.GetString("role", ""); role != "" {
		cfg, ok := roles.Lookup(models.Role(role))
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown role: %s", role)), nil
		}
		return jsonResult(cfg)
	}
	out := make([]models.RoleConfig, 0, len(roles.All()))
	for _, role := range roles.All() {
		out = append(out, roles.MustLookup(role))
	}
	return jsonResult(out)
}

func (s *Server) parseCoordinate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat, err := req.RequireString("latitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lng, err := req.RequireString("longitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := geo.ParsePoint(lat, lng)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

func (s *Server) readRouteGuide(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RouteGuideURI,
			MIMEType: "text/markdown",
			Text:     RouteGuide(),
		},
	}, nil
}
