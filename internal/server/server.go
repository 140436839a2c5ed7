// Package server exposes the tool facade over the line-delimited JSON-RPC
// stdio transport: tools/list serves the static schema set, tools/call
// invokes a facade entry and wraps the record (or error) in the text
// content envelope.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/finbridge/internal/tool"
)

// Server is the stdio transport.
type Server struct {
	srv    *mcpserver.MCPServer
	facade *tool.Facade
	logger *slog.Logger
}

// New builds the MCP server and registers every facade entry.
func New(facade *tool.Facade, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		srv: mcpserver.NewMCPServer("finbridge", version,
			mcpserver.WithToolCapabilities(false),
		),
		facade: facade,
		logger: logger,
	}

	for _, entry := range facade.Entries() {
		s.register(entry)
	}
	return s
}

// register adds one facade entry as an MCP tool.
func (s *Server) register(entry tool.Entry) {
	opts := []mcp.ToolOption{mcp.WithDescription(entry.Description)}
	for _, a := range entry.Args {
		propOpts := []mcp.PropertyOption{mcp.Description(a.Description)}
		if a.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if a.Default != "" {
			propOpts = append(propOpts, mcp.DefaultString(a.Default))
		}
		if len(a.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(a.Enum...))
		}
		opts = append(opts, mcp.WithString(a.Name, propOpts...))
	}

	args := entry.Args
	name := entry.Name

	s.srv.AddTool(mcp.NewTool(name, opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callArgs := make(map[string]string, len(args))
		for _, a := range args {
			callArgs[a.Name] = req.GetString(a.Name, "")
		}

		res, err := s.facade.Invoke(ctx, name, callArgs)
		if err != nil {
			s.logger.Warn("tool call failed",
				"tool", name,
				"error", err,
			)
			return mcp.NewToolResultError(renderError(err)), nil
		}

		body, err := json.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			return mcp.NewToolResultError("encoding result: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	})
}

// Serve blocks, reading requests from stdin until EOF.
func (s *Server) Serve() error {
	s.logger.Info("stdio server ready")
	return mcpserver.ServeStdio(s.srv)
}
