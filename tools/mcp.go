package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eino-contrib/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server carrying every tool.
func NewServer(ctx context.Context, h *Handlers, name, version string) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
		Title:   "Form collection tools",
	}, nil)
	if err := h.Register(ctx, server); err != nil {
		return nil, err
	}
	return server, nil
}

// Register adds the tools to server. Input schemas are the ones inferred
// for the eino tools so both transports describe the same arguments.
func (h *Handlers) Register(ctx context.Context, server *mcp.Server) error {
	defs, err := h.definitions()
	if err != nil {
		return err
	}
	for _, d := range defs {
		info, err := getToolInfo(ctx, d.tool)
		if err != nil {
			return err
		}
		input := &jsonschema.Schema{Type: "object"}
		if info.ParamsOneOf != nil {
			s, err := info.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return fmt.Errorf("failed to build schema of %s: %w", d.name, err)
			}
			if s != nil {
				input = s
			}
		}
		call := d.call
		name := d.name
		server.AddTool(&mcp.Tool{
			Name:        name,
			Description: info.Desc,
			InputSchema: input,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			slog.Debug("mcp call", "tool", name)
			res, err := call(ctx, req.Params.Arguments)
			if err != nil {
				return nil, err
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: res.String()}},
				IsError: res.IsError,
			}, nil
		})
	}
	return nil
}
