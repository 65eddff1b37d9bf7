package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/mark3labs/mcp-go/mcp"
)

// EinoTool exposes an eino InvokableTool over MCP. Arguments are forwarded as
// the tool's JSON input.
type EinoTool struct {
	tool   tool.InvokableTool
	name   string
	desc   string
	params []mcp.ToolOption
}

// NewEinoTool reads the tool's name and description from its ToolInfo. params
// describe the MCP input schema.
func NewEinoTool(ctx context.Context, t tool.InvokableTool, params ...mcp.ToolOption) (*EinoTool, error) {
	info, err := t.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading tool info: %w", err)
	}
	return &EinoTool{tool: t, name: info.Name, desc: info.Desc, params: params}, nil
}

func (t *EinoTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{mcp.WithDescription(t.desc)}, t.params...)
	return mcp.NewTool(t.name, opts...)
}

func (t *EinoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	out, err := t.tool.InvokableRun(ctx, string(args))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", t.name, err)), nil
	}
	return mcp.NewToolResultText(out), nil
}
