// Package mcpserver exposes the chat operation and the retrieval tools over
// the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Chative-medical-agent/server/internal/agent/tools"
	"github.com/Chative-medical-agent/server/internal/chat"
)

// Version is set at build time via ldflags.
var Version = "dev"

var toolParams = map[string][]mcp.ToolOption{
	tools.ToolSearchDeviceManual: {
		mcp.WithString("query", mcp.Required(), mcp.Description("Question or error code, e.g. ERR2")),
	},
	tools.ToolGetUserHealthData: {
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User identifier")),
	},
}

func New(ctx context.Context, h chat.Handler, set tools.Set) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		"chative-medical",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	chatTool := NewChatTool(h)
	s.AddTool(chatTool.Definition(), chatTool.Handle)

	for _, t := range tools.QueryTools(set) {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading tool info: %w", err)
		}
		bridged, err := NewEinoTool(ctx, t, toolParams[info.Name]...)
		if err != nil {
			return nil, err
		}
		s.AddTool(bridged.Definition(), bridged.Handle)
	}

	return s, nil
}
