package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Chative-medical-agent/server/internal/chat"
)

// ChatTool handles the chat MCP tool.
type ChatTool struct {
	chat chat.Handler
}

func NewChatTool(h chat.Handler) *ChatTool {
	return &ChatTool{chat: h}
}

func (t *ChatTool) Definition() mcp.Tool {
	return mcp.NewTool("chat",
		mcp.WithDescription(
			"Ask the medical assistant about blood-pressure monitor operation, error codes, "+
				"or the user's blood-pressure history. Replies in Traditional Chinese.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message"),
		),
		mcp.WithString("user_id",
			mcp.Description("User identifier; keeps a separate conversation per user"),
		),
	)
}

// Handle returns the reply text first, then the intent and the mermaid trace.
func (t *ChatTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := strings.TrimSpace(req.GetString("message", ""))
	if message == "" {
		return mcp.NewToolResultError("'message' is required"), nil
	}

	reply := t.chat.Handle(ctx, req.GetString("user_id", ""), message)
	if reply.Failed {
		return mcp.NewToolResultError(reply.Text), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(reply.Text),
			mcp.NewTextContent(fmt.Sprintf("intent: %s", reply.Intent)),
			mcp.NewTextContent(reply.Graph),
		},
	}, nil
}
