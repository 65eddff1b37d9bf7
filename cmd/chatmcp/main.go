package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/Chative-medical-agent/server/internal/app"
	"github.com/Chative-medical-agent/server/internal/mcpserver"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := app.LoadConfig(".env")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// stdout carries the MCP stream; logs go to stderr.
	cfg.Logger.Output = os.Stderr
	logx.Init(cfg.Logger)

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building application: %w", err)
	}
	defer a.Close()

	s, err := mcpserver.New(ctx, a.Chat, a.Tools)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return server.ServeStdio(s)
}
