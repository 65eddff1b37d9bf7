package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"google.golang.org/genai"

	"github.com/Chative-medical-agent/server/internal/agent/graph"
	"github.com/Chative-medical-agent/server/internal/agent/graph/conversations"
	"github.com/Chative-medical-agent/server/internal/agent/graph/nodes"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/repo"
	"github.com/Chative-medical-agent/server/internal/agent/skills"
	"github.com/Chative-medical-agent/server/internal/agent/tools"
	"github.com/Chative-medical-agent/server/internal/chat"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// App holds the wired components shared by the HTTP and MCP entry points.
type App struct {
	Chat     *chat.Service
	Engine   *graph.Engine
	Registry *skills.Registry
	Tools    tools.Set

	closers []func() error
}

// Close releases infrastructure clients in reverse creation order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires every component. The completion backend is chosen here once
// and held for the process lifetime.
func Build(ctx context.Context, cfg AppConfig) (*App, error) {
	a := &App{}
	fail := func(err error) (*App, error) {
		_ = a.Close()
		return nil, err
	}

	a.Registry = skills.LoadRegistry(cfg.Skills.RegistryFile)

	var genaiClient *genai.Client
	if cfg.LLM.GeminiAPIKey != "" {
		c, err := nodes.NewGenAIClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiBaseURL)
		if err != nil {
			return fail(err)
		}
		genaiClient = c
	}

	chatModel, err := nodes.NewChatModel(ctx, cfg.LLM, genaiClient)
	if err != nil {
		return fail(err)
	}
	logx.Info().Str("provider", chatModel.Provider).Str("model", chatModel.ModelName).Msg("Completion backend selected")

	var db *bun.DB
	if cfg.Postgres.Enabled() {
		db, err = cfg.Postgres.New(ctx)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		a.closers = append(a.closers, db.Close)
	}

	a.Tools = tools.Set{
		Skills: skills.NewDocumentLoader(cfg.Skills.Dir),
		Manual: buildManual(cfg.Tools, db, genaiClient),
		Chart:  tools.NewGGChartRenderer(),
	}
	a.Tools.Health, err = buildHealth(cfg.Tools, db)
	if err != nil {
		return fail(err)
	}

	store, err := a.buildStore(cfg)
	if err != nil {
		return fail(err)
	}

	engine, err := graph.Build(ctx, nodes.Deps{
		Chat:        chatModel,
		Tools:       a.Tools,
		LLMTimeout:  cfg.LLM.Timeout,
		ToolTimeout: cfg.Tools.Timeout,
	}, a.Registry)
	if err != nil {
		return fail(fmt.Errorf("build workflow: %w", err))
	}
	a.Engine = engine
	a.Chat = chat.NewService(engine, conversations.NewMessagesManager(store), cfg.Chat)

	return a, nil
}

func buildManual(cfg model.ToolsConfig, db *bun.DB, client *genai.Client) tools.ManualSearcher {
	switch {
	case db == nil:
		logx.Warn().Msg("DATABASE_URL not set, device manual retrieval disabled")
		return tools.UnavailableManual{Reason: "no vector store configured"}
	case client == nil:
		logx.Warn().Msg("GEMINI_API_KEY not set, device manual retrieval disabled")
		return tools.UnavailableManual{Reason: "no embedding client configured"}
	}
	return tools.NewManualSearch(
		tools.NewGenAIEmbedder(client, cfg.EmbeddingModel),
		tools.NewPGVectorStore(db, cfg.ManualCollection),
		cfg.ManualTopK,
	)
}

func buildHealth(cfg model.ToolsConfig, db *bun.DB) (tools.HealthSource, error) {
	switch strings.ToLower(cfg.HealthSource) {
	case "postgres":
		if db == nil {
			return nil, errors.New("HEALTH_SOURCE=postgres requires DATABASE_URL")
		}
		return tools.NewPostgresHealthSource(db), nil
	case "static", "":
		return tools.NewStaticHealthSource(nil), nil
	default:
		return nil, fmt.Errorf("unsupported HEALTH_SOURCE %q", cfg.HealthSource)
	}
}

func (a *App) buildStore(cfg AppConfig) (model.SessionStore, error) {
	switch strings.ToLower(cfg.Memory.Backend) {
	case "redis":
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		logx.Info().Int("max_turns", cfg.Memory.MaxTurns).Dur("ttl", cfg.Memory.TTL).Msg("Session store: redis")
		return repo.NewRedisSessionStore(rdb, cfg.Memory.MaxTurns, cfg.Memory.TTL), nil
	case "memory", "":
		logx.Info().Int("max_turns", cfg.Memory.MaxTurns).Msg("Session store: in-process")
		return repo.NewMemorySessionStore(cfg.Memory.MaxTurns), nil
	default:
		return nil, fmt.Errorf("unsupported MEMORY_BACKEND %q", cfg.Memory.Backend)
	}
}
