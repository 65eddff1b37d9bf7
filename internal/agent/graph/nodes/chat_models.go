package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// ChatModel is the completion backend selected once at startup.
type ChatModel struct {
	Model     einomodel.BaseChatModel
	Provider  string
	ModelName string
}

// NewGenAIClient creates the Gemini API client shared by the chat model and
// the manual embedder.
func NewGenAIClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModel builds the completion backend named by cfg.Provider. client
// is only used by the google provider and may be nil otherwise.
func NewChatModel(ctx context.Context, cfg model.LLMConfig, client *genai.Client) (*ChatModel, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens

	switch provider {
	case ProviderGoogle, "gemini", "":
		if client == nil {
			return nil, fmt.Errorf("gemini provider requires a genai client")
		}
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       cfg.Model,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			logx.Error().Err(err).Msg("Error creating Gemini chat model")
			return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
		}
		return &ChatModel{Model: cm, Provider: ProviderGoogle, ModelName: cfg.Model}, nil

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			logx.Error().Err(err).Msg("Error creating OpenAI chat model")
			return nil, fmt.Errorf("error creating OpenAI chat model: %w", err)
		}
		return &ChatModel{Model: cm, Provider: ProviderOpenAI, ModelName: cfg.OpenAIModel}, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
