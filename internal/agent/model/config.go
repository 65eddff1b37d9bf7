package model

import "time"

// ================ Config ================
type LLMConfig struct {
	Provider    string        `envconfig:"LLM_PROVIDER" default:"google"`
	Model       string        `envconfig:"LLM_MODEL" default:"gemini-2.5-flash"`
	Temperature float32       `envconfig:"LLM_TEMPERATURE" default:"0"`
	MaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"2048"`
	Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
}

type SkillsConfig struct {
	Dir          string `envconfig:"SKILLS_DIR" default:"skills"`
	RegistryFile string `envconfig:"SKILLS_REGISTRY_FILE" default:"skills/registry.json"`
}

type MemoryConfig struct {
	Backend  string        `envconfig:"MEMORY_BACKEND" default:"memory"`
	MaxTurns int           `envconfig:"MEMORY_MAX_TURNS" default:"10"`
	TTL      time.Duration `envconfig:"MEMORY_TTL" default:"24h"`
}

type ToolsConfig struct {
	Timeout          time.Duration `envconfig:"TOOL_TIMEOUT" default:"10s"`
	ManualCollection string        `envconfig:"MANUAL_COLLECTION" default:"bp_docs_gemini"`
	ManualTopK       int           `envconfig:"MANUAL_TOP_K" default:"8"`
	EmbeddingModel   string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	HealthSource     string        `envconfig:"HEALTH_SOURCE" default:"static"`
}

type ChatConfig struct {
	RequestTimeout time.Duration `envconfig:"CHAT_REQUEST_TIMEOUT" default:"120s"`
	DefaultUserID  string        `envconfig:"CHAT_DEFAULT_USER_ID" default:"default-user"`
}
