package app

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/core"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
	"github.com/Chative-medical-agent/server/pkg/postgres"
	pkgredis "github.com/Chative-medical-agent/server/pkg/redis"
	"github.com/Chative-medical-agent/server/pkg/tracing"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string   `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string   `envconfig:"HTTP_ADDR" default:":8000"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
	ServiceName string   `envconfig:"OTEL_SERVICE_NAME" default:"chative-medical"`

	Logger logx.LoggerOpts

	// Infrastructure
	Redis    pkgredis.Config
	Postgres postgres.Config
	Tracing  tracing.Config

	// Agent configs
	LLM    model.LLMConfig
	Skills model.SkillsConfig
	Memory model.MemoryConfig
	Tools  model.ToolsConfig
	Chat   model.ChatConfig
}

// LoadConfig reads envFile if present, then the process environment.
func LoadConfig(envFile string) (AppConfig, error) {
	if err := godotenv.Load(envFile); err != nil {
		logx.Warn().Err(err).Str("file", envFile).Msg("Could not load env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.Logger.Environment = core.ParseEnvironment(cfg.Environment)
	return cfg, nil
}
