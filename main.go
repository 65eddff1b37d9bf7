package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chative-medical-agent/server/internal/api"
	"github.com/Chative-medical-agent/server/internal/app"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
	"github.com/Chative-medical-agent/server/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(".env")
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(cfg.Logger)
	if cfg.Logger.Environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logx.Error().Err(err).Msg("Tracing shutdown failed")
		}
	}()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build application")
	}
	defer a.Close()

	router := api.NewRouter(api.RouterConfig{
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.CORSOrigins,
		Chat:           a.Chat,
		DefaultUserID:  a.Chat.DefaultUserID(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Str("environment", cfg.Logger.Environment.String()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Chat.RequestTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logx.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
