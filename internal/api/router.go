package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Chative-medical-agent/server/internal/chat"
)

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	Chat           chat.Handler
	DefaultUserID  string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:8000", "http://localhost:3000", "http://127.0.0.1:8000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", RequestIDHeader},
	}))
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(RequestID())

	router.GET("/healthcheck", HealthCheck)

	chatHandler := NewChatHandler(cfg.Chat, cfg.DefaultUserID)
	router.POST("/chat", chatHandler.Chat)

	return router
}
