package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/chat"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// ChatResponse is the envelope of POST /chat. A failed run is still a 200:
// Status is "error" and Data carries the degraded reply.
type ChatResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    model.ChatReply `json:"data"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ChatHandler struct {
	chat          chat.Handler
	defaultUserID string
}

func NewChatHandler(h chat.Handler, defaultUserID string) *ChatHandler {
	if defaultUserID == "" {
		defaultUserID = "default-user"
	}
	return &ChatHandler{chat: h, defaultUserID: defaultUserID}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.QueryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		logx.Warn().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Malformed chat request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Status: statusError, Message: "invalid request body"})
		return
	}
	if req.UserID == "" {
		req.UserID = h.defaultUserID
	}

	start := time.Now()
	logx.Info().
		Str("request_id", c.GetString(requestIDKey)).
		Str("user_id", req.UserID).
		Msg("Chat request received")
	logx.Debug().Str("message", req.Message).Msg("Chat payload")

	reply := h.chat.Handle(c.Request.Context(), req.UserID, req.Message)

	resp := ChatResponse{Status: statusSuccess, Data: reply}
	if reply.Failed {
		resp.Status = statusError
		resp.Message = reply.Text
	}

	logx.Info().
		Str("request_id", c.GetString(requestIDKey)).
		Str("status", resp.Status).
		Str("intent", reply.Intent).
		Int("graph_len", len(reply.Graph)).
		Dur("latency", time.Since(start)).
		Msg("Chat response sent")
	c.JSON(http.StatusOK, resp)
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
