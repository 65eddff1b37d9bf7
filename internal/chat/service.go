package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-medical-agent/server/internal/agent/graph"
	"github.com/Chative-medical-agent/server/internal/agent/graph/conversations"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// FailureText is the degraded reply returned when a run aborts.
const FailureText = "分析過程出現異常，請稍後再試。"

// Handler is the transport-facing chat operation.
type Handler interface {
	Handle(ctx context.Context, userID, message string) model.ChatReply
}

// Service runs one workflow per chat request and keeps the session history.
type Service struct {
	runner        graph.Runner
	messages      *conversations.MessagesManager
	timeout       time.Duration
	defaultUserID string
}

func NewService(runner graph.Runner, messages *conversations.MessagesManager, cfg model.ChatConfig) *Service {
	if cfg.DefaultUserID == "" {
		cfg.DefaultUserID = "default-user"
	}
	return &Service{
		runner:        runner,
		messages:      messages,
		timeout:       cfg.RequestTimeout,
		defaultUserID: cfg.DefaultUserID,
	}
}

// DefaultUserID is used when a request carries no user id.
func (s *Service) DefaultUserID() string { return s.defaultUserID }

// Handle never fails: a workflow error yields the degraded reply with intent
// "error", an empty graph and the user's history left untouched.
func (s *Service) Handle(ctx context.Context, userID, message string) model.ChatReply {
	if strings.TrimSpace(userID) == "" {
		userID = s.defaultUserID
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	start := time.Now()

	history, err := s.messages.Load(ctx, userID)
	if err != nil {
		logx.Warn().Err(err).
			Str("request_id", requestID).
			Str("user_id", userID).
			Msg("Session history unavailable, continuing without it")
		history = nil
	}

	out, err := s.runner.Run(ctx, model.NewWorkflowState(userID, message, history))
	if err != nil {
		logx.Error().Err(err).
			Str("request_id", requestID).
			Str("user_id", userID).
			Dur("latency", time.Since(start)).
			Msg("Workflow run failed")
		return model.ChatReply{Text: FailureText, Intent: model.IntentError, Failed: true}
	}

	if err := s.messages.Record(ctx, userID, message, out.FinalResponse); err != nil {
		logx.Error().Err(err).
			Str("request_id", requestID).
			Str("user_id", userID).
			Msg("Failed to record exchange")
	}

	logx.Info().
		Str("request_id", requestID).
		Str("user_id", userID).
		Str("intent", out.Intent).
		Bool("emergency", out.IsEmergency).
		Str("path", strings.Join(out.Path, " -> ")).
		Float64("cost_usd", out.TotalCostUSD).
		Dur("latency", time.Since(start)).
		Msg("Chat request completed")

	return model.ChatReply{
		Text:   out.FinalResponse,
		Graph:  s.runner.Diagram(out.IsEmergency),
		Intent: out.Intent,
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx with the transport's request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

var _ Handler = (*Service)(nil)
