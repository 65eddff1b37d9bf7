package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/tools"
	errx "github.com/Chative-medical-agent/server/internal/core/error"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// Node names. Skill nodes are named after their registry id.
const (
	NodeRouter           = "router"
	NodeDeviceExpert     = "device_expert"
	NodeHealthAnalyst    = "health_analyst"
	NodeEmergencyAdvice  = "emergency_advice"
	NodeVisualizer       = "visualizer"
	NodeGeneralAssistant = "general_assistant"
)

// User-visible fallbacks. Deliberately generic.
const (
	CompletionDegradedText = "抱歉，系統暫時無法產生完整的回覆，請稍後再試。"
	ToolDegradedText       = "抱歉，目前無法取得相關資料，請稍後再試或聯絡客服。"
	EmergencyFallbackText  = "請保持平靜，靜坐 15 分鐘後重新測量。若伴隨頭痛、胸痛等症狀，請立即就醫或撥打緊急電話。"
	emergencySeparator     = "\n\n--- ⚠️ 系統臨床建議 ---\n"
)

// Node is one unit of work over the workflow state. Run receives a snapshot
// and returns a partial update; it never mutates shared state.
type Node interface {
	Name() string
	Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error)
}

// Deps are the collaborators every node may use.
type Deps struct {
	Chat        *ChatModel
	Tools       tools.Set
	LLMTimeout  time.Duration
	ToolTimeout time.Duration
}

func (d Deps) Validate() error {
	if d.Chat == nil || d.Chat.Model == nil {
		return errors.New("chat model is not initialized")
	}
	return d.Tools.Validate()
}

// complete runs one completion bounded by the LLM timeout and prices it.
func (d Deps) complete(ctx context.Context, node string, msgs []*schema.Message) (string, float64, error) {
	cctx, cancel := withTimeout(ctx, d.LLMTimeout)
	defer cancel()
	cctx = callbacks.ReuseHandlers(cctx, &callbacks.RunInfo{
		Name:      node,
		Type:      d.Chat.Provider,
		Component: components.ComponentOfChatModel,
	})

	start := time.Now()
	out, err := d.Chat.Model.Generate(cctx, msgs)
	if err != nil {
		return "", 0, fmt.Errorf("%s completion: %w", node, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", 0, fmt.Errorf("%s: %w", node, errx.ErrEmptyCompletion)
	}

	var cost float64
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(d.Chat.ModelName))
		cost = totalC
		logx.Debug().
			Str("node", node).
			Str("model", d.Chat.ModelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Dur("latency", time.Since(start)).
			Msg("LLM usage")
	}
	return strings.TrimSpace(out.Content), cost, nil
}

// degrade swallows a per-call failure so the node can substitute fallback
// text. Once the request context itself is done the run must abort instead.
func degrade(ctx context.Context, node string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", node, ctxErr)
	}
	logx.Error().Err(err).Str("node", node).Msg("Node degraded")
	return nil
}

// loadSkill fetches a skill document. A missing document is logged and the
// node answers without it.
func (d Deps) loadSkill(ctx context.Context, id string) string {
	tctx, cancel := withTimeout(ctx, d.ToolTimeout)
	defer cancel()
	body, err := d.Tools.Skills.Load(tctx, id)
	if err != nil {
		logx.Warn().Err(err).Str("skill_id", id).Msg("Skill document unavailable")
		return ""
	}
	return body
}

// fetchHealth calls the health tool under the tool timeout.
func (d Deps) fetchHealth(ctx context.Context, userID string) (string, error) {
	tctx, cancel := withTimeout(ctx, d.ToolTimeout)
	defer cancel()
	start := time.Now()
	raw, err := d.Tools.Health.Fetch(tctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: health data: %v", errx.ErrToolUnavailable, err)
	}
	logx.Debug().Str("user_id", userID).Dur("latency", time.Since(start)).Msg("Health data fetched")
	return raw, nil
}

// final wraps a terminal text as both the final response and a new turn.
func final(text string, cost float64) model.StateUpdate {
	return model.StateUpdate{
		FinalResponse: strPtr(text),
		Messages:      []*schema.Message{schema.AssistantMessage(text, nil)},
		CostUSD:       cost,
	}
}

// ForSkill returns the node serving a registry id. Ids without a dedicated
// handler get the generic skill expert.
func ForSkill(id string, deps Deps) Node {
	switch id {
	case NodeDeviceExpert:
		return NewDeviceExpert(deps)
	case NodeHealthAnalyst:
		return NewHealthAnalyst(deps)
	default:
		return NewSkillExpert(id, deps)
	}
}
