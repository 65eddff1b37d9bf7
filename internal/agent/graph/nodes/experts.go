package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/Chative-medical-agent/server/internal/agent/graph/prompts"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/signals"
	"github.com/Chative-medical-agent/server/internal/agent/tools"
	errx "github.com/Chative-medical-agent/server/internal/core/error"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// DeviceExpert answers device questions from retrieved manual passages.
type DeviceExpert struct{ deps Deps }

func NewDeviceExpert(deps Deps) *DeviceExpert { return &DeviceExpert{deps: deps} }

func (n *DeviceExpert) Name() string { return NodeDeviceExpert }

func (n *DeviceExpert) Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	skill := n.deps.loadSkill(ctx, NodeDeviceExpert)

	tctx, cancel := withTimeout(ctx, n.deps.ToolTimeout)
	start := time.Now()
	manual, err := n.deps.Tools.Manual.Search(tctx, s.InputMessage)
	cancel()
	if err != nil {
		if err := degrade(ctx, NodeDeviceExpert, fmt.Errorf("%w: manual search: %v", errx.ErrToolUnavailable, err)); err != nil {
			return model.StateUpdate{}, err
		}
		return final(ToolDegradedText, 0), nil
	}
	logx.Info().
		Str("user_id", s.UserID).
		Int("manual_chars", len(manual)).
		Dur("latency", time.Since(start)).
		Msg("Manual retrieval complete")

	msgs, err := prompts.RenderDeviceExpert(ctx, prompts.ExpertVars{
		Skill:   skill,
		Manual:  manual,
		Message: s.InputMessage,
	})
	if err != nil {
		return model.StateUpdate{}, err
	}
	text, cost, err := n.deps.complete(ctx, NodeDeviceExpert, msgs)
	if err != nil {
		if err := degrade(ctx, NodeDeviceExpert, err); err != nil {
			return model.StateUpdate{}, err
		}
		text = CompletionDegradedText
	}
	return final(text, cost), nil
}

// HealthAnalyst analyses the user's readings, flags emergencies and offers a
// chart when the history is long enough.
type HealthAnalyst struct{ deps Deps }

func NewHealthAnalyst(deps Deps) *HealthAnalyst { return &HealthAnalyst{deps: deps} }

func (n *HealthAnalyst) Name() string { return NodeHealthAnalyst }

func (n *HealthAnalyst) Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	skill := n.deps.loadSkill(ctx, NodeHealthAnalyst)

	raw, err := n.deps.fetchHealth(ctx, s.UserID)
	if err != nil {
		if err := degrade(ctx, NodeHealthAnalyst, err); err != nil {
			return model.StateUpdate{}, err
		}
		u := final(ToolDegradedText, 0)
		u.IsEmergency = boolPtr(false)
		return u, nil
	}

	records := 0
	if h, err := tools.ParseHealthHistory(raw); err != nil {
		logx.Warn().Err(err).Str("user_id", s.UserID).Msg("Health data unreadable, chart offer disabled")
	} else {
		records = len(h.History)
	}

	msgs, err := prompts.RenderHealthAnalyst(ctx, prompts.ExpertVars{
		Skill:   skill,
		Data:    raw,
		Message: s.InputMessage,
	})
	if err != nil {
		return model.StateUpdate{}, err
	}

	emergency := false
	text, cost, err := n.deps.complete(ctx, NodeHealthAnalyst, msgs)
	if err != nil {
		if err := degrade(ctx, NodeHealthAnalyst, err); err != nil {
			return model.StateUpdate{}, err
		}
		text = CompletionDegradedText
	} else {
		logx.Debug().Str("user_id", s.UserID).Str("raw", text).Msg("Health analysis raw output")
		emergency, text = signals.ParseRiskVerdict(text)
	}
	text = signals.OfferChart(text, records)

	logx.Info().
		Str("user_id", s.UserID).
		Bool("is_emergency", emergency).
		Int("records", records).
		Msg("Risk analysis")

	u := final(text, cost)
	u.IsEmergency = boolPtr(emergency)
	u.ContextData = strPtr(raw)
	return u, nil
}

// SkillExpert serves registry ids without a dedicated handler: the skill
// document plus one completion, no tools.
type SkillExpert struct {
	id   string
	deps Deps
}

func NewSkillExpert(id string, deps Deps) *SkillExpert { return &SkillExpert{id: id, deps: deps} }

func (n *SkillExpert) Name() string { return n.id }

func (n *SkillExpert) Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	msgs, err := prompts.RenderSkillExpert(ctx, prompts.ExpertVars{
		Skill:   n.deps.loadSkill(ctx, n.id),
		Message: s.InputMessage,
	})
	if err != nil {
		return model.StateUpdate{}, err
	}
	text, cost, err := n.deps.complete(ctx, n.id, msgs)
	if err != nil {
		if err := degrade(ctx, n.id, err); err != nil {
			return model.StateUpdate{}, err
		}
		text = CompletionDegradedText
	}
	return final(text, cost), nil
}
