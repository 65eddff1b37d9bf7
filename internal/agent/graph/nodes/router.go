package nodes

import (
	"context"

	"github.com/Chative-medical-agent/server/internal/agent/graph/conversations"
	"github.com/Chative-medical-agent/server/internal/agent/graph/prompts"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/signals"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// SkillCatalog is the part of the skill registry the router reads.
type SkillCatalog interface {
	IDs() []string
	Manifest() string
}

type Router struct {
	deps    Deps
	catalog SkillCatalog
}

func NewRouter(deps Deps, catalog SkillCatalog) *Router {
	return &Router{deps: deps, catalog: catalog}
}

func (r *Router) Name() string { return NodeRouter }

func (r *Router) Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	// Without registered skills there is nothing to specialize on.
	if len(r.catalog.IDs()) == 0 {
		logx.Info().
			Str("user_id", s.UserID).
			Str("intent", model.IntentGeneral).
			Msg("Router decision: empty skill registry")
		return model.StateUpdate{Intent: strPtr(model.IntentGeneral)}, nil
	}

	last := conversations.LastAssistantContent(s.Messages)

	if signals.IsChartConfirmation(last, s.InputMessage) {
		logx.Info().
			Str("user_id", s.UserID).
			Str("intent", model.IntentVisualizer).
			Msg("Router decision: chart offer accepted")
		return model.StateUpdate{Intent: strPtr(model.IntentVisualizer)}, nil
	}

	intent := model.IntentGeneral
	var cost float64

	msgs, err := prompts.RenderRouter(ctx, prompts.RouterVars{
		Manifest:      r.catalog.Manifest(),
		LastAssistant: last,
		Message:       s.InputMessage,
	})
	if err != nil {
		return model.StateUpdate{}, err
	}

	raw, c, err := r.deps.complete(ctx, NodeRouter, msgs)
	if err != nil {
		if err := degrade(ctx, NodeRouter, err); err != nil {
			return model.StateUpdate{}, err
		}
	} else {
		cost = c
		intent = signals.MatchIntent(raw, signals.IntentCandidates(r.catalog.IDs()))
	}

	logx.Info().
		Str("user_id", s.UserID).
		Str("intent", intent).
		Str("raw", raw).
		Msg("Router decision")
	return model.StateUpdate{Intent: strPtr(intent), CostUSD: cost}, nil
}
