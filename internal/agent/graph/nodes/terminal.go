package nodes

import (
	"context"
	"fmt"

	"github.com/Chative-medical-agent/server/internal/agent/graph/prompts"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/signals"
	"github.com/Chative-medical-agent/server/internal/agent/tools"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

const (
	chartTitle       = "Blood pressure trend"
	noChartDataText  = "目前沒有足夠的血壓數據可以繪製圖表。"
	chartMarkdownFmt = "📊 **血壓趨勢分析圖（%s）**\n\n![%s](%s)"
)

// EmergencyAdvice appends fixed clinical guidance to the analysis.
type EmergencyAdvice struct{ deps Deps }

func NewEmergencyAdvice(deps Deps) *EmergencyAdvice { return &EmergencyAdvice{deps: deps} }

func (n *EmergencyAdvice) Name() string { return NodeEmergencyAdvice }

func (n *EmergencyAdvice) Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	msgs, err := prompts.RenderEmergency(ctx)
	if err != nil {
		return model.StateUpdate{}, err
	}
	advice, cost, err := n.deps.complete(ctx, NodeEmergencyAdvice, msgs)
	if err != nil {
		if err := degrade(ctx, NodeEmergencyAdvice, err); err != nil {
			return model.StateUpdate{}, err
		}
		advice = EmergencyFallbackText
	}
	logx.Warn().Str("user_id", s.UserID).Msg("Emergency guidance issued")
	return final(s.FinalResponse+emergencySeparator+advice, cost), nil
}

// Visualizer renders the user's history as a chart and embeds it.
type Visualizer struct{ deps Deps }

func NewVisualizer(deps Deps) *Visualizer { return &Visualizer{deps: deps} }

func (n *Visualizer) Name() string { return NodeVisualizer }

func (n *Visualizer) Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	raw := s.ContextData
	if raw == "" {
		logx.Info().Str("user_id", s.UserID).Msg("No cached health data in this run, fetching again")
		var err error
		if raw, err = n.deps.fetchHealth(ctx, s.UserID); err != nil {
			if err := degrade(ctx, NodeVisualizer, err); err != nil {
				return model.StateUpdate{}, err
			}
			return final(appendSection(s.FinalResponse, ToolDegradedText), 0), nil
		}
	}

	h, err := tools.ParseHealthHistory(raw)
	if err != nil || len(h.History) == 0 {
		logx.Warn().Err(err).Str("user_id", s.UserID).Msg("No chartable health data")
		return final(appendSection(s.FinalResponse, noChartDataText), 0), nil
	}

	chartType := model.ChartLine
	var cost float64
	msgs, err := prompts.RenderChartStyle(ctx, s.InputMessage)
	if err != nil {
		return model.StateUpdate{}, err
	}
	style, c, err := n.deps.complete(ctx, NodeVisualizer, msgs)
	if err != nil {
		if err := degrade(ctx, NodeVisualizer, err); err != nil {
			return model.StateUpdate{}, err
		}
	} else {
		cost = c
		chartType = signals.ParseChartType(style)
	}

	tctx, cancel := withTimeout(ctx, n.deps.ToolTimeout)
	uri, err := n.deps.Tools.Chart.Render(tctx, model.ChartRequest{
		Title:   chartTitle,
		Type:    chartType,
		Records: h.History,
	})
	cancel()
	if err != nil {
		if err := degrade(ctx, NodeVisualizer, err); err != nil {
			return model.StateUpdate{}, err
		}
		return final(appendSection(s.FinalResponse, ToolDegradedText), cost), nil
	}

	logx.Info().
		Str("user_id", s.UserID).
		Str("chart_type", string(chartType)).
		Int("records", len(h.History)).
		Msg("Chart rendered")

	chart := fmt.Sprintf(chartMarkdownFmt, chartType, chartTitle, uri)
	return final(appendSection(s.FinalResponse, chart), cost), nil
}

// GeneralAssistant politely declines anything outside the supported domains.
type GeneralAssistant struct{ deps Deps }

func NewGeneralAssistant(deps Deps) *GeneralAssistant { return &GeneralAssistant{deps: deps} }

func (n *GeneralAssistant) Name() string { return NodeGeneralAssistant }

func (n *GeneralAssistant) Run(ctx context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	msgs, err := prompts.RenderGeneral(ctx, s.InputMessage)
	if err != nil {
		return model.StateUpdate{}, err
	}
	text, cost, err := n.deps.complete(ctx, NodeGeneralAssistant, msgs)
	if err != nil {
		if err := degrade(ctx, NodeGeneralAssistant, err); err != nil {
			return model.StateUpdate{}, err
		}
		text = CompletionDegradedText
	}
	logx.Info().Str("user_id", s.UserID).Str("intent", s.Intent).Msg("General assistant answered")
	return final(text, cost), nil
}
