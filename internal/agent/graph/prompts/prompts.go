package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/router.txt
	routerPrompt string
	//go:embed template/device_expert.txt
	deviceExpertPrompt string
	//go:embed template/health_analyst.txt
	healthAnalystPrompt string
	//go:embed template/emergency.txt
	emergencyPrompt string
	//go:embed template/chart_style.txt
	chartStylePrompt string
	//go:embed template/general.txt
	generalPrompt string
	//go:embed template/skill_expert.txt
	skillExpertPrompt string
)

type RouterVars struct {
	Manifest      string
	LastAssistant string
	Message       string
}

type ExpertVars struct {
	Skill   string
	Manual  string
	Data    string
	Message string
}

// render formats a Go template through the eino prompt component so prompt
// callbacks observe every rendered prompt under its own name.
func render(ctx context.Context, name, tpl string, vars map[string]any) ([]*schema.Message, error) {
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      name,
		Type:      "GoTemplate",
		Component: components.ComponentOfPrompt,
	})
	t := prompt.FromMessages(schema.GoTemplate, schema.UserMessage(tpl))
	msgs, err := t.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs, nil
}

func RenderRouter(ctx context.Context, v RouterVars) ([]*schema.Message, error) {
	return render(ctx, "router", routerPrompt, map[string]any{
		"Manifest":      v.Manifest,
		"LastAssistant": v.LastAssistant,
		"Message":       v.Message,
	})
}

func RenderDeviceExpert(ctx context.Context, v ExpertVars) ([]*schema.Message, error) {
	return render(ctx, "device_expert", deviceExpertPrompt, map[string]any{
		"Skill":   v.Skill,
		"Manual":  v.Manual,
		"Message": v.Message,
	})
}

func RenderHealthAnalyst(ctx context.Context, v ExpertVars) ([]*schema.Message, error) {
	return render(ctx, "health_analyst", healthAnalystPrompt, map[string]any{
		"Skill":   v.Skill,
		"Data":    v.Data,
		"Message": v.Message,
	})
}

func RenderSkillExpert(ctx context.Context, v ExpertVars) ([]*schema.Message, error) {
	return render(ctx, "skill_expert", skillExpertPrompt, map[string]any{
		"Skill":   v.Skill,
		"Message": v.Message,
	})
}

// RenderEmergency is fixed clinical guidance, independent of the user.
func RenderEmergency(ctx context.Context) ([]*schema.Message, error) {
	return render(ctx, "emergency", emergencyPrompt, map[string]any{})
}

func RenderChartStyle(ctx context.Context, message string) ([]*schema.Message, error) {
	return render(ctx, "chart_style", chartStylePrompt, map[string]any{"Message": message})
}

func RenderGeneral(ctx context.Context, message string) ([]*schema.Message, error) {
	return render(ctx, "general", generalPrompt, map[string]any{"Message": message})
}
