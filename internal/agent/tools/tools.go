package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const (
	ToolSearchDeviceManual = "search_device_manual"
	ToolGetUserHealthData  = "get_user_health_data"
)

// SkillSource loads the effective body of a skill document by id.
type SkillSource interface {
	Load(ctx context.Context, id string) (string, error)
}

// Set is the tool capability set handed to the workflow nodes.
type Set struct {
	Skills SkillSource
	Manual ManualSearcher
	Health HealthSource
	Chart  ChartRenderer
}

func (s Set) Validate() error {
	var missing []string
	if s.Skills == nil {
		missing = append(missing, "skills")
	}
	if s.Manual == nil {
		missing = append(missing, "manual")
	}
	if s.Health == nil {
		missing = append(missing, "health")
	}
	if s.Chart == nil {
		missing = append(missing, "chart")
	}
	if len(missing) > 0 {
		return fmt.Errorf("tool set missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

type SearchManualInput struct {
	Query string `json:"query"`
}

type SearchManualOutput struct {
	Passages string `json:"passages"`
}

type HealthDataInput struct {
	UserID string `json:"user_id"`
}

type HealthDataOutput struct {
	Document string `json:"document"`
}

// NewSearchManualTool exposes manual retrieval as an eino tool.
func NewSearchManualTool(m ManualSearcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchDeviceManual,
			Desc: "Search the blood-pressure monitor manual. Use for error codes (ERR1, ERR2, E1 ...), troubleshooting, operation steps, cleaning and specifications.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Question or error code, e.g. ERR2",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SearchManualInput) (*SearchManualOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			passages, err := m.Search(ctx, in.Query)
			if err != nil {
				return nil, err
			}
			return &SearchManualOutput{Passages: passages}, nil
		},
	)
}

// NewHealthDataTool exposes health-data retrieval as an eino tool.
func NewHealthDataTool(h HealthSource) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetUserHealthData,
			Desc: "Get a user's historical blood pressure and pulse readings as JSON.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_id": {
					Type:     "string",
					Desc:     "User identifier",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *HealthDataInput) (*HealthDataOutput, error) {
			if strings.TrimSpace(in.UserID) == "" {
				return nil, fmt.Errorf("user_id is required")
			}
			doc, err := h.Fetch(ctx, in.UserID)
			if err != nil {
				return nil, err
			}
			return &HealthDataOutput{Document: doc}, nil
		},
	)
}

// QueryTools returns the retrieval tools in registration order.
func QueryTools(s Set) []tool.InvokableTool {
	return []tool.InvokableTool{
		NewSearchManualTool(s.Manual),
		NewHealthDataTool(s.Health),
	}
}
