package model

// HealthRecord is one blood-pressure reading as returned by the health data
// tool.
type HealthRecord struct {
	Date      string `json:"date"`
	Systolic  int    `json:"sys"`
	Diastolic int    `json:"dia"`
	Pulse     int    `json:"pul"`
}

// HealthHistory is the JSON document the health data tool returns.
type HealthHistory struct {
	Status  string         `json:"status"`
	UserID  string         `json:"userId"`
	History []HealthRecord `json:"history"`
}

// ChartType is the closed set of chart styles the visualizer can render.
type ChartType string

const (
	ChartLine    ChartType = "line"
	ChartBar     ChartType = "bar"
	ChartScatter ChartType = "scatter"
)

// ChartRequest asks the renderer for one chart over a health history.
type ChartRequest struct {
	Title   string
	Type    ChartType
	Records []HealthRecord
}

// SkillEntry is one line of the skill registry.
type SkillEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}
