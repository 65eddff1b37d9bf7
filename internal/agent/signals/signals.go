// Package signals holds every free-text protocol between the completion
// backend and the workflow's control flow: marker strings, keyword sets and
// the intent matcher. Nodes and transitions only call these functions, so the
// wire contract can move to structured output without touching them.
package signals

import (
	"sort"
	"strings"

	"github.com/Chative-medical-agent/server/internal/agent/model"
)

const (
	// ChartOfferMarker identifies an assistant turn that offered a chart.
	ChartOfferMarker = "繪製趨勢分析圖表嗎"
	// ChartOfferSuffix is appended to health analyses with enough history.
	ChartOfferSuffix = "\n\n💡 **系統偵測到數據量充足，需要我為您繪製趨勢分析圖表嗎？**"

	EmergencyMarker = "[EMERGENCY]"
	NormalMarker    = "[NORMAL]"

	// MinRecordsForChart is the history size at which a chart is offered.
	MinRecordsForChart = 5
)

var (
	visualizationKeywords = []string{"圖", "畫", "chart", "plot", "visualize"}
	affirmationKeywords   = []string{"好", "要", "可以", "麻煩", "請", "是", "對", "yes", "ok", "sure", "please"}

	intentNoise = strings.NewReplacer(".", "", "'", "", "\"", "", "`", "")
)

// IsChartConfirmation reports whether the user is accepting a chart offer made
// in the previous assistant turn.
func IsChartConfirmation(lastAssistant, message string) bool {
	if !strings.Contains(lastAssistant, ChartOfferMarker) {
		return false
	}
	return containsAny(strings.ToLower(message), affirmationKeywords)
}

// WantsVisualization reports whether the message asks for a chart.
func WantsVisualization(message string) bool {
	return containsAny(strings.ToLower(message), visualizationKeywords)
}

// ParseRiskVerdict scans an analysis for the risk markers. Both markers are
// removed from the returned text whichever one fired.
func ParseRiskVerdict(text string) (emergency bool, cleaned string) {
	emergency = strings.Contains(text, EmergencyMarker)
	cleaned = strings.NewReplacer(EmergencyMarker, "", NormalMarker, "").Replace(text)
	return emergency, strings.TrimSpace(cleaned)
}

// OfferChart appends the chart offer when the history is long enough.
func OfferChart(text string, records int) string {
	if records < MinRecordsForChart {
		return text
	}
	return text + ChartOfferSuffix
}

// ParseChartType maps a style classification onto the supported chart types.
func ParseChartType(text string) model.ChartType {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "bar") || strings.Contains(t, "長條"):
		return model.ChartBar
	case strings.Contains(t, "scatter") || strings.Contains(t, "散佈"):
		return model.ChartScatter
	default:
		return model.ChartLine
	}
}

// IntentCandidates is the combined id set the router may pick from.
func IntentCandidates(skillIDs []string) []string {
	seen := make(map[string]bool, len(skillIDs)+2)
	out := make([]string, 0, len(skillIDs)+2)
	for _, id := range append(append([]string{}, skillIDs...), model.IntentVisualizer, model.IntentGeneral) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// MatchIntent resolves a router completion to one candidate id. Candidates
// are tried longest first so "health_analyst" wins over "health"; no match
// yields general.
func MatchIntent(output string, candidates []string) string {
	raw := intentNoise.Replace(strings.ToLower(strings.TrimSpace(output)))

	ordered := append([]string(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})

	for _, id := range ordered {
		if id != "" && strings.Contains(raw, strings.ToLower(id)) {
			return id
		}
	}
	return model.IntentGeneral
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
