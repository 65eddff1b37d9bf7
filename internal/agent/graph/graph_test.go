package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Chative-medical-agent/server/internal/agent/graph/nodes"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	errx "github.com/Chative-medical-agent/server/internal/core/error"
)

type stubNode struct {
	name string
	run  func(s model.WorkflowState) (model.StateUpdate, error)
}

func (n stubNode) Name() string { return n.name }

func (n stubNode) Run(_ context.Context, s model.WorkflowState) (model.StateUpdate, error) {
	return n.run(s)
}

func str(s string) *string { return &s }

func answer(name, text string) stubNode {
	return stubNode{name: name, run: func(s model.WorkflowState) (model.StateUpdate, error) {
		return model.StateUpdate{FinalResponse: str(s.FinalResponse + text)}, nil
	}}
}

func stubHandlers(t *Table, intent string, emergency bool) map[string]nodes.Node {
	h := map[string]nodes.Node{
		nodes.NodeRouter: stubNode{name: nodes.NodeRouter, run: func(model.WorkflowState) (model.StateUpdate, error) {
			return model.StateUpdate{Intent: str(intent)}, nil
		}},
		nodes.NodeVisualizer:       answer(nodes.NodeVisualizer, "[chart]"),
		nodes.NodeGeneralAssistant: answer(nodes.NodeGeneralAssistant, "general"),
		nodes.NodeEmergencyAdvice:  answer(nodes.NodeEmergencyAdvice, "+advice"),
	}
	for _, id := range t.Skills {
		h[id] = answer(id, id)
	}
	h[nodes.NodeHealthAnalyst] = stubNode{name: nodes.NodeHealthAnalyst, run: func(model.WorkflowState) (model.StateUpdate, error) {
		return model.StateUpdate{FinalResponse: str("analysis"), IsEmergency: &emergency, ContextData: str("{}")}, nil
	}}
	return h
}

func TestNewTableNodes(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"device_expert", "health_analyst", "router"})
	want := []string{"router", "device_expert", "health_analyst", "emergency_advice", "visualizer", "general_assistant"}
	if strings.Join(tbl.Nodes, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected nodes: %v", tbl.Nodes)
	}

	noHealth := NewTable([]string{"device_expert"})
	if _, ok := noHealth.Transitions[nodes.NodeEmergencyAdvice]; ok {
		t.Fatal("emergency_advice requires health_analyst")
	}
}

func TestRouterTransitions(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"device_expert", "health_analyst"})
	cases := map[string]string{
		"device_expert":  "device_expert",
		"health_analyst": "health_analyst",
		"visualizer":     nodes.NodeVisualizer,
		"general":        nodes.NodeGeneralAssistant,
		"diet_coach":     nodes.NodeGeneralAssistant,
		"":               nodes.NodeGeneralAssistant,
	}
	for intent, want := range cases {
		got, ok := tbl.Next(nodes.NodeRouter, &model.WorkflowState{Intent: intent})
		if !ok || got != want {
			t.Fatalf("intent %q: next = %q, want %q", intent, got, want)
		}
	}
}

func TestHealthAnalystTransitions(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"health_analyst"})
	cases := []struct {
		name      string
		emergency bool
		message   string
		want      string
	}{
		{"emergency wins over chart", true, "幫我畫圖", nodes.NodeEmergencyAdvice},
		{"chart keyword", false, "Show me a CHART", nodes.NodeVisualizer},
		{"terminal", false, "我的血壓正常嗎", End},
	}
	for _, tc := range cases {
		got, _ := tbl.Next(nodes.NodeHealthAnalyst, &model.WorkflowState{IsEmergency: tc.emergency, InputMessage: tc.message})
		if got != tc.want {
			t.Fatalf("%s: next = %q, want %q", tc.name, got, tc.want)
		}
	}

	for _, terminal := range []string{nodes.NodeEmergencyAdvice, nodes.NodeVisualizer, nodes.NodeGeneralAssistant} {
		if got, _ := tbl.Next(terminal, &model.WorkflowState{}); got != End {
			t.Fatalf("%s must be terminal, got %q", terminal, got)
		}
	}
}

func TestMermaidListsEveryNodeAndEdgeOnce(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"device_expert", "health_analyst"})
	d := renderMermaid(tbl)

	for _, n := range tbl.Nodes {
		if c := strings.Count(d, "\t"+n+"("+n+")\n"); c != 1 {
			t.Fatalf("node %s declared %d times", n, c)
		}
	}
	edges := []string{
		"__start__ --> router;",
		"router -.-> device_expert;",
		"router -.-> health_analyst;",
		"router -.-> visualizer;",
		"router -.-> general_assistant;",
		"device_expert --> __end__;",
		"health_analyst -.-> emergency_advice;",
		"health_analyst -.-> visualizer;",
		"health_analyst -.-> __end__;",
		"emergency_advice --> __end__;",
		"visualizer --> __end__;",
		"general_assistant --> __end__;",
	}
	for _, e := range edges {
		if c := strings.Count(d, e); c != 1 {
			t.Fatalf("edge %q appears %d times", e, c)
		}
	}
	if strings.Count(d, "-->")+strings.Count(d, "-.->") != len(edges) {
		t.Fatalf("unexpected extra edges in:\n%s", d)
	}
}

func TestEngineRunDevicePath(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"device_expert", "health_analyst"})
	e, err := NewEngine(context.Background(), tbl, stubHandlers(tbl, "device_expert", false))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	out, err := e.Run(context.Background(), model.NewWorkflowState("u1", "ERR2 是什麼意思？", nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Intent != "device_expert" || out.FinalResponse != "device_expert" {
		t.Fatalf("unexpected state: intent=%q final=%q", out.Intent, out.FinalResponse)
	}
	if strings.Join(out.Path, ",") != "router,device_expert" {
		t.Fatalf("unexpected path: %v", out.Path)
	}
	if d := e.Diagram(false); strings.HasSuffix(d, EmergencyStyle) {
		t.Fatal("non-emergency diagram must not carry emergency styling")
	}
}

func TestDiagramWithoutHealthAnalyst(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"device_expert"})
	e, err := NewEngine(context.Background(), tbl, stubHandlers(tbl, "device_expert", false))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	d := e.Diagram(true)
	if strings.Contains(d, nodes.NodeEmergencyAdvice) {
		t.Fatalf("diagram must not mention an unregistered emergency node:\n%s", d)
	}
	if strings.HasSuffix(d, EmergencyStyle) {
		t.Fatal("emergency styling needs an emergency node")
	}
}

func TestEngineRunEmergencyPath(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"health_analyst"})
	e, err := NewEngine(context.Background(), tbl, stubHandlers(tbl, "health_analyst", true))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	out, err := e.Run(context.Background(), model.NewWorkflowState("u1", "185/110 幫我畫圖", nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Join(out.Path, ",") != "router,health_analyst,emergency_advice" {
		t.Fatalf("unexpected path: %v", out.Path)
	}
	if out.FinalResponse != "analysis+advice" {
		t.Fatalf("emergency must append: %q", out.FinalResponse)
	}
	if d := e.Diagram(true); !strings.HasSuffix(d, "\nclass emergency_advice activeEmergencyNode") {
		t.Fatal("emergency styling missing")
	}
}

func TestEngineRunVisualizerAfterAnalysis(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"health_analyst"})
	e, err := NewEngine(context.Background(), tbl, stubHandlers(tbl, "health_analyst", false))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	out, err := e.Run(context.Background(), model.NewWorkflowState("u1", "分析並畫圖", nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Join(out.Path, ",") != "router,health_analyst,visualizer" || out.FinalResponse != "analysis[chart]" {
		t.Fatalf("unexpected run: %v %q", out.Path, out.FinalResponse)
	}
}

func TestEngineNodePanicAborts(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"device_expert"})
	h := stubHandlers(tbl, "device_expert", false)
	h["device_expert"] = stubNode{name: "device_expert", run: func(model.WorkflowState) (model.StateUpdate, error) {
		panic("boom")
	}}
	e, err := NewEngine(context.Background(), tbl, h)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if _, err := e.Run(context.Background(), model.NewWorkflowState("u1", "ERR2", nil)); err == nil {
		t.Fatal("expected run to fail")
	}
}

func TestEngineRejectsMissingHandler(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]string{"device_expert"})
	h := stubHandlers(tbl, "device_expert", false)
	delete(h, nodes.NodeVisualizer)

	_, err := NewEngine(context.Background(), tbl, h)
	if !errors.Is(err, errx.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestEngineRequiresFinalResponse(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil)
	h := stubHandlers(tbl, "general", false)
	h[nodes.NodeGeneralAssistant] = stubNode{name: nodes.NodeGeneralAssistant, run: func(model.WorkflowState) (model.StateUpdate, error) {
		return model.StateUpdate{}, nil
	}}
	e, err := NewEngine(context.Background(), tbl, h)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if _, err := e.Run(context.Background(), model.NewWorkflowState("u1", "hi", nil)); !errors.Is(err, ErrNoFinalResponse) {
		t.Fatalf("expected ErrNoFinalResponse, got %v", err)
	}
}
