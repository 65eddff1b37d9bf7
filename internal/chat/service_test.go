package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-medical-agent/server/internal/agent/graph"
	"github.com/Chative-medical-agent/server/internal/agent/graph/conversations"
	"github.com/Chative-medical-agent/server/internal/agent/graph/nodes"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/repo"
	"github.com/Chative-medical-agent/server/internal/agent/skills"
	"github.com/Chative-medical-agent/server/internal/agent/tools"
)

type fakeChatModel struct {
	respond func(prompt string) string
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	var prompt strings.Builder
	for _, m := range input {
		prompt.WriteString(m.Content)
	}
	return schema.AssistantMessage(f.respond(prompt.String()), nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type fakeSkills struct{}

func (fakeSkills) Load(_ context.Context, id string) (string, error) { return "SKILL:" + id, nil }

type fakeManual struct{ queries []string }

func (f *fakeManual) Search(_ context.Context, q string) (string, error) {
	f.queries = append(f.queries, q)
	return "ERR2：袖帶安裝不正確或充氣異常。", nil
}

type fakeChart struct{}

func (fakeChart) Render(context.Context, model.ChartRequest) (string, error) {
	return "data:image/png;base64,iVBORw0KGgo=", nil
}

// routeTo answers router prompts with intent and every other prompt with answer.
func routeTo(intent, answer string) func(string) string {
	return func(prompt string) string {
		if strings.Contains(prompt, "路由器") {
			return intent
		}
		return answer
	}
}

func newService(t *testing.T, respond func(string) string, manual *fakeManual) (*Service, *repo.MemorySessionStore) {
	t.Helper()

	return newServiceWithSkills(t, []model.SkillEntry{
		{ID: "device_expert", Description: "血壓計操作與錯誤代碼"},
		{ID: "health_analyst", Description: "血壓數據分析"},
	}, respond, manual)
}

func newServiceWithSkills(t *testing.T, entries []model.SkillEntry, respond func(string) string, manual *fakeManual) (*Service, *repo.MemorySessionStore) {
	t.Helper()

	if manual == nil {
		manual = &fakeManual{}
	}
	deps := nodes.Deps{
		Chat: &nodes.ChatModel{Model: &fakeChatModel{respond: respond}, Provider: "fake", ModelName: "gemini-2.5-flash"},
		Tools: tools.Set{
			Skills: fakeSkills{},
			Manual: manual,
			Health: tools.NewStaticHealthSource(nil),
			Chart:  fakeChart{},
		},
	}
	catalog := skills.NewRegistry(entries)
	engine, err := graph.Build(context.Background(), deps, catalog)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}

	store := repo.NewMemorySessionStore(10)
	return NewService(engine, conversations.NewMessagesManager(store), model.ChatConfig{}), store
}

func TestHandleDeviceExpertScenario(t *testing.T) {
	t.Parallel()

	manual := &fakeManual{}
	svc, store := newService(t, routeTo("device_expert", "ERR2 代表袖帶問題，請重新綁好袖帶。"), manual)

	got := svc.Handle(context.Background(), "u1", "ERR2 是什麼意思？")
	if got.Failed || got.Intent != "device_expert" {
		t.Fatalf("unexpected reply: %+v", got)
	}
	if got.Text != "ERR2 代表袖帶問題，請重新綁好袖帶。" {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	if len(manual.queries) != 1 {
		t.Fatalf("manual search called %d times, want 1", len(manual.queries))
	}
	if !strings.Contains(got.Graph, "router -.-> device_expert;") || strings.Contains(got.Graph, graph.EmergencyStyle) {
		t.Fatalf("unexpected graph:\n%s", got.Graph)
	}

	history, _ := store.History(context.Background(), "u1")
	if len(history) != 2 || history[0].Content != "ERR2 是什麼意思？" || history[1].Role != schema.Assistant {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestHandleEmptyRegistryRoutesGeneral(t *testing.T) {
	t.Parallel()

	svc, _ := newServiceWithSkills(t, nil, routeTo("visualizer", "您好，有什麼可以幫您？"), nil)

	got := svc.Handle(context.Background(), "u1", "hello")
	if got.Failed || got.Intent != model.IntentGeneral {
		t.Fatalf("unexpected reply: %+v", got)
	}
	if strings.Contains(got.Text, "base64") {
		t.Fatalf("general answer must not carry a chart: %q", got.Text)
	}
	if !strings.Contains(got.Graph, "general_assistant") {
		t.Fatalf("graph should trace general_assistant: %q", got.Graph)
	}
}

func TestHandleEmergencyAnnotatesGraph(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, func(prompt string) string {
		switch {
		case strings.Contains(prompt, "路由器"):
			return "health_analyst"
		case strings.Contains(prompt, "SKILL:health_analyst"):
			return "您的血壓偏高。[EMERGENCY]"
		default:
			return "請立即就醫。"
		}
	}, nil)

	got := svc.Handle(context.Background(), "u1", "我的血壓 185/110 頭很痛")
	if got.Intent != "health_analyst" || !strings.HasSuffix(got.Graph, graph.EmergencyStyle) {
		t.Fatalf("unexpected reply: %+v", got)
	}
	if strings.Contains(got.Text, "[EMERGENCY]") || !strings.Contains(got.Text, "請立即就醫。") {
		t.Fatalf("unexpected text: %q", got.Text)
	}
}

func TestHandleMemoryCap(t *testing.T) {
	t.Parallel()

	svc, store := newService(t, routeTo("general", "好的"), nil)
	ctx := context.Background()
	for i := 1; i <= 6; i++ {
		if got := svc.Handle(ctx, "u1", fmt.Sprintf("q%d", i)); got.Failed {
			t.Fatalf("exchange %d failed", i)
		}
	}

	history, err := store.History(ctx, "u1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 10 {
		t.Fatalf("len(history) = %d, want 10", len(history))
	}
	if history[0].Content != "q2" || history[8].Content != "q6" {
		t.Fatalf("oldest exchange not discarded first: %q .. %q", history[0].Content, history[8].Content)
	}
}

func TestHandleScrubsImagesFromMemoryOnly(t *testing.T) {
	t.Parallel()

	svc, store := newService(t, routeTo("visualizer", "line"), nil)
	got := svc.Handle(context.Background(), "u1", "幫我畫血壓圖")
	if got.Intent != model.IntentVisualizer {
		t.Fatalf("intent = %q", got.Intent)
	}
	if !strings.Contains(got.Text, "data:image/png;base64,iVBORw0KGgo=") {
		t.Fatalf("returned text lost the image: %q", got.Text)
	}

	history, _ := store.History(context.Background(), "u1")
	stored := history[len(history)-1].Content
	if strings.Contains(stored, "base64,") || !strings.Contains(stored, conversations.ImagePlaceholder) {
		t.Fatalf("stored text not scrubbed: %q", stored)
	}
}

func TestHandleFailureLeavesMemoryUntouched(t *testing.T) {
	t.Parallel()

	svc, store := newService(t, func(prompt string) string {
		if strings.Contains(prompt, "路由器") {
			return "device_expert"
		}
		if strings.Contains(prompt, "SKILL:device_expert") {
			panic("forced failure")
		}
		return "ok"
	}, nil)
	ctx := context.Background()

	seed := []*schema.Message{schema.UserMessage("hi"), schema.AssistantMessage("hello", nil)}
	if err := store.Append(ctx, "u1", seed...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got := svc.Handle(ctx, "u1", "ERR2 是什麼意思？")
	if !got.Failed || got.Intent != model.IntentError || got.Graph != "" || got.Text != FailureText {
		t.Fatalf("unexpected reply: %+v", got)
	}

	history, _ := store.History(ctx, "u1")
	if len(history) != 2 || history[1].Content != "hello" {
		t.Fatalf("history changed: %+v", history)
	}
}

func TestHandleDefaultsUserID(t *testing.T) {
	t.Parallel()

	svc, store := newService(t, routeTo("general", "嗨"), nil)
	svc.Handle(context.Background(), " ", "你好")

	history, _ := store.History(context.Background(), "default-user")
	if len(history) != 2 {
		t.Fatalf("default user history = %d turns, want 2", len(history))
	}
}

type failingStore struct{ appended int }

func (failingStore) History(context.Context, string) ([]*schema.Message, error) {
	return nil, errors.New("store down")
}

func (f *failingStore) Append(_ context.Context, _ string, turns ...*schema.Message) error {
	f.appended += len(turns)
	return nil
}

func (failingStore) Clear(context.Context, string) error { return nil }

func TestHandleSurvivesUnreadableHistory(t *testing.T) {
	t.Parallel()

	base, _ := newService(t, routeTo("general", "嗨"), nil)
	store := &failingStore{}
	svc := NewService(base.runner, conversations.NewMessagesManager(store), model.ChatConfig{})

	if got := svc.Handle(context.Background(), "u1", "你好"); got.Failed || got.Text != "嗨" {
		t.Fatalf("unexpected reply: %+v", got)
	}
	if store.appended != 2 {
		t.Fatalf("appended %d turns, want 2", store.appended)
	}
}
