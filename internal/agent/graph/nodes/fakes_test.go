package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/tools"
)

// fakeChatModel answers with respond(prompt) and counts calls.
type fakeChatModel struct {
	respond func(prompt string) (string, error)
	calls   atomic.Int32
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var prompt strings.Builder
	for _, m := range input {
		prompt.WriteString(m.Content)
	}
	text, err := f.respond(prompt.String())
	if err != nil {
		return nil, err
	}
	msg := schema.AssistantMessage(text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}}
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type fakeSkills struct{}

func (fakeSkills) Load(_ context.Context, id string) (string, error) {
	if id == "missing" {
		return "", errors.New("no such skill")
	}
	return "SKILL:" + id, nil
}

type fakeManual struct {
	out string
	err error
}

func (f fakeManual) Search(context.Context, string) (string, error) { return f.out, f.err }

type fakeHealth struct {
	records int
	err     error
	calls   atomic.Int32
}

func (f *fakeHealth) Fetch(_ context.Context, userID string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, `{"status":"success","userId":%q,"history":[`, userID)
	for i := 0; i < f.records; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"date":"2025-01-%02d","sys":120,"dia":80,"pul":70}`, i+1)
	}
	sb.WriteString("]}")
	return sb.String(), nil
}

type fakeChart struct {
	got model.ChartRequest
	err error
}

func (f *fakeChart) Render(_ context.Context, req model.ChartRequest) (string, error) {
	f.got = req
	if f.err != nil {
		return "", f.err
	}
	return "data:image/png;base64,QUJD", nil
}

type fakeCatalog struct{ ids []string }

func (c fakeCatalog) IDs() []string { return c.ids }

func (c fakeCatalog) Manifest() string {
	var sb strings.Builder
	for _, id := range c.ids {
		fmt.Fprintf(&sb, "- '%s': desc\n", id)
	}
	return sb.String()
}

func newDeps(cm *fakeChatModel, health *fakeHealth, manual fakeManual, chart *fakeChart) Deps {
	if health == nil {
		health = &fakeHealth{records: 24}
	}
	if chart == nil {
		chart = &fakeChart{}
	}
	return Deps{
		Chat: &ChatModel{Model: cm, Provider: "fake", ModelName: "gemini-2.5-flash"},
		Tools: tools.Set{
			Skills: fakeSkills{},
			Manual: manual,
			Health: health,
			Chart:  chart,
		},
	}
}

func reply(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}
