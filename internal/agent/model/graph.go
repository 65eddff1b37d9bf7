package model

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	errx "github.com/Chative-medical-agent/server/internal/core/error"
)

// Reserved intents that exist regardless of the skill registry.
const (
	IntentVisualizer = "visualizer"
	IntentGeneral    = "general"
	IntentError      = "error"
)

// WorkflowState is the per-request state threaded through the workflow graph.
// Concurrency model:
//   - One WorkflowState belongs to exactly one graph run.
//   - Nodes never mutate it; they return a StateUpdate which the engine merges
//     with Apply after the node returns. Nodes execute strictly one at a time.
type WorkflowState struct {
	UserID        string
	InputMessage  string
	Messages      []*schema.Message // append-only within a run
	Intent        string            // empty until the router runs, then fixed
	IsEmergency   bool              // set by the health analyst only
	ContextData   string            // raw tool data handed to a later node
	FinalResponse string

	// Path lists the nodes that ran, in order.
	Path []string
	// Accumulated LLM cost (USD) across completion calls for this run.
	TotalCostUSD float64
}

// StateUpdate is the partial result a node hands back. Nil pointers leave the
// corresponding field untouched; Messages is appended, never replaced.
type StateUpdate struct {
	Messages      []*schema.Message
	Intent        *string
	IsEmergency   *bool
	ContextData   *string
	FinalResponse *string
	CostUSD       float64
}

// NewWorkflowState seeds a run from the session history and the new message.
func NewWorkflowState(userID, message string, history []*schema.Message) *WorkflowState {
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, schema.UserMessage(message))
	return &WorkflowState{
		UserID:       userID,
		InputMessage: message,
		Messages:     msgs,
	}
}

// Apply merges u into s. Setting the intent twice is rejected.
func (s *WorkflowState) Apply(u StateUpdate) error {
	if u.Intent != nil {
		if s.Intent != "" && s.Intent != *u.Intent {
			return fmt.Errorf("%w: have %q, got %q", errx.ErrIntentReassigned, s.Intent, *u.Intent)
		}
		s.Intent = *u.Intent
	}
	if len(u.Messages) > 0 {
		s.Messages = append(s.Messages, u.Messages...)
	}
	if u.IsEmergency != nil {
		s.IsEmergency = *u.IsEmergency
	}
	if u.ContextData != nil {
		s.ContextData = *u.ContextData
	}
	if u.FinalResponse != nil {
		s.FinalResponse = *u.FinalResponse
	}
	s.TotalCostUSD += u.CostUSD
	return nil
}

// Snapshot returns a shallow copy safe to hand to a node. The message slice is
// clipped so a node appending to it cannot write into the run's backing array.
func (s *WorkflowState) Snapshot() WorkflowState {
	cp := *s
	cp.Messages = s.Messages[:len(s.Messages):len(s.Messages)]
	cp.Path = append([]string(nil), s.Path...)
	return cp
}

// QueryInput is the transport-independent chat request.
type QueryInput struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// ChatReply is what the orchestrator hands back to a transport.
type ChatReply struct {
	Text   string `json:"text"`
	Graph  string `json:"graph"`
	Intent string `json:"intent"`

	// Failed is set when the run aborted and Text carries the degraded reply.
	Failed bool `json:"-"`
}
