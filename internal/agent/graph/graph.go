package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Chative-medical-agent/server/internal/agent/graph/nodes"
	"github.com/Chative-medical-agent/server/internal/agent/graph/observers"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	errx "github.com/Chative-medical-agent/server/internal/core/error"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

var (
	tracer = otel.Tracer("github.com/Chative-medical-agent/server/internal/agent/graph")

	// ErrNoFinalResponse means a run reached END without any node answering.
	ErrNoFinalResponse = errors.New("workflow finished without a final response")
)

// Runner executes one workflow run to completion.
type Runner interface {
	Run(ctx context.Context, st *model.WorkflowState) (*model.WorkflowState, error)
	Diagram(emergency bool) string
}

// Engine is the compiled workflow. It is built once and safe for concurrent
// runs; each run owns its WorkflowState.
type Engine struct {
	table    *Table
	runnable compose.Runnable[*model.WorkflowState, *model.WorkflowState]
	diagram  string
	handler  callbacks.Handler
}

// GraphBuilder handles the construction of the workflow graph from a table.
type GraphBuilder struct {
	table    *Table
	handlers map[string]nodes.Node
	graph    *compose.Graph[*model.WorkflowState, *model.WorkflowState]
}

// DefaultHandlers maps every table node to its production implementation.
func DefaultHandlers(t *Table, deps nodes.Deps, catalog nodes.SkillCatalog) map[string]nodes.Node {
	h := map[string]nodes.Node{
		nodes.NodeRouter:           nodes.NewRouter(deps, catalog),
		nodes.NodeVisualizer:       nodes.NewVisualizer(deps),
		nodes.NodeGeneralAssistant: nodes.NewGeneralAssistant(deps),
	}
	for _, id := range t.Skills {
		h[id] = nodes.ForSkill(id, deps)
	}
	if _, ok := t.Transitions[nodes.NodeEmergencyAdvice]; ok {
		h[nodes.NodeEmergencyAdvice] = nodes.NewEmergencyAdvice(deps)
	}
	return h
}

// Build wires the production engine for the registered skills.
func Build(ctx context.Context, deps nodes.Deps, catalog nodes.SkillCatalog) (*Engine, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	t := NewTable(catalog.IDs())
	return NewEngine(ctx, t, DefaultHandlers(t, deps, catalog))
}

// NewEngine validates that every table node has a handler, then compiles.
func NewEngine(ctx context.Context, t *Table, handlers map[string]nodes.Node) (*Engine, error) {
	if t == nil {
		return nil, fmt.Errorf("transition table is nil")
	}
	if err := validate(t, handlers); err != nil {
		logx.Error().Err(err).Msg("Workflow validation failed")
		return nil, err
	}

	b := &GraphBuilder{
		table:    t,
		handlers: handlers,
		graph:    compose.NewGraph[*model.WorkflowState, *model.WorkflowState](),
	}
	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	runnable, err := b.compile(ctx)
	if err != nil {
		return nil, err
	}

	logx.Info().Strs("nodes", t.Nodes).Msg("Workflow engine ready")
	return &Engine{
		table:    t,
		runnable: runnable,
		diagram:  renderMermaid(t),
		handler:  observers.NewAllCallbacks(),
	}, nil
}

func validate(t *Table, handlers map[string]nodes.Node) error {
	if _, ok := t.Transitions[t.Start]; !ok {
		return fmt.Errorf("%w: start node %q", errx.ErrUnknownNode, t.Start)
	}
	for _, n := range t.Nodes {
		h, ok := handlers[n]
		if !ok || h == nil {
			return fmt.Errorf("%w: no handler for %q", errx.ErrUnknownNode, n)
		}
		if h.Name() != n {
			return fmt.Errorf("handler for %q reports name %q", n, h.Name())
		}
		for _, target := range t.Transitions[n].Targets {
			if _, ok := t.Transitions[target]; !ok && target != End {
				return fmt.Errorf("%w: %q -> %q", errx.ErrUnknownNode, n, target)
			}
		}
	}
	return nil
}

// addNodes wraps every handler in a lambda that snapshots, runs, merges.
func (b *GraphBuilder) addNodes() error {
	for _, name := range b.table.Nodes {
		if err := b.graph.AddLambdaNode(name, b.lambda(b.handlers[name]), compose.WithNodeName(name)); err != nil {
			return fmt.Errorf("error adding node %s: %w", name, err)
		}
	}
	return nil
}

func (b *GraphBuilder) lambda(n nodes.Node) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.WorkflowState) (out *model.WorkflowState, err error) {
		ctx, span := tracer.Start(ctx, "workflow."+n.Name(), trace.WithAttributes(
			attribute.String("user_id", s.UserID),
			attribute.String("intent", s.Intent),
		))
		defer span.End()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: %v", errx.ErrNodePanic, n.Name(), r)
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}()

		u, err := n.Run(ctx, s.Snapshot())
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name(), err)
		}
		if err := s.Apply(u); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name(), err)
		}
		s.Path = append(s.Path, n.Name())
		return s, nil
	})
}

// addEdges connects START and every unconditional row.
func (b *GraphBuilder) addEdges() error {
	if err := b.graph.AddEdge(compose.START, b.table.Start); err != nil {
		return fmt.Errorf("error adding start edge: %w", err)
	}
	for _, name := range b.table.Nodes {
		tr := b.table.Transitions[name]
		if tr.Branching() {
			continue
		}
		if err := b.graph.AddEdge(name, tr.Targets[0]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", name, tr.Targets[0], err)
		}
	}
	return nil
}

// addBranches turns every conditional row into a graph branch.
func (b *GraphBuilder) addBranches() error {
	for _, name := range b.table.Nodes {
		tr := b.table.Transitions[name]
		if !tr.Branching() {
			continue
		}
		targets := make(map[string]bool, len(tr.Targets))
		for _, target := range tr.Targets {
			targets[target] = true
		}
		from := name
		branch := compose.NewGraphBranch(func(ctx context.Context, s *model.WorkflowState) (string, error) {
			next := tr.Resolve(s)
			logx.Debug().Str("from", from).Str("to", next).Str("intent", s.Intent).Msg("Transition")
			return next, nil
		}, targets)
		if err := b.graph.AddBranch(name, branch); err != nil {
			logx.Error().Err(err).Str("node", name).Msg("Error adding branch")
			return fmt.Errorf("error adding branch for %s: %w", name, err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.WorkflowState, *model.WorkflowState], error) {
	// Every path visits each node at most once.
	maxSteps := len(b.table.Nodes) + 2
	if maxSteps < 10 {
		maxSteps = 10
	}

	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("medical_workflow"),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Int("max_steps", maxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}

// Run executes one request. The returned state is st, advanced.
func (e *Engine) Run(ctx context.Context, st *model.WorkflowState) (*model.WorkflowState, error) {
	out, err := e.runnable.Invoke(ctx, st, compose.WithCallbacks(e.handler))
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.FinalResponse) == "" {
		return nil, ErrNoFinalResponse
	}
	return out, nil
}

// Diagram returns the static mermaid source, with emergency styling when the
// run escalated and the table has an emergency node to style.
func (e *Engine) Diagram(emergency bool) string {
	if _, ok := e.table.Transitions[nodes.NodeEmergencyAdvice]; emergency && ok {
		return e.diagram + EmergencyStyle
	}
	return e.diagram
}

// Table exposes the static transition table.
func (e *Engine) Table() *Table { return e.table }

var _ Runner = (*Engine)(nil)
