package graph

import (
	"github.com/cloudwego/eino/compose"

	"github.com/Chative-medical-agent/server/internal/agent/graph/nodes"
	"github.com/Chative-medical-agent/server/internal/agent/model"
	"github.com/Chative-medical-agent/server/internal/agent/signals"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// End is the terminal pseudo-node.
const End = compose.END

// Transition is one row of the state machine: after From completes, Next
// picks one of Targets. Rows with a single target have a nil Next.
type Transition struct {
	From    string
	Targets []string
	Next    func(s *model.WorkflowState) string
}

// Branching reports whether the row is conditional.
func (t Transition) Branching() bool { return t.Next != nil }

// Resolve returns the successor of From for state s.
func (t Transition) Resolve(s *model.WorkflowState) string {
	if t.Next == nil {
		return t.Targets[0]
	}
	return t.Next(s)
}

// Table is the complete static workflow: its nodes in declaration order and
// one transition per node.
type Table struct {
	Start       string
	Nodes       []string
	Skills      []string
	Transitions map[string]Transition
}

var fixedNodes = map[string]bool{
	nodes.NodeRouter:           true,
	nodes.NodeEmergencyAdvice:  true,
	nodes.NodeVisualizer:       true,
	nodes.NodeGeneralAssistant: true,
	compose.START:              true,
	compose.END:                true,
}

// NewTable derives the transition table from the registered skill ids.
// emergency_advice only exists when health_analyst is registered.
func NewTable(skillIDs []string) *Table {
	t := &Table{Start: nodes.NodeRouter, Transitions: map[string]Transition{}}

	skillSet := make(map[string]bool, len(skillIDs))
	for _, id := range skillIDs {
		if fixedNodes[id] || skillSet[id] {
			logx.Warn().Str("skill_id", id).Msg("Skill id collides with a workflow node, skipped")
			continue
		}
		skillSet[id] = true
		t.Skills = append(t.Skills, id)
	}

	routerTargets := append(append([]string{}, t.Skills...), nodes.NodeVisualizer, nodes.NodeGeneralAssistant)
	t.add(Transition{
		From:    nodes.NodeRouter,
		Targets: routerTargets,
		Next: func(s *model.WorkflowState) string {
			switch {
			case s.Intent == model.IntentVisualizer:
				return nodes.NodeVisualizer
			case skillSet[s.Intent]:
				return s.Intent
			default:
				return nodes.NodeGeneralAssistant
			}
		},
	})

	for _, id := range t.Skills {
		if id == nodes.NodeHealthAnalyst {
			t.add(Transition{
				From:    id,
				Targets: []string{nodes.NodeEmergencyAdvice, nodes.NodeVisualizer, End},
				Next: func(s *model.WorkflowState) string {
					switch {
					case s.IsEmergency:
						return nodes.NodeEmergencyAdvice
					case signals.WantsVisualization(s.InputMessage):
						return nodes.NodeVisualizer
					default:
						return End
					}
				},
			})
			continue
		}
		t.add(Transition{From: id, Targets: []string{End}})
	}

	if skillSet[nodes.NodeHealthAnalyst] {
		t.add(Transition{From: nodes.NodeEmergencyAdvice, Targets: []string{End}})
	}
	t.add(Transition{From: nodes.NodeVisualizer, Targets: []string{End}})
	t.add(Transition{From: nodes.NodeGeneralAssistant, Targets: []string{End}})
	return t
}

func (t *Table) add(tr Transition) {
	t.Nodes = append(t.Nodes, tr.From)
	t.Transitions[tr.From] = tr
}

// Next evaluates the transition leaving from for state s.
func (t *Table) Next(from string, s *model.WorkflowState) (string, bool) {
	tr, ok := t.Transitions[from]
	if !ok {
		return "", false
	}
	return tr.Resolve(s), true
}
