package graph

import (
	"fmt"
	"strings"
)

const (
	mermaidStart = "__start__"
	mermaidEnd   = "__end__"

	// EmergencyStyle is appended to the diagram when a run escalated.
	EmergencyStyle = "\nclass emergency_advice activeEmergencyNode"
)

func mermaidID(node string) string {
	if node == End {
		return mermaidEnd
	}
	return node
}

// renderMermaid draws the static structure of t: every node once, every
// edge once, conditional edges dotted. The node set follows the registered
// skills, so emergency_advice only appears when health_analyst is present.
func renderMermaid(t *Table) string {
	var sb strings.Builder
	sb.WriteString("---\nconfig:\n  flowchart:\n    curve: linear\n---\ngraph TD;\n")

	fmt.Fprintf(&sb, "\t%s([<p>%s</p>]):::first\n", mermaidStart, mermaidStart)
	for _, n := range t.Nodes {
		fmt.Fprintf(&sb, "\t%s(%s)\n", n, n)
	}
	fmt.Fprintf(&sb, "\t%s([<p>%s</p>]):::last\n", mermaidEnd, mermaidEnd)

	fmt.Fprintf(&sb, "\t%s --> %s;\n", mermaidStart, t.Start)
	for _, n := range t.Nodes {
		tr := t.Transitions[n]
		arrow := "-->"
		if tr.Branching() {
			arrow = "-.->"
		}
		for _, target := range tr.Targets {
			fmt.Fprintf(&sb, "\t%s %s %s;\n", n, arrow, mermaidID(target))
		}
	}

	sb.WriteString("\tclassDef default fill:#f2f0ff,line-height:1.2\n")
	sb.WriteString("\tclassDef first fill-opacity:0\n")
	sb.WriteString("\tclassDef last fill:#bfb6fc\n")
	sb.WriteString("\tclassDef activeNode fill:#c8e6c9,stroke:#2e7d32\n")
	sb.WriteString("\tclassDef activeEmergencyNode fill:#ffcdd2,stroke:#c62828,stroke-width:2px")
	return sb.String()
}
