package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/harelstate/statecraft/internal/chart"
)

// DefaultVisualizer renders a chart to Graphviz DOT or a cycle-free JSON tree.
// Grounded on teacher production.DefaultVisualizer, generalized from
// primitives.MachineConfig's flat State map to the chart.Chart node tree
// (parent pointers make chart.Node itself unsafe to json.Marshal directly, so
// ExportJSON builds a separate serializable view).
type DefaultVisualizer struct {
	chart *chart.Chart
}

// NewDefaultVisualizer builds a visualizer over c.
func NewDefaultVisualizer(c *chart.Chart) *DefaultVisualizer {
	return &DefaultVisualizer{chart: c}
}

// ExportDOT generates Graphviz DOT source, highlighting nodes present in
// activePaths.
func (v *DefaultVisualizer) ExportDOT(activePaths []string) string {
	active := make(map[string]bool, len(activePaths))
	for _, p := range activePaths {
		active[p] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph Statechart {\n  rankdir=LR;\n  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n")
	v.renderNode(&buf, v.chart.Root, active)
	for _, n := range v.chart.Order {
		for _, t := range n.Transitions {
			for _, tgt := range t.Targets {
				label := t.Event
				if label == chart.EventlessName {
					label = "always"
				}
				fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", n.Path, tgt, label)
			}
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func (v *DefaultVisualizer) renderNode(buf *bytes.Buffer, n *chart.Node, active map[string]bool) {
	if len(n.Children) > 0 {
		fmt.Fprintf(buf, "  subgraph cluster_%s {\n    label=%q;\n", sanitizeID(n.Path), fmt.Sprintf("%s (%s)", n.ID, n.Kind))
		style := ""
		if active[n.Path] {
			style = " style=filled fillcolor=orange"
		}
		fmt.Fprintf(buf, "    %q [label=%q shape=ellipse%s];\n", n.Path, n.ID, style)
		for _, c := range n.Children {
			v.renderNode(buf, c, active)
		}
		buf.WriteString("  }\n")
		return
	}
	style := ""
	if active[n.Path] {
		style = " style=filled fillcolor=lightgreen"
	}
	fmt.Fprintf(buf, "  %q [label=%q%s];\n", n.Path, n.ID, style)
}

func sanitizeID(path string) string {
	out := []byte(path)
	for i, b := range out {
		if b == '.' {
			out[i] = '_'
		}
	}
	return string(out)
}

// jsonNode is the cycle-free serializable view of a chart.Node.
type jsonNode struct {
	Path     string      `json:"path"`
	ID       string      `json:"id"`
	Kind     chart.Kind  `json:"kind"`
	Initial  string      `json:"initial,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func toJSONNode(n *chart.Node) *jsonNode {
	jn := &jsonNode{Path: n.Path, ID: n.ID, Kind: n.Kind, Initial: n.Initial}
	for _, c := range n.Children {
		jn.Children = append(jn.Children, toJSONNode(c))
	}
	return jn
}

// ExportJSON serializes the chart's node tree to JSON.
func (v *DefaultVisualizer) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(toJSONNode(v.chart.Root), "", "  ")
}
