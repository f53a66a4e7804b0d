package production

import (
	"strings"
	"testing"

	"github.com/harelstate/statecraft/internal/chart"
)

func buildSimpleChart(t *testing.T) *chart.Chart {
	t.Helper()
	root := chart.NewRoot("simple").WithInitial("s1")
	root.State("s1").On("e1", chart.TransitionSpec{Target: "s2"})
	root.State("s2")
	c, err := chart.Build(root, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return c
}

func buildHierarchicalChart(t *testing.T) *chart.Chart {
	t.Helper()
	root := chart.NewRoot("hierarchical").WithInitial("parent")
	parent := root.State("parent", chart.Compound).WithInitial("child1")
	parent.State("child1")
	parent.State("child2")
	c, err := chart.Build(root, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return c
}

func TestDefaultVisualizer_ExportDOT_Simple(t *testing.T) {
	v := NewDefaultVisualizer(buildSimpleChart(t))
	dot := v.ExportDOT([]string{"simple.s2"})

	if !strings.Contains(dot, "digraph Statechart {") {
		t.Error("missing DOT header")
	}
	if !strings.Contains(dot, `"simple.s1"`) || !strings.Contains(dot, `"simple.s2"`) {
		t.Error("missing state nodes")
	}
	if !strings.Contains(dot, `"simple.s1" -> "simple.s2" [label="e1"]`) {
		t.Error("missing transition edge")
	}
	if !strings.Contains(dot, "fillcolor=lightgreen") {
		t.Error("missing active state highlight")
	}
}

func TestDefaultVisualizer_ExportDOT_Hierarchy(t *testing.T) {
	v := NewDefaultVisualizer(buildHierarchicalChart(t))
	// A full active configuration includes every active ancestor, not just the
	// leaf (spec §3, Configuration.ActiveFull).
	dot := v.ExportDOT([]string{"hierarchical", "hierarchical.parent", "hierarchical.parent.child1"})

	if !strings.Contains(dot, "subgraph cluster_hierarchical_parent {") {
		t.Error("missing compound cluster")
	}
	if !strings.Contains(dot, "fillcolor=orange") {
		t.Error("missing parent active highlight")
	}
}

func TestDefaultVisualizer_ExportJSON(t *testing.T) {
	v := NewDefaultVisualizer(buildSimpleChart(t))
	data, err := v.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if !strings.Contains(string(data), `"id": "simple"`) {
		t.Error("JSON missing expected field")
	}
}
