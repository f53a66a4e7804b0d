package runtime

import (
	"testing"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/event"
	"github.com/harelstate/statecraft/internal/statectx"
)

func buildResolverChart(t *testing.T, build func(root *chart.NodeSpec)) *chart.Chart {
	t.Helper()
	root := chart.NewRoot("m").WithInitial("on")
	build(root)
	c, err := chart.Build(root, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func TestResolveDeepestSourceWins(t *testing.T) {
	c := buildResolverChart(t, func(root *chart.NodeSpec) {
		on := root.State("on", chart.Compound).WithInitial("a")
		on.On("GO", chart.TransitionSpec{Target: "elsewhere"})
		on.State("a").On("GO", chart.TransitionSpec{Internal: true})
		root.State("elsewhere")
	})
	cfg := NewConfiguration(c)
	cfg.Enter("m")
	cfg.Enter("m.on")
	cfg.Enter("m.on.a")

	r := NewResolver(c)
	selected, errs := r.Resolve(cfg, statectx.New(), nil, "GO", event.Event{Name: "GO"})
	if len(errs) != 0 {
		t.Fatalf("unexpected guard errors: %v", errs)
	}
	if len(selected) != 1 || selected[0].Node.Path != "m.on.a" {
		t.Fatalf("expected m.on.a (deepest) to win, got %+v", selected)
	}
}

func TestResolveExternalSelfLoopBumpsScope(t *testing.T) {
	c := buildResolverChart(t, func(root *chart.NodeSpec) {
		on := root.State("on", chart.Compound).WithInitial("a")
		on.State("a").On("RETRY", chart.TransitionSpec{Target: "a"})
	})
	cfg := NewConfiguration(c)
	cfg.Enter("m")
	cfg.Enter("m.on")
	cfg.Enter("m.on.a")

	r := NewResolver(c)
	selected, _ := r.Resolve(cfg, statectx.New(), nil, "RETRY", event.Event{Name: "RETRY"})
	if len(selected) != 1 {
		t.Fatalf("expected one selected transition, got %d", len(selected))
	}
	if selected[0].Scope == nil || selected[0].Scope.Path != "m.on" {
		t.Fatalf("expected self-loop scope bumped to parent m.on, got %+v", selected[0].Scope)
	}
}

func TestResolveParallelRegionConflictDocumentOrderWins(t *testing.T) {
	c := buildResolverChart(t, func(root *chart.NodeSpec) {
		regions := root.State("on", chart.Parallel)
		left := regions.State("left", chart.Compound).WithInitial("l1")
		left.State("l1").On("SHARED", chart.TransitionSpec{Target: "#m.on"})
		right := regions.State("right", chart.Compound).WithInitial("r1")
		right.State("r1").On("SHARED", chart.TransitionSpec{Target: "r2"})
		right.State("r2")
	})
	cfg := NewConfiguration(c)
	cfg.Enter("m")
	cfg.Enter("m.on")
	cfg.Enter("m.on.left")
	cfg.Enter("m.on.left.l1")
	cfg.Enter("m.on.right")
	cfg.Enter("m.on.right.r1")

	r := NewResolver(c)
	selected, _ := r.Resolve(cfg, statectx.New(), nil, "SHARED", event.Event{Name: "SHARED"})
	if len(selected) != 1 || selected[0].Node.Path != "m.on.left.l1" {
		t.Fatalf("expected document-order-earlier left region transition to win, got %+v", selected)
	}
}
