package statecraft

import (
	"testing"

	"github.com/harelstate/statecraft/internal/chart"
)

func TestNewBuilderProducesCompoundRoot(t *testing.T) {
	b := NewBuilder("root")
	if b.Kind != Compound {
		t.Fatalf("NewRoot kind = %v, want Compound", b.Kind)
	}
}

func TestToSugarUnconditionalTransition(t *testing.T) {
	b := NewBuilder("m").WithInitial("a")
	b.State("a").On("GO", To("b"))
	b.State("b")

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n, ok := c.ByPath["m.a"]
	if !ok || len(n.Transitions) != 1 || n.Transitions[0].Guard != nil {
		t.Fatalf("expected unconditional transition on m.a, got %+v", n)
	}
}

func TestToGuardedSugarAttachesGuard(t *testing.T) {
	b := NewBuilder("m").WithInitial("a")
	b.State("a").On("GO", ToGuarded("b", "count > 0"))
	b.State("b")

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := c.ByPath["m.a"]
	if len(n.Transitions) != 1 || n.Transitions[0].Guard != "count > 0" {
		t.Fatalf("expected guard attached, got %+v", n.Transitions)
	}
}

func TestRunActionsSugarIsInternal(t *testing.T) {
	b := NewBuilder("m").WithInitial("a")
	b.State("a").On("PING", RunActions("log"))

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := c.ByPath["m.a"]
	if len(n.Transitions) != 1 || len(n.Transitions[0].Targets) != 0 {
		t.Fatalf("expected targetless internal transition, got %+v", n.Transitions)
	}
}
