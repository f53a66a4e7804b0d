package runtime

import (
	"sort"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/event"
	"github.com/harelstate/statecraft/internal/statectx"
)

// Resolved is one selected (source, transition) pair for the current
// microstep, with its exit/entry scope already computed.
type Resolved struct {
	Node        *chart.Node
	Transition  *chart.Transition
	Scope       *chart.Node // nil only for Internal transitions (no exit/entry)
	TargetNodes []*chart.Node
}

// Resolver is the Transition Resolver (spec component C4). Grounded on teacher
// `statechart.go`'s `findEnabledTransition`/`activeStatesOrdered` (deepest-first
// scan) and `internal/core/interpreter.go`'s LCCA/priority-sort candidate
// pattern, generalized from "exactly one active leaf" to full parallel-region
// independence (spec §4.4.4) and multi-target transitions (spec §4.4.6), which
// the teacher explicitly does not support.
type Resolver struct {
	chart      *chart.Chart
	orderIndex map[string]int
}

// NewResolver builds a Resolver over c, precomputing the document-order index
// used for deterministic tie-breaks.
func NewResolver(c *chart.Chart) *Resolver {
	idx := make(map[string]int, len(c.Order))
	for i, n := range c.Order {
		idx[n.Path] = i
	}
	return &Resolver{chart: c, orderIndex: idx}
}

// Resolve selects the ordered set of transitions to fire for evName against
// cfg (spec §4.4, steps 1-6). Guard errors are collected but never abort
// resolution — a throwing guard is treated as guard=false (spec §7).
func (r *Resolver) Resolve(cfg *Configuration, store *statectx.Store, guardEval GuardEvaluator, evName string, ev event.Event) ([]Resolved, []error) {
	var matched []Resolved
	var guardErrs []error

	for _, n := range r.chart.Order {
		if !cfg.IsActive(n.Path) {
			continue
		}
		candidates := n.Transitions
		if ev.Synthetic && ev.SourcePath == n.Path {
			candidates = append([]*chart.Transition(nil), n.Transitions...)
			for _, a := range n.After {
				candidates = append(candidates, a.Transition)
			}
			for _, inv := range n.Invocations {
				if inv.OnDone != nil {
					candidates = append(candidates, inv.OnDone)
				}
				if inv.OnError != nil {
					candidates = append(candidates, inv.OnError)
				}
			}
		}
		for _, t := range candidates {
			if t.Event != evName {
				continue
			}
			ok, err := r.evalGuard(guardEval, store, t, ev)
			if err != nil {
				guardErrs = append(guardErrs, &GuardError{NodePath: n.Path, Event: evName, Err: err})
				continue
			}
			if !ok {
				continue
			}
			matched = append(matched, r.buildResolved(n, t))
			break // first enabled transition on this node wins (spec §4.4.2)
		}
	}

	selected := r.resolveLineageConflicts(matched)
	selected = r.resolveRegionConflicts(selected)
	return selected, guardErrs
}

// buildResolved resolves a transition's targets and exit/entry scope. Shared
// by Resolve (the normal per-event scan) and the Engine's onError dispatch,
// which builds a Resolved for a handler found outside the normal scan.
func (r *Resolver) buildResolved(n *chart.Node, t *chart.Transition) Resolved {
	resolved := Resolved{Node: n, Transition: t}
	if t.Kind != chart.External {
		return resolved
	}
	targets := make([]*chart.Node, 0, len(t.Targets))
	for _, tp := range t.Targets {
		if tn, ok := r.chart.FindState(tp); ok {
			targets = append(targets, tn)
		}
	}
	resolved.TargetNodes = targets
	scope := chart.LeastCommonCompoundAncestor(n, targets)
	// A genuine external self-loop (the source is itself one of the targets)
	// must still exit and re-enter the source, so the scope is bumped one
	// level up (spec §4.4.6, "scope... defines its exit boundary"). Without
	// this, LCCA(n, [n]) == n would make the source its own exit boundary and
	// the self-loop would be a no-op.
	if scope == n && n.Parent != nil && containsNode(targets, n) {
		scope = n.Parent
	}
	resolved.Scope = scope
	return resolved
}

func (r *Resolver) evalGuard(guardEval GuardEvaluator, store *statectx.Store, t *chart.Transition, ev event.Event) (bool, error) {
	if t.Guard == nil {
		return true, nil
	}
	if guardEval == nil {
		return false, nil
	}
	return guardEval.Eval(store, t.Guard, ev)
}

// resolveLineageConflicts applies "deepest source wins" (spec §4.4.3): when an
// active node and one of its active ancestors both have an enabled transition
// for the same event, only the deepest one fires.
func (r *Resolver) resolveLineageConflicts(matched []Resolved) []Resolved {
	sorted := make([]Resolved, len(matched))
	copy(sorted, matched)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := len(sorted[i].Node.Ancestors()), len(sorted[j].Node.Ancestors())
		if di != dj {
			return di > dj
		}
		return r.orderIndex[sorted[i].Node.Path] < r.orderIndex[sorted[j].Node.Path]
	})

	claimed := make(map[string]bool)
	var out []Resolved
	for _, m := range sorted {
		if claimed[m.Node.Path] {
			continue
		}
		out = append(out, m)
		for _, anc := range m.Node.Ancestors() {
			claimed[anc.Path] = true
		}
	}
	return out
}

// resolveRegionConflicts applies independence/conflict resolution across
// parallel regions (spec §4.4.4): transitions whose exit reach overlaps
// conflict, and the document-order earlier one wins.
func (r *Resolver) resolveRegionConflicts(selected []Resolved) []Resolved {
	ordered := make([]Resolved, len(selected))
	copy(ordered, selected)
	sort.SliceStable(ordered, func(i, j int) bool {
		return r.orderIndex[ordered[i].Node.Path] < r.orderIndex[ordered[j].Node.Path]
	})

	var kept []Resolved
	for _, cand := range ordered {
		conflict := false
		for _, k := range kept {
			if conflicts(cand, k) {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, cand)
		}
	}
	return kept
}

func containsNode(nodes []*chart.Node, target *chart.Node) bool {
	for _, n := range nodes {
		if n == target {
			return true
		}
	}
	return false
}

func conflicts(a, b Resolved) bool {
	if a.Scope != nil && (b.Node == a.Scope || b.Node.IsDescendantOf(a.Scope)) {
		return true
	}
	if b.Scope != nil && (a.Node == b.Scope || a.Node.IsDescendantOf(b.Scope)) {
		return true
	}
	return false
}
