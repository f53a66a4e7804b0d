package chart

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeSpec is the mutable, fluent authoring form of a Node, consumed by Build to
// produce an immutable Chart. It generalizes teacher `internal/primitives.StateConfig`'s
// fluent methods (`State`, `WithInitial`, `AddTransition`, `AddEntry`/`AddExit`) to
// parallel regions, history, `after`, `invoke`, and `onError` (spec §6).
type NodeSpec struct {
	ID          string
	Kind        Kind
	HistoryKind HistoryKind
	Initial     string
	Children    []*NodeSpec
	Entry       []ActionRef
	Exit        []ActionRef
	On          map[string][]TransitionSpec
	After       []AfterSpecInput
	Invoke      []InvocationSpec
	OnError     []TransitionSpec
}

// TransitionSpec is the authoring form of a Transition.
type TransitionSpec struct {
	// Target is raw path syntax (spec §6); "" or "." means internal/targetless.
	// Multiple simultaneous targets (spec §4.4.6) are given as Targets instead.
	Target   string
	Targets  []string
	Guard    GuardRef
	Actions  []ActionRef
	Internal bool
}

// AfterSpecInput is the authoring form of a delayed transition.
type AfterSpecInput struct {
	Delay      string
	ID         string
	Transition TransitionSpec
}

// InvocationSpec is the authoring form of an invoked service descriptor.
type InvocationSpec struct {
	ID      string
	Src     string
	OnDone  *TransitionSpec
	OnError *TransitionSpec
}

// NewRoot creates a root NodeSpec (Compound by default — override Kind directly
// for a parallel root).
func NewRoot(id string) *NodeSpec {
	return &NodeSpec{ID: id, Kind: Compound}
}

// State adds and returns a child NodeSpec (Atomic unless kind is given).
func (s *NodeSpec) State(id string, kind ...Kind) *NodeSpec {
	k := Atomic
	if len(kind) > 0 {
		k = kind[0]
	}
	child := &NodeSpec{ID: id, Kind: k}
	s.Children = append(s.Children, child)
	return child
}

func (s *NodeSpec) WithInitial(id string) *NodeSpec {
	s.Initial = id
	return s
}

func (s *NodeSpec) WithHistoryKind(hk HistoryKind) *NodeSpec {
	s.HistoryKind = hk
	return s
}

func (s *NodeSpec) AddEntry(a ActionRef) *NodeSpec {
	s.Entry = append(s.Entry, a)
	return s
}

func (s *NodeSpec) AddExit(a ActionRef) *NodeSpec {
	s.Exit = append(s.Exit, a)
	return s
}

// On registers one or more ordered transitions (first enabled wins, spec §4.4.2)
// for an event. Call with EventlessName for `always`.
func (s *NodeSpec) On(event string, ts ...TransitionSpec) *NodeSpec {
	if s.On == nil {
		s.On = make(map[string][]TransitionSpec)
	}
	s.On[event] = append(s.On[event], ts...)
	return s
}

// Always is sugar for On(EventlessName, ts...).
func (s *NodeSpec) Always(ts ...TransitionSpec) *NodeSpec {
	return s.On(EventlessName, ts...)
}

func (s *NodeSpec) AddAfter(a AfterSpecInput) *NodeSpec {
	s.After = append(s.After, a)
	return s
}

func (s *NodeSpec) AddInvoke(inv InvocationSpec) *NodeSpec {
	s.Invoke = append(s.Invoke, inv)
	return s
}

func (s *NodeSpec) AddOnError(ts TransitionSpec) *NodeSpec {
	s.OnError = append(s.OnError, ts)
	return s
}

// Build walks a NodeSpec tree into an immutable, validated Chart.
func Build(root *NodeSpec, initialContext map[string]any) (*Chart, error) {
	c := &Chart{
		ByPath:         make(map[string]*Node),
		InitialContext: copyContext(initialContext),
		IsolationTag:   uuid.NewString(),
	}

	rootNode, err := buildSkeleton(root, "", nil, c)
	if err != nil {
		return nil, err
	}
	c.Root = rootNode

	for _, n := range c.Order {
		spec := specByPath(root, n.Path)
		if spec == nil {
			continue
		}
		if err := resolveNode(c, n, spec); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func copyContext(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// buildSkeleton performs the first pass: Path/Parent/Children/Order/ByPath,
// leaving transitions unresolved (they require ByPath to already be populated).
func buildSkeleton(spec *NodeSpec, prefix string, parent *Node, c *Chart) (*Node, error) {
	path := spec.ID
	if prefix != "" {
		path = prefix + "." + spec.ID
	}
	if _, exists := c.ByPath[path]; exists {
		return nil, fmt.Errorf("%w: duplicate state path %q", ErrResolution, path)
	}
	n := &Node{
		Path:        path,
		ID:          spec.ID,
		Kind:        spec.Kind,
		HistoryKind: spec.HistoryKind,
		Initial:     spec.Initial,
		Parent:      parent,
		Entry:       spec.Entry,
		Exit:        spec.Exit,
	}
	c.ByPath[path] = n
	c.Order = append(c.Order, n)

	for _, childSpec := range spec.Children {
		child, err := buildSkeleton(childSpec, path, n, c)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// specByPath re-walks the authoring tree to find the NodeSpec for a resolved
// path. The tree is small and this runs once at build time, so a linear walk is
// simpler than threading a parallel map through buildSkeleton.
func specByPath(spec *NodeSpec, path string) *NodeSpec {
	return specByPathPrefixed(spec, "", path)
}

func specByPathPrefixed(spec *NodeSpec, prefix, target string) *NodeSpec {
	path := spec.ID
	if prefix != "" {
		path = prefix + "." + spec.ID
	}
	if path == target {
		return spec
	}
	for _, child := range spec.Children {
		if found := specByPathPrefixed(child, path, target); found != nil {
			return found
		}
	}
	return nil
}

func resolveNode(c *Chart, n *Node, spec *NodeSpec) error {
	declIndex := 0
	for event, specs := range spec.On {
		for _, ts := range specs {
			t, err := resolveTransition(c, n, event, ts, &declIndex)
			if err != nil {
				return err
			}
			n.Transitions = append(n.Transitions, t)
		}
	}

	for i, a := range spec.After {
		id := a.ID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		eventName := "after:" + a.Delay + "#" + id
		t, err := resolveTransition(c, n, eventName, a.Transition, &declIndex)
		if err != nil {
			return err
		}
		n.After = append(n.After, &AfterSpec{Delay: a.Delay, Transition: t, ID: id})
	}

	for _, inv := range spec.Invoke {
		id := inv.ID
		if id == "" {
			id = uuid.NewString()
		}
		resolved := &Invocation{ID: id, Src: inv.Src}
		if inv.OnDone != nil {
			t, err := resolveTransition(c, n, "done.invoke."+id, *inv.OnDone, &declIndex)
			if err != nil {
				return err
			}
			resolved.OnDone = t
		}
		if inv.OnError != nil {
			t, err := resolveTransition(c, n, "error.platform."+id, *inv.OnError, &declIndex)
			if err != nil {
				return err
			}
			resolved.OnError = t
		}
		n.Invocations = append(n.Invocations, resolved)
	}

	for _, ts := range spec.OnError {
		t, err := resolveTransition(c, n, "onError", ts, &declIndex)
		if err != nil {
			return err
		}
		n.OnError = append(n.OnError, t)
	}
	return nil
}

func resolveTransition(c *Chart, n *Node, event string, ts TransitionSpec, declIndex *int) (*Transition, error) {
	t := &Transition{
		Event:      event,
		Guard:      ts.Guard,
		Actions:    ts.Actions,
		SourcePath: n.Path,
		DeclIndex:  *declIndex,
	}
	*declIndex++

	internal := ts.Internal || ts.Target == "."
	targetsRaw := ts.Targets
	if ts.Target != "" && ts.Target != "." {
		targetsRaw = append([]string{ts.Target}, targetsRaw...)
	}

	if ts.Target == "." {
		t.Targets = []string{n.Path}
	}
	for _, raw := range targetsRaw {
		resolved, err := ResolveTarget(c, n, raw)
		if err != nil {
			return nil, err
		}
		t.Targets = append(t.Targets, resolved)
	}

	if len(t.Targets) == 0 {
		internal = true
	}
	if internal {
		t.Kind = Internal
	} else {
		t.Kind = External
	}
	return t, nil
}
