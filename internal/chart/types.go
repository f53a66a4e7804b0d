// Package chart defines the immutable state-node/transition tree the interpreter
// runs: the Chart Model (spec component C1). A Chart is built once by a parser
// collaborator (or, in this package, a Builder for tests and embedded charts) and
// is read-only for the lifetime of every Machine created from it.
package chart

// Kind is the sum type over state-node kinds.
type Kind string

const (
	Atomic   Kind = "atomic"
	Compound Kind = "compound"
	Parallel Kind = "parallel"
	Final    Kind = "final"
	History  Kind = "history"
)

// HistoryKind distinguishes shallow vs deep history nodes. Meaningless unless
// Node.Kind == History.
type HistoryKind string

const (
	Shallow HistoryKind = "shallow"
	Deep    HistoryKind = "deep"
)

// ActionRef and GuardRef are opaque references resolved by the caller's
// ActionRunner/GuardEvaluator (spec §9, "Dynamic action/guard registries"). They
// may be a string name or a function value; the Chart Model never interprets them.
type ActionRef any
type GuardRef any

// TransitionKind distinguishes external transitions (exit/re-enter the scope)
// from internal ones (actions only, no exit/entry).
type TransitionKind string

const (
	External TransitionKind = "external"
	Internal TransitionKind = "internal"
)

// EventlessName is the sentinel event name matched only by the eventless pass
// (spec §4.6.3). `always` transitions desugar to this name at build time (spec §9,
// Open Question: the empty string and `always` are treated as fully equivalent).
const EventlessName = ""

// Transition is an immutable outgoing edge of a Node.
type Transition struct {
	// Event is the literal event name this transition matches: a user event name,
	// EventlessName, or a synthetic "after:<delay>#<id>"/"done.invoke.<id>"/"error.platform.<id>".
	Event string

	// Targets holds zero (internal/targetless), one, or many resolved absolute
	// node paths (spec §4.4.6, multi-target transitions).
	Targets []string

	Guard   GuardRef
	Actions []ActionRef
	Kind    TransitionKind

	// SourcePath is the path of the Node this transition is declared on. Set by
	// the Builder/resolver so the resolver can report candidates without walking
	// back up a pointer graph.
	SourcePath string

	// DeclIndex numbers the node's transitions in the order Build resolved them.
	// Transitions of one event keep their declaration order; different events
	// are numbered in map iteration order. The resolver does not read it: it
	// relies on the order of Node.Transitions.
	DeclIndex int
}

// AfterSpec is a delayed transition declared in a state's `after` map.
type AfterSpec struct {
	// Delay is either a literal integer-milliseconds string or a name resolved by
	// a delay-registry collaborator (spec §4.7).
	Delay      string
	Transition *Transition
	// ID is a stable per-node, per-declaration identifier used to name the
	// synthetic "after:<delay>#<id>" event (spec §3, Timer Handle).
	ID string
}

// Invocation is an invoked service descriptor (spec §4.8).
type Invocation struct {
	ID      string
	Src     string
	OnDone  *Transition
	OnError *Transition
}

// Node is one immutable state node in the Chart Model (spec §3, "State Node").
type Node struct {
	Path        string
	ID          string
	Kind        Kind
	HistoryKind HistoryKind

	Initial string // initial child ID, compound states only

	Parent   *Node
	Children []*Node // ordered (document order)

	Entry []ActionRef
	Exit  []ActionRef

	Transitions []*Transition
	After       []*AfterSpec
	Invocations []*Invocation

	// OnError is the onError handler list attached directly to this node (spec §3,
	// "optional onError handler list"); consulted by the error taxonomy (spec §7)
	// when an action belonging to this node (or a descendant, via upward
	// propagation) fails. Guard errors are only logged, and service failures
	// arrive as "error.platform.<id>" events for the invocation's own OnError.
	OnError []*Transition
}

// Chart is the fully resolved, read-only whole a Machine is built from.
type Chart struct {
	Root *Node

	// Order lists every node in document order; used for deterministic tie-breaks
	// (spec §4.1b).
	Order []*Node

	// ByPath resolves an absolute dotted path to its Node (spec §4.1c).
	ByPath map[string]*Node

	// InitialContext is the snapshot captured at chart-build time and reapplied on
	// RESET (spec §3, "Context Store... initial snapshot").
	InitialContext map[string]any

	// IsolationTag is an opaque identifier external collaborators may use to mint
	// unique wire identifiers (spec §4.1d); it carries no interpreter semantics.
	IsolationTag string
}

// FindState resolves an absolute dotted path to its Node.
func (c *Chart) FindState(path string) (*Node, bool) {
	n, ok := c.ByPath[path]
	return n, ok
}

// IsAtomicOrFinal reports whether a node kind can be a configuration leaf.
func (k Kind) IsAtomicOrFinal() bool {
	return k == Atomic || k == Final
}

// Ancestors returns the node's ancestor chain from root to n inclusive.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// IsDescendantOf reports whether n is a (possibly indirect) descendant of anc.
func (n *Node) IsDescendantOf(anc *Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur == anc {
			return true
		}
	}
	return false
}
