package statecraft

import "github.com/harelstate/statecraft/internal/chart"

// Builder is the fluent authoring form of a state node, re-exporting
// internal/chart.NodeSpec so callers never need to import an internal
// package to construct a Chart.
type Builder = chart.NodeSpec

// Transition is the authoring form of an outgoing edge.
type Transition = chart.TransitionSpec

// After is the authoring form of a delayed transition.
type After = chart.AfterSpecInput

// Invocation is the authoring form of an invoked service descriptor.
type Invocation = chart.InvocationSpec

// Kind re-exports the state-node kind enum.
type Kind = chart.Kind

const (
	Atomic   = chart.Atomic
	Compound = chart.Compound
	Parallel = chart.Parallel
	Final    = chart.Final
	History  = chart.History
)

// HistoryKind re-exports the shallow/deep history distinction.
type HistoryKind = chart.HistoryKind

const (
	Shallow = chart.Shallow
	Deep    = chart.Deep
)

// NewBuilder creates a root Builder (a Compound node unless reassigned).
func NewBuilder(id string) *Builder {
	return chart.NewRoot(id)
}

// To is sugar for an unconditional external transition to target.
func To(target string) Transition {
	return Transition{Target: target}
}

// ToGuarded is sugar for a guarded external transition to target.
func ToGuarded(target string, guard chart.GuardRef) Transition {
	return Transition{Target: target, Guard: guard}
}

// ToWithActions is sugar for an external transition to target running actions.
func ToWithActions(target string, actions ...chart.ActionRef) Transition {
	return Transition{Target: target, Actions: actions}
}

// RunActions is sugar for an internal (targetless) transition that only runs
// actions, never exiting or re-entering the source.
func RunActions(actions ...chart.ActionRef) Transition {
	return Transition{Internal: true, Actions: actions}
}
