package runtime

import (
	"context"
	"strconv"
	"time"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/event"
	"github.com/harelstate/statecraft/internal/statectx"
	"go.uber.org/zap"
)

// defaultDelayResolve handles the literal-integer-milliseconds form of an
// `after` duration spec when no DelayResolver collaborator is configured, or
// the collaborator doesn't recognize the name (spec §4.7).
func defaultDelayResolve(spec string) (time.Duration, bool) {
	ms, err := strconv.Atoi(spec)
	if err != nil {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// TransitionRecord is what Executor reports back per fired transition, for
// subscriber notification (spec §4.9, subscribe_transitions).
type TransitionRecord struct {
	FromPath string
	ToPath   string
	Event    string
}

// Executor is the Microstep Executor (spec component C5). Grounded on teacher
// `internal/core/machine.go`'s `processEvent` four-phase lock discipline
// (candidate search / select / compute paths / exclusive update) and
// `historymanager.go`, generalized to multiple simultaneous transitions
// (parallel regions), multi-target entry, and real history-aware descent.
type Executor struct {
	chart         *chart.Chart
	store         *statectx.Store
	history       *History
	actionRunner  ActionRunner
	delayResolver DelayResolver
	timers        TimerArmer
	services      ServiceSpawner
	logger        *zap.Logger
}

// NewExecutor builds an Executor over a fixed chart and its mutable
// collaborators (store, history, action runner, timers, services).
func NewExecutor(c *chart.Chart, store *statectx.Store, history *History, actionRunner ActionRunner, delayResolver DelayResolver, timers TimerArmer, services ServiceSpawner, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		chart:         c,
		store:         store,
		history:       history,
		actionRunner:  actionRunner,
		delayResolver: delayResolver,
		timers:        timers,
		services:      services,
		logger:        logger,
	}
}

// EnterInitial activates the chart's initial configuration from the root
// down, running entry actions outermost-first and arming any timers/services
// declared on the entered states (spec §4.9, start()).
func (ex *Executor) EnterInitial(ctx context.Context, cfg *Configuration, deliver func(event.Event)) []ActionFailure {
	path := ex.descend(ex.chart.Root, nil)
	entry := append([]*chart.Node{ex.chart.Root}, path...)
	return ex.enterNodes(ctx, cfg, entry, event.Event{}, deliver)
}

// ExitAll runs exit actions for every currently active node, innermost-first,
// cancelling each node's timers/services first and marking it inactive as it
// goes (spec §4.9, stop()). The symmetric counterpart of EnterInitial.
func (ex *Executor) ExitAll(ctx context.Context, cfg *Configuration) []ActionFailure {
	var failures []ActionFailure
	active := cfg.ActiveFull()
	for i := len(active) - 1; i >= 0; i-- {
		n := active[i]
		ex.timers.CancelNode(n.Path)
		ex.services.CancelNode(n.Path)
		if err := ex.runActions(ctx, n.Exit, event.Event{}); err != nil {
			failures = append(failures, ActionFailure{NodePath: n.Path, Err: err})
		}
		cfg.Exit(n.Path)
	}
	return failures
}

// ActionFailure records an action/entry/exit callback that returned an error,
// for the Engine to route to onError handling (spec §7, ActionError).
type ActionFailure struct {
	NodePath string
	Err      error
}

// Apply executes one microstep for the given selected transition set,
// returning the fired TransitionRecords (in execution order) and any action
// failures encountered (spec §4.5).
func (ex *Executor) Apply(ctx context.Context, cfg *Configuration, selected []Resolved, evName string, ev event.Event, deliver func(event.Event)) ([]TransitionRecord, []ActionFailure) {
	var failures []ActionFailure
	var records []TransitionRecord

	external := make([]Resolved, 0, len(selected))
	for _, r := range selected {
		if r.Transition.Kind == chart.External {
			external = append(external, r)
		}
	}

	// Record history for every exiting compound/parallel ancestor before any
	// exits are applied (spec §4.5 step 2): the pre-exit active set must still
	// be intact to know what to remember.
	exitLists := make([][]*chart.Node, len(external))
	for i, r := range external {
		exitLists[i] = ex.exitSet(cfg, r.Scope)
		ex.recordHistory(cfg, exitLists[i])
	}

	// Phase: cancel timers/services, run exit actions, mark inactive —
	// innermost-first, per transition, in transition-selection order.
	for _, nodes := range exitLists {
		for _, n := range nodes {
			ex.timers.CancelNode(n.Path)
			ex.services.CancelNode(n.Path)
			if err := ex.runActions(ctx, n.Exit, ev); err != nil {
				failures = append(failures, ActionFailure{NodePath: n.Path, Err: err})
			}
			cfg.Exit(n.Path)
		}
	}

	// Phase: transition actions, in selection order (selected already carries
	// internal transitions too — they only ever run this phase).
	for _, r := range selected {
		if err := ex.runActions(ctx, r.Transition.Actions, ev); err != nil {
			failures = append(failures, ActionFailure{NodePath: r.Node.Path, Err: err})
		}
	}

	// Phase: entry, outermost-first, per transition, in selection order.
	for _, r := range external {
		entryNodes := ex.entrySet(cfg, r.Scope, r.TargetNodes, r.Transition)
		fails := ex.enterNodes(ctx, cfg, entryNodes, ev, deliver)
		failures = append(failures, fails...)
	}

	for _, r := range selected {
		to := ""
		if len(r.Transition.Targets) > 0 {
			to = r.Transition.Targets[0]
		}
		records = append(records, TransitionRecord{FromPath: r.Node.Path, ToPath: to, Event: evName})
	}

	return records, failures
}

func (ex *Executor) runActions(ctx context.Context, actions []chart.ActionRef, ev event.Event) error {
	for _, a := range actions {
		if ex.actionRunner == nil {
			continue
		}
		if err := ex.actionRunner.Run(ctx, ex.store, a, ev); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) enterNodes(ctx context.Context, cfg *Configuration, nodes []*chart.Node, ev event.Event, deliver func(event.Event)) []ActionFailure {
	var failures []ActionFailure
	for _, n := range nodes {
		generation := cfg.Enter(n.Path)
		if err := ex.runActions(ctx, n.Entry, ev); err != nil {
			failures = append(failures, ActionFailure{NodePath: n.Path, Err: err})
		}
		for _, a := range n.After {
			ex.armAfter(n, a, generation, deliver)
		}
		for _, inv := range n.Invocations {
			ex.services.Start(context.Background(), n.Path, generation, inv.ID, inv.Src, deliver)
		}
	}
	return failures
}

func (ex *Executor) armAfter(n *chart.Node, a *chart.AfterSpec, generation uint64, deliver func(event.Event)) {
	delay, ok := ex.resolveDelay(a.Delay)
	if !ok {
		ex.logger.Warn("unresolvable delay", zap.String("node", n.Path), zap.String("delay", a.Delay))
		return
	}
	ex.timers.Arm(n.Path, generation, a.Transition.Event, delay, deliver)
}

func (ex *Executor) resolveDelay(spec string) (time.Duration, bool) {
	if ex.delayResolver != nil {
		if d, ok := ex.delayResolver.Resolve(spec); ok {
			return d, true
		}
	}
	return defaultDelayResolve(spec)
}

// exitSet returns the currently active strict descendants of scope,
// innermost-first in document order (spec §4.5 step 1).
func (ex *Executor) exitSet(cfg *Configuration, scope *chart.Node) []*chart.Node {
	var out []*chart.Node
	for _, n := range ex.chart.Order {
		if n != scope && cfg.IsActive(n.Path) && n.IsDescendantOf(scope) {
			out = append(out, n)
		}
	}
	reverseNodes(out)
	return out
}

// recordHistory saves, for every history child of every exiting compound or
// parallel node, the active leaf set being lost (spec §4.5 step 2).
func (ex *Executor) recordHistory(cfg *Configuration, exiting []*chart.Node) {
	for _, n := range exiting {
		if n.Kind != chart.Compound && n.Kind != chart.Parallel {
			continue
		}
		hasHistory := false
		for _, c := range n.Children {
			if c.Kind == chart.History {
				hasHistory = true
				break
			}
		}
		if !hasHistory {
			continue
		}
		var leaves []string
		for _, leaf := range cfg.ActiveLeaves() {
			if leaf.IsDescendantOf(n) {
				leaves = append(leaves, leaf.Path)
			}
		}
		ex.history.Record(n, leaves)
	}
}

// entrySet computes the ordered (outermost-first) set of nodes to enter for
// one transition's targets, honoring history-aware descent (spec §4.5 step 5).
func (ex *Executor) entrySet(cfg *Configuration, scope *chart.Node, targets []*chart.Node, t *chart.Transition) []*chart.Node {
	seen := make(map[string]bool)
	var out []*chart.Node
	add := func(nodes []*chart.Node) {
		for _, n := range nodes {
			if !seen[n.Path] {
				seen[n.Path] = true
				out = append(out, n)
			}
		}
	}
	for _, target := range targets {
		add(ex.entryPath(scope, target))
	}
	return out
}

func (ex *Executor) entryPath(scope, target *chart.Node) []*chart.Node {
	actualTarget := target
	if target.Kind == chart.History {
		actualTarget = target.Parent
	}
	chain := ancestorsBetween(scope, actualTarget)
	out := append([]*chart.Node{}, chain...)
	if target.Kind == chart.History {
		out = append(out, ex.descendHistory(target)...)
	} else {
		out = append(out, ex.descend(actualTarget, nil)...)
	}
	return out
}

// descend returns the nodes to enter below node (exclusive), following
// `initial` for compound nodes and all regions for parallel nodes.
func (ex *Executor) descend(node *chart.Node, _ *chart.Node) []*chart.Node {
	switch node.Kind {
	case chart.Compound:
		if node.Initial == "" {
			return nil
		}
		for _, c := range node.Children {
			if c.ID == node.Initial {
				return append([]*chart.Node{c}, ex.descend(c, nil)...)
			}
		}
		return nil
	case chart.Parallel:
		var out []*chart.Node
		for _, c := range node.Children {
			if c.Kind == chart.History {
				continue
			}
			out = append(out, c)
			out = append(out, ex.descend(c, nil)...)
		}
		return out
	default:
		return nil
	}
}

// descendHistory resolves a history node target: replays the recorded active
// leaf set if any, else falls back to the parent's normal initial descent
// (spec §4.5 step 5, "falling back to the configured initial if none").
func (ex *Executor) descendHistory(historyNode *chart.Node) []*chart.Node {
	parent := historyNode.Parent
	paths, ok := ex.history.Restore(historyNode.Path, historyNode.HistoryKind)
	if !ok {
		return ex.descend(parent, nil)
	}
	seen := make(map[string]bool)
	var out []*chart.Node
	for _, p := range paths {
		n, found := ex.chart.FindState(p)
		if !found {
			continue
		}
		for _, step := range ancestorsBetween(parent, n) {
			if !seen[step.Path] {
				seen[step.Path] = true
				out = append(out, step)
			}
		}
		for _, step := range ex.descend(n, nil) {
			if !seen[step.Path] {
				seen[step.Path] = true
				out = append(out, step)
			}
		}
	}
	return out
}

// ancestorsBetween returns the nodes strictly below scope down to and
// including target, root-first. Empty if scope == target.
func ancestorsBetween(scope, target *chart.Node) []*chart.Node {
	full := target.Ancestors() // root..target
	for i, n := range full {
		if n == scope {
			return full[i+1:]
		}
	}
	return full // scope is nil or not an ancestor (e.g. whole-chart scope)
}

func reverseNodes(nodes []*chart.Node) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}
