package statecraft

import (
	"context"
	"fmt"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/production"
	"github.com/harelstate/statecraft/internal/runtime"
	"github.com/harelstate/statecraft/internal/service"
	"github.com/harelstate/statecraft/internal/timer"
	"go.uber.org/zap"
)

// Machine is the Observation & Control API (spec component C9): the public
// surface wrapping internal/runtime.Engine. Grounded on teacher
// internal/core.Machine's functional-options construction and
// Start/Stop/Send/Current/Restore surface, generalized to the full
// hierarchical/parallel/history/delay/invoke semantics SPEC_FULL.md adds.
type Machine struct {
	id         string
	engine     *runtime.Engine
	chart      *chart.Chart
	persister  production.Persister
	publisher  production.EventPublisher
	visualizer *production.DefaultVisualizer
	logger     *zap.Logger
}

// New builds a Machine from a Builder tree and an initial context snapshot.
// The Builder is consumed; further mutation of it after New has no effect.
func New(root *Builder, initialContext map[string]any, opts ...Option) (*Machine, error) {
	c, err := chart.Build(root, initialContext)
	if err != nil {
		return nil, fmt.Errorf("statecraft: building chart: %w", err)
	}
	return NewFromChart(c, opts...)
}

// NewFromChart builds a Machine from an already-resolved Chart (e.g. one
// produced by an external parser collaborator, spec §1 "Out of scope").
func NewFromChart(c *chart.Chart, opts ...Option) (*Machine, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.serviceReg == nil {
		cfg.serviceReg = emptyServiceRegistry{}
	}

	timers := timer.New(cfg.logger)
	services := service.New(cfg.serviceReg, cfg.logger)

	eng := runtime.New(c, cfg.guardEval, cfg.actionRunner, cfg.delayResolver, timers, services, cfg.logger)
	if cfg.loopLimit > 0 {
		eng.SetLoopProtectionLimit(cfg.loopLimit)
	}

	m := &Machine{
		id:         c.Root.ID,
		engine:     eng,
		chart:      c,
		persister:  cfg.persister,
		publisher:  cfg.publisher,
		visualizer: production.NewDefaultVisualizer(c),
		logger:     cfg.logger,
	}
	if cfg.publisher != nil {
		eng.Subscribe(m.publish)
	}
	return m, nil
}

func (m *Machine) publish(fromPath, toPath, eventName string) {
	if m.publisher == nil {
		return
	}
	_ = m.publisher.Publish(context.Background(), production.PublishedEvent{
		MachineID: m.id,
		FromPath:  fromPath,
		ToPath:    toPath,
		Event:     eventName,
	})
}

// ID returns the root state node's ID, used as the machine's identity for
// persistence and publishing.
func (m *Machine) ID() string { return m.id }

// Start activates the initial configuration (spec §4.9, start()).
func (m *Machine) Start(ctx context.Context) error {
	return m.engine.Start(ctx)
}

// Stop cancels all timers/services and deactivates every state, waiting for
// in-flight service goroutines to exit (spec §4.9, stop()).
func (m *Machine) Stop() {
	m.engine.Stop()
}

// Send dispatches an external event and runs it to completion, including any
// resulting eventless cascade, before returning (spec §4.9, send()).
func (m *Machine) Send(ctx context.Context, name string, data any) error {
	return m.engine.Send(ctx, name, data)
}

// Reset re-enters the initial configuration, clearing history and restoring
// context to its build-time snapshot (spec §4.9, reset()).
func (m *Machine) Reset(ctx context.Context) {
	m.engine.Reset(ctx)
}

// IsIn reports whether path is in the active configuration: either itself
// active, or an ancestor of an active descendant (spec §4.9, is_in(id)).
func (m *Machine) IsIn(path string) bool {
	return m.engine.Config.ContainsPath(path)
}

// ActiveLeaves returns the atomic/final leaves of the active configuration, in
// document order (spec §4.9, active_leaves()).
func (m *Machine) ActiveLeaves() []string {
	nodes := m.engine.Config.ActiveLeaves()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return out
}

// ActiveFull returns every active node (leaves and their ancestors), in
// document order (spec §4.9, active_full()).
func (m *Machine) ActiveFull() []string {
	nodes := m.engine.Config.ActiveFull()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return out
}

// Context returns a defensive copy of the context store as a plain map, with
// no key order (spec §3, "a persister may serialize the whole context").
func (m *Machine) Context() map[string]any {
	return m.engine.Store.Snapshot()
}

// SubscribeTransitions registers a callback invoked synchronously after every
// fired transition, in addition to any configured EventPublisher (spec §4.9,
// subscribe_transitions).
func (m *Machine) SubscribeTransitions(fn func(fromPath, toPath, eventName string)) {
	m.engine.Subscribe(runtime.Subscriber(fn))
}

// Save serializes the current configuration and context through the
// configured Persister.
func (m *Machine) Save(ctx context.Context) error {
	if m.persister == nil {
		return fmt.Errorf("statecraft: no persister configured")
	}
	return m.persister.Save(ctx, production.Snapshot{
		MachineID:   m.id,
		ActivePaths: m.ActiveFull(),
		Context:     m.Context(),
	})
}

// Restore loads the latest snapshot from the configured Persister and
// reactivates it in place of the current configuration, bypassing entry
// actions (spec §3). The Machine must not be started again afterward; it is
// already active.
func (m *Machine) Restore(ctx context.Context) error {
	if m.persister == nil {
		return fmt.Errorf("statecraft: no persister configured")
	}
	snap, err := m.persister.Load(ctx, m.id)
	if err != nil {
		return fmt.Errorf("statecraft: loading snapshot: %w", err)
	}
	m.engine.RestoreConfiguration(ctx, snap.ActivePaths, snap.Context)
	return nil
}

// Visualize renders the chart to Graphviz DOT, highlighting the currently
// active configuration.
func (m *Machine) Visualize() string {
	return m.visualizer.ExportDOT(m.ActiveFull())
}

// Dispose stops the machine and releases its event publisher, if any.
func (m *Machine) Dispose() {
	m.Stop()
	if m.publisher != nil {
		_ = m.publisher.Close()
	}
}
