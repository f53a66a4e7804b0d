package runtime

import (
	"context"
	"sync"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/event"
	"github.com/harelstate/statecraft/internal/statectx"
	"go.uber.org/zap"
)

// DefaultLoopProtectionLimit bounds consecutive eventless microsteps between
// two external events (spec §4.6 step 3, §8 "Eventless loop protection").
const DefaultLoopProtectionLimit = 10

// Engine ties the Chart Model, Context Store, Active Configuration,
// Transition Resolver, Microstep Executor, and History together into the
// single-threaded cooperative Event Loop (spec component C6). It is the
// engine the root Machine (C9) drives; Start/Stop/Send/Reset here implement
// the semantics behind the public API without yet exposing it. Grounded on
// teacher `statechart.go`'s `processMicrosteps`/`SendEvent` drain loop and
// `internal/core/machine.go`'s `interpret` goroutine, merged into one
// synchronous, lock-serialized drain per spec §5 ("at most one drain runs per
// machine at a time").
type Engine struct {
	Chart    *chart.Chart
	Store    *statectx.Store
	Config   *Configuration
	History  *History
	Resolver *Resolver
	Executor *Executor
	Timers   TimerArmer
	Services ServiceSpawner
	logger   *zap.Logger

	guardEval GuardEvaluator

	loopProtectionLimit int

	mu       sync.Mutex
	queue    []event.Event
	draining bool
	started  bool
	stopped  bool

	subs []Subscriber
}

// New builds an Engine. guardEval may be nil (guards then always fail open to
// "true" only when the transition has no guard at all).
func New(c *chart.Chart, guardEval GuardEvaluator, actionRunner ActionRunner, delayResolver DelayResolver, timers TimerArmer, services ServiceSpawner, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := statectx.New()
	store.Restore(c.InitialContext)
	hist := NewHistory()
	return &Engine{
		Chart:               c,
		Store:               store,
		Config:              NewConfiguration(c),
		History:             hist,
		Resolver:            NewResolver(c),
		Executor:            NewExecutor(c, store, hist, actionRunner, delayResolver, timers, services, logger),
		Timers:              timers,
		Services:            services,
		logger:              logger,
		guardEval:           guardEval,
		loopProtectionLimit: DefaultLoopProtectionLimit,
	}
}

// SetLoopProtectionLimit overrides the eventless-pass bound (default
// DefaultLoopProtectionLimit). Must be called before Start.
func (e *Engine) SetLoopProtectionLimit(n int) {
	if n > 0 {
		e.loopProtectionLimit = n
	}
}

// Subscribe registers a transition subscriber (spec §4.9, subscribe_transitions).
func (e *Engine) Subscribe(s Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, s)
}

// Start activates the initial configuration and drains any resulting eventless
// cascade (spec §4.9, start()).
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started && !e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.stopped = false
	e.mu.Unlock()

	failures := e.Executor.EnterInitial(ctx, e.Config, e.deliver)
	for _, f := range failures {
		e.dispatchOnError(ctx, f.NodePath, f.Err)
	}
	e.runEventlessPass(ctx)
	return nil
}

// Stop runs exit actions for the whole active configuration innermost-first,
// cancels all timers/services, and clears the configuration (spec §4.9, stop()).
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.started = false
	e.queue = nil
	e.mu.Unlock()

	failures := e.Executor.ExitAll(context.Background(), e.Config)
	for _, f := range failures {
		e.logger.Warn("exit action failed during stop", zap.String("node", f.NodePath), zap.Error(f.Err))
	}
	e.cancelEverything()
	e.waitForServices()
	e.Config.Reset()
}

func (e *Engine) cancelEverything() {
	type canceller interface{ CancelAll() }
	if c, ok := e.Timers.(canceller); ok {
		c.CancelAll()
	}
	if c, ok := e.Services.(canceller); ok {
		c.CancelAll()
	}
}

// waitForServices blocks until every service goroutine launched by the
// Supervisor has returned, so tests can assert no goroutine leaks past Stop
// (spec §8, goroutine-leak-free shutdown).
func (e *Engine) waitForServices() {
	type waiter interface{ Wait() error }
	if w, ok := e.Services.(waiter); ok {
		_ = w.Wait()
	}
}

// Send enqueues an external event and drains the loop (spec §4.9, send()).
func (e *Engine) Send(ctx context.Context, name string, data any) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	e.mu.Unlock()
	e.enqueue(ctx, event.External(name, data))
	return nil
}

// Reset performs the RESET pseudo-event (spec §4.9, reset()).
func (e *Engine) Reset(ctx context.Context) {
	e.enqueue(ctx, event.External(event.Reset, nil))
}

func (e *Engine) deliver(ev event.Event) {
	e.enqueue(context.Background(), ev)
}

func (e *Engine) enqueue(ctx context.Context, ev event.Event) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if ev.Synthetic && !e.Config.ValidSynthetic(ev.SourcePath, ev.Generation) {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, ev)
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()
	e.drain(ctx)
}

// drain is the Event Loop (spec §4.6): dequeue one event, process its
// microstep, then run the eventless pass to quiescence before considering the
// next queued event.
func (e *Engine) drain(ctx context.Context) {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.draining = false
			e.mu.Unlock()
			return
		}
		ev := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		if ev.Name == event.Reset {
			e.doReset(ctx)
			continue
		}
		if ev.Synthetic && !e.Config.ValidSynthetic(ev.SourcePath, ev.Generation) {
			continue // stale timer/service delivery (spec I4): silently discarded
		}

		e.processEvent(ctx, ev.Name, ev)
		e.runEventlessPass(ctx)
	}
}

func (e *Engine) processEvent(ctx context.Context, name string, ev event.Event) {
	selected, guardErrs := e.Resolver.Resolve(e.Config, e.Store, e.guardEval, name, ev)
	e.logGuardErrors(guardErrs)
	if len(selected) == 0 {
		return
	}
	records, failures := e.Executor.Apply(ctx, e.Config, selected, name, ev, e.deliver)
	for _, f := range failures {
		e.dispatchOnError(ctx, f.NodePath, f.Err)
	}
	e.notify(records)
}

func (e *Engine) runEventlessPass(ctx context.Context) {
	for count := 0; count < e.loopProtectionLimit; count++ {
		selected, guardErrs := e.Resolver.Resolve(e.Config, e.Store, e.guardEval, chart.EventlessName, event.Event{})
		e.logGuardErrors(guardErrs)
		if len(selected) == 0 {
			return
		}
		records, failures := e.Executor.Apply(ctx, e.Config, selected, chart.EventlessName, event.Event{}, e.deliver)
		for _, f := range failures {
			e.dispatchOnError(ctx, f.NodePath, f.Err)
		}
		e.notify(records)
	}
	e.logger.Warn("eventless loop protection limit reached", zap.Int("limit", e.loopProtectionLimit))
}

// doReset implements spec §4.9's reset() contract: cancel timers/services,
// clear history, restore context, deactivate every node (root included)
// without running exit actions, re-enter as start() would. The queue is already drained of anything ahead of RESET by
// FIFO ordering; anything still queued behind it is discarded per "the
// event-queue is drained of any pending events prior to re-entry."
func (e *Engine) doReset(ctx context.Context) {
	e.mu.Lock()
	e.queue = nil
	e.mu.Unlock()

	e.cancelEverything()
	e.History.Clear()
	e.Store.Restore(e.Chart.InitialContext)
	e.Config.Reset()

	failures := e.Executor.EnterInitial(ctx, e.Config, e.deliver)
	for _, f := range failures {
		e.dispatchOnError(ctx, f.NodePath, f.Err)
	}
	e.runEventlessPass(ctx)
}

// RestoreConfiguration reactivates exactly the given node paths and context,
// bypassing entry actions and service/timer arming: a snapshot restore is a
// resumption of prior state, not a fresh activation (spec §3, "a persister
// may serialize the whole context" / "restore exactly"). Unknown paths are
// skipped with a warning rather than failing the whole restore.
func (e *Engine) RestoreConfiguration(ctx context.Context, activePaths []string, ctxData map[string]any) {
	e.mu.Lock()
	e.queue = nil
	e.mu.Unlock()

	e.cancelEverything()
	e.History.Clear()
	e.Config.Reset()
	e.Store.Restore(ctxData)

	for _, p := range activePaths {
		if _, ok := e.Chart.FindState(p); !ok {
			e.logger.Warn("restore: unknown state path, skipping", zap.String("path", p))
			continue
		}
		e.Config.Enter(p)
	}
	e.mu.Lock()
	e.started = true
	e.stopped = false
	e.mu.Unlock()
}

func (e *Engine) logGuardErrors(errs []error) {
	for _, err := range errs {
		e.logger.Warn("guard evaluation failed, treating as false", zap.Error(err))
	}
}

// dispatchOnError routes an ActionError to the nearest ancestor's onError
// handler, populating context per spec §7. If no handler is found anywhere up
// the chain, the error is only logged; the configuration is left unchanged.
func (e *Engine) dispatchOnError(ctx context.Context, nodePath string, failErr error) {
	e.Store.Set("_lastError", failErr.Error())
	e.Store.Set("_errorType", "ActionError")
	e.Store.Set("_errorMessage", failErr.Error())

	node, ok := e.Chart.FindState(nodePath)
	if !ok {
		e.logger.Warn("action error on unknown node", zap.String("node", nodePath), zap.Error(failErr))
		return
	}
	ancestors := node.Ancestors()
	for i := len(ancestors) - 1; i >= 0; i-- {
		anc := ancestors[i]
		for _, t := range anc.OnError {
			ok, err := e.Resolver.evalGuard(e.guardEval, e.Store, t, event.Event{Name: "onError"})
			if err != nil || !ok {
				continue
			}
			resolved := e.Resolver.buildResolved(anc, t)
			records, failures := e.Executor.Apply(ctx, e.Config, []Resolved{resolved}, "onError", event.Event{Name: "onError"}, e.deliver)
			for _, f := range failures {
				e.logger.Error("onError handler itself failed", zap.String("node", f.NodePath), zap.Error(f.Err))
			}
			e.notify(records)
			return
		}
	}
	e.logger.Warn("unhandled action error", zap.String("node", nodePath), zap.Error(failErr))
}

func (e *Engine) notify(records []TransitionRecord) {
	if len(records) == 0 {
		return
	}
	e.mu.Lock()
	subs := make([]Subscriber, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()
	for _, rec := range records {
		for _, s := range subs {
			s(rec.FromPath, rec.ToPath, rec.Event)
		}
	}
}
