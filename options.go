package statecraft

import (
	"github.com/harelstate/statecraft/internal/production"
	"github.com/harelstate/statecraft/internal/runtime"
	"github.com/harelstate/statecraft/internal/service"
	"go.uber.org/zap"
)

// config collects every wirable collaborator a Machine can be built with
// (spec §9, "Dynamic action/guard registries" + the ambient logging/
// persistence/publishing stack). Functional options (below) mutate it before
// New constructs the Engine, generalizing teacher core.WithActionRunner-style
// functional options from a single ActionRunner/GuardEvaluator/EventSource
// trio to the full collaborator set this spec adds (delay resolver, service
// registry, persister, publisher, loop-protection limit).
type config struct {
	actionRunner  runtime.ActionRunner
	guardEval     runtime.GuardEvaluator
	delayResolver runtime.DelayResolver
	serviceReg    service.Registry
	logger        *zap.Logger
	persister     production.Persister
	publisher     production.EventPublisher
	loopLimit     int
}

// Option configures a Machine at construction time.
type Option func(*config)

// WithActionRunner sets the collaborator that executes entry/exit/transition
// actions (spec §9).
func WithActionRunner(r runtime.ActionRunner) Option {
	return func(c *config) { c.actionRunner = r }
}

// WithGuardEvaluator sets the collaborator that evaluates transition guards
// (spec §9).
func WithGuardEvaluator(g runtime.GuardEvaluator) Option {
	return func(c *config) { c.guardEval = g }
}

// WithDelayResolver sets the collaborator that resolves named `after` delays
// (spec §4.7); literal integer-millisecond specs always work without one.
func WithDelayResolver(d runtime.DelayResolver) Option {
	return func(c *config) { c.delayResolver = d }
}

// WithServiceRegistry sets the collaborator that resolves an invocation's
// `src` name to a runnable function (spec §4.8).
func WithServiceRegistry(r service.Registry) Option {
	return func(c *config) { c.serviceReg = r }
}

// WithLogger sets the zap logger the Engine, Executor, Timer Scheduler, and
// Service Supervisor all log through. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithPersister sets the collaborator Machine.Save/Restore use to serialize
// and reload a snapshot (spec §3).
func WithPersister(p production.Persister) Option {
	return func(c *config) { c.persister = p }
}

// WithEventPublisher sets the collaborator notified of every fired transition,
// in addition to any subscribers registered via SubscribeTransitions.
func WithEventPublisher(p production.EventPublisher) Option {
	return func(c *config) { c.publisher = p }
}

// WithLoopProtectionLimit overrides the eventless-pass loop-protection bound
// (spec §4.6.3, §8). Defaults to runtime.DefaultLoopProtectionLimit (10).
func WithLoopProtectionLimit(n int) Option {
	return func(c *config) { c.loopLimit = n }
}

// emptyServiceRegistry is the default service.Registry when none is
// configured: every invocation's `src` is unresolved, delivering
// "error.platform.<id>" immediately (spec §4.8).
type emptyServiceRegistry struct{}

func (emptyServiceRegistry) Lookup(string) (service.Invoke, bool) { return nil, false }
