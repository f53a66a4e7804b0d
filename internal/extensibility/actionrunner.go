// Package extensibility provides the pluggable ActionRunner, GuardEvaluator,
// DelayResolver, and event-source collaborators a Machine is wired with (spec
// §9, "Dynamic action/guard registries"). Grounded on teacher
// internal/extensibility, generalized from primitives.Context/Event to
// statectx.Store/event.Event.
package extensibility

import (
	"context"
	"fmt"
	"time"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/event"
	"github.com/harelstate/statecraft/internal/statectx"
	"go.uber.org/zap"
)

// ActionFunc is the function-value form of a chart.ActionRef.
type ActionFunc func(ctx context.Context, store *statectx.Store, ev event.Event) error

// NamedActionRunner dispatches chart.ActionRef values that are either an
// ActionFunc or a string name looked up in a registry. Unregistered names fail
// with an error (spec §7, ActionError) rather than being silently skipped,
// generalizing teacher DefaultActionRunner's `fmt.Errorf("action ID... not
// registered")` case to an explicit registry instead of always failing.
type NamedActionRunner struct {
	registry map[string]ActionFunc
}

// NewNamedActionRunner builds a runner backed by the given name->function
// registry. A nil map is treated as empty.
func NewNamedActionRunner(registry map[string]ActionFunc) *NamedActionRunner {
	if registry == nil {
		registry = make(map[string]ActionFunc)
	}
	return &NamedActionRunner{registry: registry}
}

// Register adds or replaces a named action.
func (r *NamedActionRunner) Register(name string, fn ActionFunc) {
	r.registry[name] = fn
}

// Run implements runtime.ActionRunner.
func (r *NamedActionRunner) Run(ctx context.Context, store *statectx.Store, action chart.ActionRef, ev event.Event) error {
	switch a := action.(type) {
	case nil:
		return nil
	case ActionFunc:
		return a(ctx, store, ev)
	case func(context.Context, *statectx.Store, event.Event) error:
		return a(ctx, store, ev)
	case string:
		fn, ok := r.registry[a]
		if !ok {
			return fmt.Errorf("action %q not registered", a)
		}
		return fn(ctx, store, ev)
	default:
		return fmt.Errorf("unknown action reference type: %T", action)
	}
}

// LoggingActionRunner wraps an ActionRunner and logs each invocation through
// zap, matching teacher LoggingActionRunner's before/after logging but using
// the structured logger the rest of the module is built on instead of the
// standard `log` package.
type LoggingActionRunner struct {
	inner  Runner
	logger *zap.Logger
}

// Runner is the subset of runtime.ActionRunner LoggingActionRunner wraps,
// declared locally to avoid extensibility importing runtime for one method
// signature.
type Runner interface {
	Run(ctx context.Context, store *statectx.Store, action chart.ActionRef, ev event.Event) error
}

// NewLoggingActionRunner wraps inner with zap logging. A nil logger defaults
// to a no-op logger.
func NewLoggingActionRunner(inner Runner, logger *zap.Logger) *LoggingActionRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingActionRunner{inner: inner, logger: logger}
}

// Run logs before and after delegating to the inner runner.
func (r *LoggingActionRunner) Run(ctx context.Context, store *statectx.Store, action chart.ActionRef, ev event.Event) error {
	start := time.Now()
	r.logger.Debug("executing action", zap.Any("action", action), zap.String("event", ev.Name))
	err := r.inner.Run(ctx, store, action, ev)
	r.logger.Debug("action completed", zap.Any("action", action), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	return err
}
