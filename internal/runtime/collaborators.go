package runtime

import (
	"context"
	"time"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/event"
	"github.com/harelstate/statecraft/internal/statectx"
	"github.com/harelstate/statecraft/internal/timer"
)

// ActionRunner executes a single resolved ActionRef (spec §9, "Dynamic
// action/guard registries"). Generalizes teacher internal/core.ActionRunner:
// the teacher's Run swallows errors by convention; this one returns them so
// the Executor can populate the §7 error taxonomy.
type ActionRunner interface {
	Run(ctx context.Context, store *statectx.Store, action chart.ActionRef, ev event.Event) error
}

// GuardEvaluator evaluates a single GuardRef against the read-only context.
// Generalizes teacher internal/core.GuardEvaluator to return an error instead
// of silently failing closed, so a throwing guard becomes a GuardError (§7)
// rather than indistinguishable from a guard that legitimately returned false.
type GuardEvaluator interface {
	Eval(store *statectx.Store, guard chart.GuardRef, ev event.Event) (bool, error)
}

// DelayResolver turns an `after` duration spec (a literal integer-milliseconds
// string, or a name) into a concrete time.Duration (spec §4.7).
type DelayResolver interface {
	Resolve(spec string) (time.Duration, bool)
}

// TimerArmer is the Executor's view of the Timer Scheduler (C7): arm a
// one-shot delayed transition, or cancel every timer owned by a node.
// Satisfied structurally by *internal/timer.Scheduler.
type TimerArmer interface {
	Arm(nodePath string, generation uint64, eventName string, delay time.Duration, fire timer.FireFunc)
	CancelNode(nodePath string)
}

// ServiceSpawner is the Executor's view of the Service Supervisor (C8): start
// an invoked service, or cancel every service owned by a node. Satisfied
// structurally by *internal/service.Supervisor.
type ServiceSpawner interface {
	Start(ctx context.Context, nodePath string, generation uint64, invocationID, src string, deliver func(event.Event))
	CancelNode(nodePath string)
}

// Subscriber receives a synchronous notification after every microstep's
// transition is applied (spec §4.9, subscribe_transitions).
type Subscriber func(fromPath, toPath, eventName string)
