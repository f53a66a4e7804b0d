package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/harelstate/statecraft/internal/chart"
	"github.com/harelstate/statecraft/internal/event"
	"github.com/harelstate/statecraft/internal/service"
	"github.com/harelstate/statecraft/internal/statectx"
	"github.com/harelstate/statecraft/internal/timer"
)

type funcActionRunner func(ctx context.Context, store *statectx.Store, action chart.ActionRef, ev event.Event) error

func (f funcActionRunner) Run(ctx context.Context, store *statectx.Store, action chart.ActionRef, ev event.Event) error {
	return f(ctx, store, action, ev)
}

type funcGuardEvaluator func(store *statectx.Store, guard chart.GuardRef, ev event.Event) (bool, error)

func (f funcGuardEvaluator) Eval(store *statectx.Store, guard chart.GuardRef, ev event.Event) (bool, error) {
	return f(store, guard, ev)
}

type emptyRegistry struct{}

func (emptyRegistry) Lookup(string) (service.Invoke, bool) { return nil, false }

func newTestEngine(t *testing.T, c *chart.Chart, guardEval GuardEvaluator, actions ActionRunner) *Engine {
	t.Helper()
	timers := timer.New(nil)
	services := service.New(emptyRegistry{}, nil)
	return New(c, guardEval, actions, nil, timers, services, nil)
}

func TestEngineBasicTrafficLight(t *testing.T) {
	b := chart.NewRoot("light").WithInitial("green")
	b.State("green").On("TIMER", chart.TransitionSpec{Target: "yellow"})
	b.State("yellow").On("TIMER", chart.TransitionSpec{Target: "red"})
	b.State("red").On("TIMER", chart.TransitionSpec{Target: "green"})
	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	eng := newTestEngine(t, c, nil, nil)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !eng.Config.IsActive("light.green") {
		t.Fatalf("expected light.green active")
	}
	if err := eng.Send(ctx, "TIMER", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !eng.Config.IsActive("light.yellow") || eng.Config.IsActive("light.green") {
		t.Fatalf("expected light.yellow active, light.green inactive")
	}
}

func TestEngineParallelRegionsIndependent(t *testing.T) {
	b := chart.NewRoot("ui").WithInitial("regions")
	regions := b.State("regions", chart.Parallel)
	left := regions.State("left", chart.Compound).WithInitial("idle")
	left.State("idle").On("LCLICK", chart.TransitionSpec{Target: "clicked"})
	left.State("clicked")
	right := regions.State("right", chart.Compound).WithInitial("idle")
	right.State("idle").On("RCLICK", chart.TransitionSpec{Target: "clicked"})
	right.State("clicked")

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	eng := newTestEngine(t, c, nil, nil)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.Send(ctx, "LCLICK", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !eng.Config.IsActive("ui.regions.left.clicked") {
		t.Fatalf("expected left region to have transitioned")
	}
	if !eng.Config.IsActive("ui.regions.right.idle") {
		t.Fatalf("expected right region untouched by left's event")
	}
}

func TestEngineShallowHistoryRestoresLastChild(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("sub")
	sub := b.State("sub", chart.Compound).WithInitial("a")
	sub.On("LEAVE", chart.TransitionSpec{Target: "away"})
	sub.State("a").On("SWITCH", chart.TransitionSpec{Target: "b"})
	sub.State("b")
	sub.State("h", chart.History).WithHistoryKind(chart.Shallow)
	b.State("away").On("BACK", chart.TransitionSpec{Target: "sub.h"})

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	eng := newTestEngine(t, c, nil, nil)
	ctx := context.Background()
	_ = eng.Start(ctx)
	_ = eng.Send(ctx, "SWITCH", nil)
	if !eng.Config.IsActive("m.sub.b") {
		t.Fatalf("expected m.sub.b active before leaving")
	}

	_ = eng.Send(ctx, "LEAVE", nil)
	if !eng.Config.IsActive("m.away") || eng.Config.IsActive("m.sub") {
		t.Fatalf("expected sub exited, away active")
	}

	_ = eng.Send(ctx, "BACK", nil)
	if !eng.Config.IsActive("m.sub.b") {
		t.Fatalf("expected shallow history to restore m.sub.b, got active=%v", eng.Config.ActiveFull())
	}
}

func TestEngineDeepHistoryRestoresNestedLeaf(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("sub")
	sub := b.State("sub", chart.Compound).WithInitial("x")
	sub.On("LEAVE", chart.TransitionSpec{Target: "away"})
	x := sub.State("x", chart.Compound).WithInitial("x1")
	x.State("x1").On("SWITCH", chart.TransitionSpec{Target: "x2"})
	x.State("x2")
	sub.State("h", chart.History).WithHistoryKind(chart.Deep)
	b.State("away").On("BACK", chart.TransitionSpec{Target: "sub.h"})

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	eng := newTestEngine(t, c, nil, nil)
	ctx := context.Background()
	_ = eng.Start(ctx)
	_ = eng.Send(ctx, "SWITCH", nil)
	_ = eng.Send(ctx, "LEAVE", nil)
	_ = eng.Send(ctx, "BACK", nil)
	if !eng.Config.IsActive("m.sub.x.x2") {
		t.Fatalf("expected deep history to restore m.sub.x.x2, got active=%v", eng.Config.ActiveFull())
	}
}

func TestEngineGuardedAlwaysTransition(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("waiting")
	b.State("waiting").Always(chart.TransitionSpec{Target: "ready", Guard: "isReady"})
	b.State("ready")

	c, err := chart.Build(b, map[string]any{"ready": false})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	guard := funcGuardEvaluator(func(store *statectx.Store, g chart.GuardRef, ev event.Event) (bool, error) {
		v, _ := store.Get("ready")
		ready, _ := v.(bool)
		return ready, nil
	})
	eng := newTestEngine(t, c, guard, nil)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !eng.Config.IsActive("m.waiting") {
		t.Fatalf("expected to remain waiting while guard is false")
	}

	eng.Store.Set("ready", true)
	if err := eng.Send(ctx, "TICK", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !eng.Config.IsActive("m.ready") {
		t.Fatalf("expected eventless pass to fire once guard became true")
	}
}

func TestEngineAfterDelayFires(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("a")
	b.State("a").AddAfter(chart.AfterSpecInput{Delay: "20", Transition: chart.TransitionSpec{Target: "b"}})
	b.State("b")

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	eng := newTestEngine(t, c, nil, nil)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if eng.Config.IsActive("m.b") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("after-delay transition never fired")
}

func TestEngineStopCancelsServicesAndWaits(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("a")
	b.State("a").AddInvoke(chart.InvocationSpec{ID: "inv1", Src: "never-registered"})
	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	eng := newTestEngine(t, c, nil, nil)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eng.Stop()
	if eng.Config.IsActive("m.a") {
		t.Fatalf("expected configuration cleared after Stop")
	}
}

func TestEngineOnErrorDispatchToAncestor(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("on")
	on := b.State("on", chart.Compound).WithInitial("a")
	on.AddOnError(chart.TransitionSpec{Target: "failed"})
	on.State("a").On("GO", chart.TransitionSpec{Internal: true, Actions: []chart.ActionRef{"boom"}})
	b.State("failed")

	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	actions := funcActionRunner(func(ctx context.Context, store *statectx.Store, a chart.ActionRef, ev event.Event) error {
		if a == "boom" {
			return context.DeadlineExceeded
		}
		return nil
	})
	eng := newTestEngine(t, c, nil, actions)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.Send(ctx, "GO", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !eng.Config.IsActive("m.failed") {
		t.Fatalf("expected onError handler on ancestor to route to failed")
	}
	v, ok := eng.Store.Get("_errorType")
	if !ok || v != "ActionError" {
		t.Fatalf("expected _errorType recorded, got %v", v)
	}
}

func TestEngineResetClearsHistoryAndContext(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("a")
	b.State("a").On("GO", chart.TransitionSpec{Target: "b"})
	b.State("b")
	c, err := chart.Build(b, map[string]any{"count": 0})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	eng := newTestEngine(t, c, nil, nil)
	ctx := context.Background()
	_ = eng.Start(ctx)
	_ = eng.Send(ctx, "GO", nil)
	eng.Store.Set("count", 5)

	eng.Reset(ctx)
	if !eng.Config.IsActive("m.a") {
		t.Fatalf("expected reset to restore initial state")
	}
	v, _ := eng.Store.Get("count")
	if v != 0 {
		t.Fatalf("expected context restored to initial snapshot, got %v", v)
	}
}

func TestEngineLoopProtectionLimitStopsRunawayAlways(t *testing.T) {
	b := chart.NewRoot("m").WithInitial("a")
	b.State("a").Always(chart.TransitionSpec{Target: "b"})
	b.State("b").Always(chart.TransitionSpec{Target: "a"})
	c, err := chart.Build(b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	eng := newTestEngine(t, c, nil, nil)
	eng.SetLoopProtectionLimit(5)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		_ = eng.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eventless pass did not terminate under loop protection")
	}
}
