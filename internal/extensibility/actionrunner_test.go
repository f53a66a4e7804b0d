package extensibility

import (
	"context"
	"testing"

	"github.com/harelstate/statecraft/internal/statectx"
	"github.com/harelstate/statecraft/internal/event"
)

func TestNamedActionRunner_Func(t *testing.T) {
	store := statectx.New()
	ev := event.External("test", nil)
	called := false
	action := ActionFunc(func(ctx context.Context, s *statectx.Store, e event.Event) error {
		called = true
		return nil
	})
	r := NewNamedActionRunner(nil)
	if err := r.Run(context.Background(), store, action, ev); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("action func not called")
	}
}

func TestNamedActionRunner_Registered(t *testing.T) {
	store := statectx.New()
	ev := event.External("test", nil)
	r := NewNamedActionRunner(nil)
	called := false
	r.Register("greet", func(ctx context.Context, s *statectx.Store, e event.Event) error {
		called = true
		return nil
	})
	if err := r.Run(context.Background(), store, "greet", ev); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("registered action not called")
	}
}

func TestNamedActionRunner_Unregistered(t *testing.T) {
	r := NewNamedActionRunner(nil)
	err := r.Run(context.Background(), statectx.New(), "unknown", event.External("test", nil))
	if err == nil {
		t.Error("expected error for unregistered action")
	}
}

func TestNamedActionRunner_Nil(t *testing.T) {
	r := NewNamedActionRunner(nil)
	err := r.Run(context.Background(), statectx.New(), nil, event.External("test", nil))
	if err != nil {
		t.Errorf("unexpected error for nil action: %v", err)
	}
}

func TestLoggingActionRunner(t *testing.T) {
	store := statectx.New()
	ev := event.External("test", nil)
	called := false
	action := ActionFunc(func(ctx context.Context, s *statectx.Store, e event.Event) error {
		called = true
		return nil
	})
	inner := NewNamedActionRunner(nil)
	r := NewLoggingActionRunner(inner, nil)
	if err := r.Run(context.Background(), store, action, ev); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("inner action not called")
	}
}
