package extensibility

import (
	"context"
	"testing"
	"time"

	"github.com/harelstate/statecraft/internal/event"
)

func TestChannelEventSource_Pump(t *testing.T) {
	ch := make(chan event.Event, 1)
	s := NewChannelEventSource(ch)

	var gotName string
	var gotData any
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		s.Pump(ctx, func(name string, data any) {
			gotName, gotData = name, data
			close(done)
		})
	}()

	ch <- event.External("tick", "data")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not deliver event")
	}
	if gotName != "tick" || gotData != "data" {
		t.Errorf("wrong event: %v %v", gotName, gotData)
	}
}

func TestChannelEventSource_PumpStopsOnClose(t *testing.T) {
	ch := make(chan event.Event)
	s := NewChannelEventSource(ch)
	returned := make(chan struct{})
	go func() {
		s.Pump(context.Background(), func(string, any) {})
		close(returned)
	}()
	close(ch)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("pump did not return after channel close")
	}
}

func TestChannelEventSource_PumpStopsOnContextCancel(t *testing.T) {
	ch := make(chan event.Event)
	s := NewChannelEventSource(ch)
	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		s.Pump(ctx, func(string, any) {})
		close(returned)
	}()
	cancel()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("pump did not return after context cancel")
	}
}

func TestRegistryDelayResolver(t *testing.T) {
	r := NewRegistryDelayResolver(nil)
	r.Register("short", 50*time.Millisecond)

	d, ok := r.Resolve("short")
	if !ok || d != 50*time.Millisecond {
		t.Errorf("expected registered delay, got %v %v", d, ok)
	}

	_, ok = r.Resolve("unknown")
	if ok {
		t.Error("expected unknown delay name to miss")
	}
}
