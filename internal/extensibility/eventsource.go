package extensibility

import (
	"context"
	"time"

	"github.com/harelstate/statecraft/internal/event"
)

// ChannelEventSource feeds events from a Go channel into a Machine via a pump
// goroutine calling send for each received value. Grounded on teacher
// ChannelEventSource, generalized from primitives.Event to event.Event and
// from a passive `Events()` accessor to an active pump (the new Engine has no
// reader-side select loop of its own; it exposes a callback-style `Send`).
type ChannelEventSource struct {
	ch chan event.Event
}

// NewChannelEventSource wraps ch. The channel should be buffered if
// backpressure handling is needed.
func NewChannelEventSource(ch chan event.Event) *ChannelEventSource {
	return &ChannelEventSource{ch: ch}
}

// Pump reads from the channel until it is closed or ctx is cancelled, calling
// send for each event.
func (s *ChannelEventSource) Pump(ctx context.Context, send func(name string, data any)) {
	for {
		select {
		case ev, ok := <-s.ch:
			if !ok {
				return
			}
			send(ev.Name, ev.Data)
		case <-ctx.Done():
			return
		}
	}
}

// RegistryDelayResolver resolves named `after` delays (spec §4.7, "a
// delay-registry collaborator") against a fixed name->duration map, falling
// back to the Executor's literal-milliseconds parsing when a name isn't
// registered. Grounded on teacher TimerEventSource's fixed-interval ticker,
// generalized from a single repeating interval to a named one-shot registry
// since the Timer Scheduler (internal/timer) already owns the one-shot
// time.AfterFunc mechanics.
type RegistryDelayResolver struct {
	delays map[string]time.Duration
}

// NewRegistryDelayResolver builds a resolver over the given name->duration map.
func NewRegistryDelayResolver(delays map[string]time.Duration) *RegistryDelayResolver {
	if delays == nil {
		delays = make(map[string]time.Duration)
	}
	return &RegistryDelayResolver{delays: delays}
}

// Register adds or replaces a named delay.
func (r *RegistryDelayResolver) Register(name string, d time.Duration) {
	r.delays[name] = d
}

// Resolve implements runtime.DelayResolver.
func (r *RegistryDelayResolver) Resolve(spec string) (time.Duration, bool) {
	d, ok := r.delays[spec]
	return d, ok
}
