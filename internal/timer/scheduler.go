// Package timer implements the Timer Scheduler (spec component C7): arming and
// cancelling `after` delays tied to a state node's activation (spec §4.7).
// Grounded on teacher `internal/extensibility/eventsource.go`'s
// TimerEventSource, adapted from a repeating time.Ticker (heartbeat/timeout
// use case) to one-shot time.AfterFunc timers keyed by the owning node.
package timer

import (
	"sync"
	"time"

	"github.com/harelstate/statecraft/internal/event"
	"go.uber.org/zap"
)

// FireFunc is invoked (on the timer's own goroutine) when a timer fires. The
// caller is expected to enqueue the event onto the machine's loop, which
// serializes it against concurrent sends (spec §5, "must acquire the machine lock").
type FireFunc func(event.Event)

type handle struct {
	timer      *time.Timer
	nodePath   string
	generation uint64
}

// Scheduler owns every live timer for one machine.
type Scheduler struct {
	mu      sync.Mutex
	byNode  map[string][]*handle
	logger  *zap.Logger
}

// New creates a Scheduler. A nil logger defaults to a no-op logger.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{byNode: make(map[string][]*handle), logger: logger}
}

// Arm schedules a one-shot timer that, after delay, calls fire with a
// synthetic event named eventName scoped to (nodePath, generation) (spec §3,
// Timer Handle).
func (s *Scheduler) Arm(nodePath string, generation uint64, eventName string, delay time.Duration, fire FireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := &handle{nodePath: nodePath, generation: generation}
	h.timer = time.AfterFunc(delay, func() {
		s.logger.Debug("timer fired", zap.String("node", nodePath), zap.String("event", eventName), zap.Uint64("generation", generation))
		fire(event.After(eventName, nodePath, generation))
		s.removeHandle(nodePath, h)
	})
	s.byNode[nodePath] = append(s.byNode[nodePath], h)
}

func (s *Scheduler) removeHandle(nodePath string, target *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := s.byNode[nodePath]
	for i, h := range handles {
		if h == target {
			s.byNode[nodePath] = append(handles[:i], handles[i+1:]...)
			break
		}
	}
	if len(s.byNode[nodePath]) == 0 {
		delete(s.byNode, nodePath)
	}
}

// CancelNode stops every timer armed for nodePath (spec §4.7, "on exit... all
// timers are cancelled").
func (s *Scheduler) CancelNode(nodePath string) {
	s.mu.Lock()
	handles := s.byNode[nodePath]
	delete(s.byNode, nodePath)
	s.mu.Unlock()
	for _, h := range handles {
		h.timer.Stop()
	}
}

// CancelAll stops every live timer (spec §4.9, stop()/reset()).
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	all := s.byNode
	s.byNode = make(map[string][]*handle)
	s.mu.Unlock()
	for _, handles := range all {
		for _, h := range handles {
			h.timer.Stop()
		}
	}
}
