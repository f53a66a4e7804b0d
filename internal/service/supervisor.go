// Package service implements the Service Supervisor (spec component C8):
// starting, watching, and cancelling invoked asynchronous services, surfacing
// `done.invoke.<id>`/`error.platform.<id>` as internal events (spec §4.8).
// Grounded on teacher `statechart.go`'s `RunAsActor` cancellation pattern
// (context.WithCancel per running unit) generalized from "one machine per
// goroutine" to "one goroutine per invoked service", and on
// `golang.org/x/sync/errgroup`'s fan-out/wait idiom as used by
// theRebelliousNerd-codenerd and agentflare-ai-agentml-go for supervised
// concurrent work.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/harelstate/statecraft/internal/event"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Invoke is a resolved service function (spec §9, "registry contract").
type Invoke func(ctx context.Context) (any, error)

// Registry resolves an invocation's `src` name to a runnable Invoke.
type Registry interface {
	Lookup(src string) (Invoke, bool)
}

// Supervisor tracks every in-flight invoked service for one machine.
type Supervisor struct {
	mu       sync.Mutex
	cancels  map[string][]context.CancelFunc // nodePath -> cancel funcs
	registry Registry
	logger   *zap.Logger
	eg       errgroup.Group
}

// New creates a Supervisor backed by registry. A nil logger defaults to a
// no-op logger.
func New(registry Registry, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		cancels:  make(map[string][]context.CancelFunc),
		registry: registry,
		logger:   logger,
	}
}

// Start launches the service named src, scoped to (nodePath, generation). The
// outcome is delivered to deliver as a done.invoke/error.platform event; the
// caller is responsible for routing it back onto the machine's event queue.
// Cancellation on exit means no event is delivered at all (spec §4.8).
func (s *Supervisor) Start(parentCtx context.Context, nodePath string, generation uint64, invocationID, src string, deliver func(event.Event)) {
	ctx, cancel := context.WithCancel(parentCtx)

	s.mu.Lock()
	s.cancels[nodePath] = append(s.cancels[nodePath], cancel)
	s.mu.Unlock()

	fn, ok := s.registry.Lookup(src)
	s.eg.Go(func() error {
		if !ok {
			deliver(event.ErrorPlatform(invocationID, nodePath, generation, fmt.Errorf("service %q not registered", src)))
			return nil
		}
		result, err := fn(ctx)
		if ctx.Err() != nil {
			s.logger.Debug("service cancelled, discarding result", zap.String("invocation", invocationID))
			return nil
		}
		if err != nil {
			deliver(event.ErrorPlatform(invocationID, nodePath, generation, err))
			return nil
		}
		deliver(event.Done(invocationID, nodePath, generation, result))
		return nil
	})
}

// CancelNode cancels every service started for nodePath (spec §3, Service
// Handle: "Cancelled on exit").
func (s *Supervisor) CancelNode(nodePath string) {
	s.mu.Lock()
	cancels := s.cancels[nodePath]
	delete(s.cancels, nodePath)
	s.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// CancelAll cancels every in-flight service (spec §4.9, stop()/reset()).
func (s *Supervisor) CancelAll() {
	s.mu.Lock()
	all := s.cancels
	s.cancels = make(map[string][]context.CancelFunc)
	s.mu.Unlock()
	for _, cancels := range all {
		for _, c := range cancels {
			c()
		}
	}
}

// Wait blocks until every launched service goroutine has returned. Used by
// Stop/Dispose so tests can verify no goroutines leak past shutdown.
func (s *Supervisor) Wait() error {
	return s.eg.Wait()
}
