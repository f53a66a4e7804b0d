package production

import "context"

// ChannelPublisher forwards fired transitions to a Go channel, non-blocking
// with drop-on-backpressure. Grounded on teacher production.ChannelPublisher,
// generalized from primitives.Event/core.MachineMetadata to PublishedEvent.
type ChannelPublisher struct {
	ch chan<- PublishedEvent
}

// NewChannelPublisher creates a ChannelPublisher writing to ch.
func NewChannelPublisher(ch chan<- PublishedEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// Publish implements EventPublisher.
func (p *ChannelPublisher) Publish(ctx context.Context, ev PublishedEvent) error {
	select {
	case p.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil // non-blocking drop, matches teacher's backpressure policy
	}
}

// Close implements EventPublisher.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
