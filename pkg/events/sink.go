package events

import "context"

// Sink receives lifecycle events. Implementations must not block the
// caller beyond what the context allows; slow transports buffer or drop.
type Sink interface {
	// Publish delivers one event.
	Publish(ctx context.Context, event Event) error

	// Close flushes and releases the sink.
	Close() error
}
