package event

import (
	"context"
	"fmt"
)

// Publisher hands envelopes to the bus. Publish returns once the broker has
// durably accepted the message; a TransportError means the broker was
// unreachable or rejected the write, and the caller decides whether to retry,
// drop, or surface the failure.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Handler processes one delivered envelope. Returning nil acknowledges the
// message and removes it from the queue. Returning an error wrapped with
// Permanent acknowledges and drops it; any other error requeues it for
// redelivery. Delivery is at-least-once: handlers must tolerate duplicates.
type Handler func(ctx context.Context, env Envelope) error

// Subscriber attaches a durable queue to one or more event types and runs the
// handler until the context is canceled.
type Subscriber interface {
	Subscribe(ctx context.Context, queue string, bindings []string, h Handler) error
}

// TransportError reports a broker-level publish failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("event transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
