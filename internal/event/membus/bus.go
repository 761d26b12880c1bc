// Package membus is an in-process event bus implementing the same contract
// and acknowledgement semantics as the AMQP transport. It backs tests and the
// broker-less development mode: queues live in memory, and an envelope
// published with no matching binding is dropped, exactly like a topic
// exchange with no bound queues.
package membus

import (
	"context"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/microshop/internal/event"
)

const queueDepth = 1024

// DefaultMaxAttempts bounds in-place redelivery of a transiently failing
// message. A real broker redelivers indefinitely; in process we cap the loop
// so a poison message cannot wedge the subscriber.
const DefaultMaxAttempts = 5

type subscription struct {
	queue string
	types map[string]struct{}
	ch    chan event.Envelope
}

// Bus is an in-memory topic bus. Safe for concurrent use.
type Bus struct {
	maxAttempts int

	mu   sync.RWMutex
	subs []*subscription
}

// Option configures a Bus.
type Option func(*Bus)

// WithMaxAttempts overrides the per-message delivery attempt cap.
func WithMaxAttempts(n int) Option {
	return func(b *Bus) { b.maxAttempts = n }
}

// New creates an empty in-memory bus.
func New(opts ...Option) *Bus {
	b := &Bus{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish routes the envelope to every queue bound to its type. It never
// blocks indefinitely: a full queue surfaces as a transport error, mirroring
// a broker rejecting the write.
func (b *Bus) Publish(_ context.Context, env event.Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if _, ok := sub.types[env.Type]; !ok {
			continue
		}
		select {
		case sub.ch <- env:
		default:
			return &event.TransportError{Err: errQueueFull(sub.queue)}
		}
	}
	return nil
}

// Subscribe binds a queue to the given event types and processes deliveries
// until ctx is canceled. Redelivery after a transient handler error happens
// in place, up to the attempt cap; permanent errors drop the message.
func (b *Bus) Subscribe(ctx context.Context, queue string, bindings []string, h event.Handler) error {
	sub := &subscription{
		queue: queue,
		types: make(map[string]struct{}, len(bindings)),
		ch:    make(chan event.Envelope, queueDepth),
	}
	for _, t := range bindings {
		sub.types[t] = struct{}{}
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	defer b.unsubscribe(sub)

	lg := zctx.From(ctx).With(zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-sub.ch:
			b.deliver(ctx, lg, env, h)
		}
	}
}

// unsubscribe detaches a finished subscription so Publish stops routing
// into its queue.
func (b *Bus) unsubscribe(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) deliver(ctx context.Context, lg *zap.Logger, env event.Envelope, h event.Handler) {
	for attempt := 1; ; attempt++ {
		err := h(ctx, env)
		switch {
		case err == nil:
			return
		case event.IsPermanent(err):
			lg.Error("Dropping message after permanent failure",
				zap.String("event_type", env.Type),
				zap.String("event_id", env.ID),
				zap.Error(err),
			)
			return
		case b.maxAttempts > 0 && attempt >= b.maxAttempts:
			lg.Error("Dropping message after attempt cap",
				zap.String("event_type", env.Type),
				zap.String("event_id", env.ID),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

type errQueueFull string

func (e errQueueFull) Error() string { return "queue " + string(e) + " is full" }

var (
	_ event.Publisher  = (*Bus)(nil)
	_ event.Subscriber = (*Bus)(nil)
)
