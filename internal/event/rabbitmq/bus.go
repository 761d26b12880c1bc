// Package rabbitmq implements the event bus contract on top of an AMQP 0.9.1
// broker: a durable topic exchange, persistent messages, and durable queues
// with at-least-once delivery.
package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xenking/microshop/internal/event"
)

// DefaultPrefetch bounds the number of unacknowledged in-flight deliveries a
// consumer accepts at once, so a slow handler does not buffer the queue into
// process memory.
const DefaultPrefetch = 10

const reconnectDelay = 3 * time.Second

// Bus is an AMQP-backed event bus. A single Bus may be shared by concurrent
// publishers: the connection is guarded, and every publish runs on its own
// short-lived channel so no channel state is shared across callers.
type Bus struct {
	url      string
	prefetch int

	mu   sync.Mutex
	conn *amqp.Connection
}

// New creates a Bus for the given broker URL. No connection is made until the
// first publish or subscribe.
func New(url string) *Bus {
	return &Bus{
		url:      url,
		prefetch: DefaultPrefetch,
	}
}

// connection returns the shared publisher connection, dialing on first use or
// after a broker failure closed the previous one.
func (b *Bus) connection() (*amqp.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, errors.Wrap(err, "dial broker")
	}
	b.conn = conn
	return conn, nil
}

// Close shuts down the publisher connection, if any.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// Publish serializes the envelope and hands it to the topic exchange keyed by
// the envelope type. It returns once the broker has accepted the write; any
// broker failure surfaces as *event.TransportError.
func (b *Bus) Publish(ctx context.Context, env event.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	conn, err := b.connection()
	if err != nil {
		return &event.TransportError{Err: err}
	}

	ch, err := conn.Channel()
	if err != nil {
		return &event.TransportError{Err: errors.Wrap(err, "open channel")}
	}
	defer ch.Close()

	if err := declareExchange(ch); err != nil {
		return &event.TransportError{Err: err}
	}

	err = ch.PublishWithContext(ctx, event.Exchange, env.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Body:         body,
	})
	if err != nil {
		return &event.TransportError{Err: errors.Wrap(err, "publish")}
	}
	return nil
}

// Subscribe declares (or attaches to) a durable queue bound to the given
// event types and consumes it until ctx is canceled. The subscriber owns its
// connection; broker failures trigger reconnection with a fixed delay.
//
// Acknowledgement policy: handler nil → ack; handler error marked
// event.Permanent → ack and drop (logged); any other handler error → nack
// with requeue, so the broker redelivers.
func (b *Bus) Subscribe(ctx context.Context, queue string, bindings []string, h event.Handler) error {
	lg := zctx.From(ctx).With(zap.String("queue", queue))

	for {
		err := b.consume(ctx, queue, bindings, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lg.Warn("Consumer disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("delay", reconnectDelay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// consume runs a single consumer session: one connection, one channel, one
// delivery loop. It returns when the broker closes the session or ctx ends.
func (b *Bus) consume(ctx context.Context, queue string, bindings []string, h event.Handler) error {
	lg := zctx.From(ctx).With(zap.String("queue", queue))

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return errors.Wrap(err, "dial broker")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	if err := declareExchange(ch); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare queue %s", queue)
	}
	for _, key := range bindings {
		if err := ch.QueueBind(queue, key, event.Exchange, false, nil); err != nil {
			return errors.Wrapf(err, "bind %s", key)
		}
	}
	if err := ch.Qos(b.prefetch, 0, false); err != nil {
		return errors.Wrap(err, "set prefetch")
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}

	lg.Info("Consuming", zap.Strings("bindings", bindings))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			b.dispatch(ctx, lg, d, h)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, lg *zap.Logger, d amqp.Delivery, h event.Handler) {
	var env event.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		// Not even an envelope. Requeueing cannot fix it; drop.
		lg.Error("Dropping undecodable message",
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
		_ = d.Ack(false)
		return
	}
	if env.Type == "" {
		env.Type = d.RoutingKey
	}

	err := h(ctx, env)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case event.IsPermanent(err):
		lg.Error("Dropping message after permanent failure",
			zap.String("event_type", env.Type),
			zap.String("event_id", env.ID),
			zap.Error(err),
		)
		_ = d.Ack(false)
	default:
		lg.Warn("Requeueing message after transient failure",
			zap.String("event_type", env.Type),
			zap.String("event_id", env.ID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		_ = d.Nack(false, true)
	}
}

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(event.Exchange, "topic", true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare exchange %s", event.Exchange)
	}
	return nil
}

var (
	_ event.Publisher  = (*Bus)(nil)
	_ event.Subscriber = (*Bus)(nil)
)
