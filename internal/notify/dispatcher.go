// Package notify consumes bus events and turns each into exactly one
// outbound email, tolerating malformed and unknown events without taking the
// consumer loop down.
package notify

import (
	"context"
	"fmt"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/microshop/internal/event"
)

// Queue is the durable queue this consumer owns on the bus.
const Queue = "notifications"

// Bindings lists the event types routed to the notification queue.
var Bindings = []string{
	event.TypeUserRegistered,
	event.TypePaymentSucceeded,
}

// Dispatcher maps event types to email side effects.
//
// Error contract: a decode or missing-field failure is permanent (the bus
// acks and drops the message); a mailer failure is transient and propagates
// so the bus redelivers. Unknown event types are logged and acked — other
// consumers may own them.
type Dispatcher struct {
	mailer Mailer
	seen   *Seen
}

// NewDispatcher creates a Dispatcher. seen may be nil to disable duplicate
// suppression.
func NewDispatcher(mailer Mailer, seen *Seen) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		seen:   seen,
	}
}

// Handle processes one delivered envelope. It is the event.Handler bound to
// the notification queue.
func (d *Dispatcher) Handle(ctx context.Context, env event.Envelope) error {
	lg := zctx.From(ctx).With(
		zap.String("event_type", env.Type),
		zap.String("event_id", env.ID),
	)

	// Delivery is at-least-once; suppress envelope ids we have already
	// mailed so retried publishes do not double-mail the customer.
	if d.seen != nil && env.ID != "" && d.seen.Has(env.ID) {
		lg.Info("Skipping duplicate delivery")
		return nil
	}

	var err error
	switch env.Type {
	case event.TypeUserRegistered:
		err = d.userRegistered(ctx, env)
	case event.TypePaymentSucceeded:
		err = d.paymentSucceeded(ctx, env)
	default:
		lg.Info("Ignoring unknown event type")
		return nil
	}
	if err != nil {
		return err
	}

	// Record only after the mail went out. A transient failure must leave
	// the id unrecorded so the bus's redelivery is handled, not skipped.
	if d.seen != nil && env.ID != "" {
		d.seen.Add(env.ID)
	}
	return nil
}

func (d *Dispatcher) userRegistered(ctx context.Context, env event.Envelope) error {
	p, err := event.DecodeUserRegistered(env)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, Email{
		To:      p.Email,
		Subject: "Verify your MicroShop account",
		HTML: fmt.Sprintf(
			"<h3>Welcome to MicroShop</h3><p>Please verify your email:</p><p><a href='%s'>%s</a></p>",
			p.VerifyURL, p.VerifyURL,
		),
	})
}

func (d *Dispatcher) paymentSucceeded(ctx context.Context, env event.Envelope) error {
	p, err := event.DecodePaymentSucceeded(env)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, Email{
		To:      p.Email,
		Subject: "Payment confirmed - MicroShop",
		HTML: fmt.Sprintf(
			"<h3>Payment successful</h3><p>Order <b>#%d</b> is paid.</p><p>Total: <b>$%s</b></p>",
			p.OrderID, p.Total.StringFixed(2),
		),
	})
}
