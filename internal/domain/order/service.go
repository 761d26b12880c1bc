package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/microshop/internal/event"
	"github.com/xenking/microshop/internal/identity"
)

// Service coordinates the order saga: creation combines synchronous price
// lookups with per-step persistence; payment is a guarded status flip
// followed by a best-effort event publish.
type Service struct {
	store  Store
	prices PriceSource
	bus    event.Publisher
}

// NewService creates an order Service.
func NewService(store Store, prices PriceSource, bus event.Publisher) *Service {
	return &Service{
		store:  store,
		prices: prices,
		bus:    bus,
	}
}

// Create turns a cart into a persisted, priced order.
//
// The order row is committed first, before any remote call, so a later
// pricing failure leaves a visible order instead of losing the attempt.
// Lines are priced and attached sequentially in cart order; the first failure
// aborts the loop and surfaces to the caller, and lines already attached stay
// committed with the total never finalized. There is no compensating
// rollback: callers seeing an error must re-fetch by id rather than assume
// nothing happened.
func (s *Service) Create(ctx context.Context, who identity.Identity, cart []CartLine) (*Order, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	o := &Order{
		UserID:    who.UserID,
		UserEmail: who.Email,
		Status:    StatusCreated,
		Total:     decimal.Zero,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	total := decimal.Zero
	for _, item := range cart {
		if item.Qty <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}

		price, err := s.prices.UnitPrice(ctx, item.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "price product %d", item.ProductID)
		}

		line := Line{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			UnitPrice: price,
		}
		if err := s.store.AppendLine(ctx, o.ID, line); err != nil {
			return nil, errors.Wrapf(err, "append line for product %d", item.ProductID)
		}

		o.Lines = append(o.Lines, line)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}

	total = total.Round(2)
	if err := s.store.SetTotal(ctx, o.ID, total); err != nil {
		return nil, errors.Wrap(err, "finalize total")
	}
	o.Total = total

	return o, nil
}

// Pay transitions an order from CREATED to PAID and announces it on the bus.
//
// Paying an order already in PAID is a no-op returning the current state, so
// a retried payment request stays idempotent. Any other status fails with
// InvalidTransitionError. The payment.succeeded publish is best effort: if
// the status commit succeeds but the publish fails, the failure is logged and
// the payment still succeeds (accepted notification gap, no outbox).
func (s *Service) Pay(ctx context.Context, who identity.Identity, orderID int64) (*Order, error) {
	o, err := s.store.GetForUser(ctx, orderID, who.UserID)
	if err != nil {
		return nil, err
	}

	switch o.Status {
	case StatusPaid:
		return o, nil
	case StatusCreated:
	default:
		return nil, &InvalidTransitionError{Current: o.Status}
	}

	if err := s.store.SetStatus(ctx, o.ID, StatusPaid); err != nil {
		return nil, errors.Wrap(err, "set status")
	}
	o.Status = StatusPaid

	env, err := event.NewPaymentSucceeded(event.PaymentSucceeded{
		Email:   o.UserEmail,
		OrderID: o.ID,
		Total:   o.Total,
	})
	if err == nil {
		err = s.bus.Publish(ctx, env)
	}
	if err != nil {
		zctx.From(ctx).Error("Payment event not published",
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
	}

	return o, nil
}

// Get fetches an order with its lines, scoped to the owning user.
func (s *Service) Get(ctx context.Context, who identity.Identity, orderID int64) (*Order, error) {
	return s.store.GetForUser(ctx, orderID, who.UserID)
}
