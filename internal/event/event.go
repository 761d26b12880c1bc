// Package event defines the envelope and typed payloads carried by the
// microshop event bus, plus the publish/consume contracts implemented by the
// transports in the sub-packages.
package event

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Exchange is the single durable topic exchange shared by all producers and
// consumers in the system. Routing uses the envelope type as the topic key.
const Exchange = "microshop.events"

// Event types routed through the bus.
const (
	TypeUserRegistered   = "user.registered"
	TypePaymentSucceeded = "payment.succeeded"
)

// Envelope is the wire unit of the bus: a type tag and a payload whose shape
// is a private contract between producer and consumers keyed by the type.
// The bus itself never validates the payload schema.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// UserRegistered is published by the auth service after a successful
// registration. The notification consumer mails the verification link.
type UserRegistered struct {
	Email     string `json:"email"`
	VerifyURL string `json:"verify_url"`
}

// PaymentSucceeded is published by the order service after an order
// transitions to PAID.
type PaymentSucceeded struct {
	Email   string          `json:"email"`
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

// NewUserRegistered wraps a UserRegistered payload in an addressed envelope.
func NewUserRegistered(p UserRegistered) (Envelope, error) {
	return seal(TypeUserRegistered, p)
}

// NewPaymentSucceeded wraps a PaymentSucceeded payload in an addressed envelope.
func NewPaymentSucceeded(p PaymentSucceeded) (Envelope, error) {
	return seal(TypePaymentSucceeded, p)
}

func seal(eventType string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "marshal %s payload", eventType)
	}
	return Envelope{
		ID:      uuid.New().String(),
		Type:    eventType,
		Payload: body,
	}, nil
}

// DecodeUserRegistered decodes and validates a user.registered payload.
// A missing required field is a permanent failure: the payload contract is
// broken and redelivery cannot fix it.
func DecodeUserRegistered(env Envelope) (UserRegistered, error) {
	var p UserRegistered
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, Permanent(errors.Wrap(err, "decode user.registered"))
	}
	if p.Email == "" {
		return p, Permanent(errors.New("user.registered: missing email"))
	}
	if p.VerifyURL == "" {
		return p, Permanent(errors.New("user.registered: missing verify_url"))
	}
	return p, nil
}

// DecodePaymentSucceeded decodes and validates a payment.succeeded payload.
func DecodePaymentSucceeded(env Envelope) (PaymentSucceeded, error) {
	var p PaymentSucceeded
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, Permanent(errors.Wrap(err, "decode payment.succeeded"))
	}
	if p.Email == "" {
		return p, Permanent(errors.New("payment.succeeded: missing email"))
	}
	if p.OrderID == 0 {
		return p, Permanent(errors.New("payment.succeeded: missing order_id"))
	}
	return p, nil
}
