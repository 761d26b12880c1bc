package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	// StatusCreated is the initial state: the row exists, lines may still be
	// attaching and the total may not be finalized yet.
	StatusCreated Status = "CREATED"
	// StatusPaid is terminal: reached from CREATED exactly once.
	StatusPaid Status = "PAID"
	// StatusCancelled is terminal: reachable only from CREATED.
	StatusCancelled Status = "CANCELLED"
)

// Order is a customer order. Total equals the sum of unit_price*qty over the
// lines as of the moment the order last left CREATED unmodified; lines are
// immutable once persisted.
type Order struct {
	ID        int64
	UserID    int64
	UserEmail string
	Status    Status
	Total     decimal.Decimal
	Lines     []Line
	CreatedAt time.Time
}

// Line is a single order line. UnitPrice is a snapshot taken from the pricing
// gateway at creation time and is never recomputed, even if the catalog price
// later changes.
type Line struct {
	ProductID int64           `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CartLine is one requested product/quantity pair. Duplicate product ids in a
// cart become separate order lines; they are not merged.
type CartLine struct {
	ProductID int64
	Qty       int
}

// Store defines persistence for orders. Each operation commits independently:
// a line can be durably attached before the final total is written.
type Store interface {
	// Create persists the order row and fills in its id.
	Create(ctx context.Context, o *Order) error
	// AppendLine durably attaches one line to an existing order.
	AppendLine(ctx context.Context, orderID int64, l Line) error
	// SetTotal writes the finalized total.
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	// SetStatus writes a new lifecycle status.
	SetStatus(ctx context.Context, orderID int64, st Status) error
	// GetForUser fetches an order with its lines, scoped to the owning user.
	// Returns ErrNotFound when the order does not exist or belongs to someone
	// else.
	GetForUser(ctx context.Context, orderID, userID int64) (*Order, error)
}

// PriceSource resolves a product's current unit price. The saga treats every
// call as an independent remote call that can fail.
type PriceSource interface {
	UnitPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
}
