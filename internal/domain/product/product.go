package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist or is not
// published to the storefront.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item. Price is the current catalog price;
// orders snapshot it at creation time and never read it back.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Published   bool
}

// Update carries a partial admin update. Nil fields are left untouched.
type Update struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Published   *bool
}

// Repository defines catalog persistence. The storefront reads only
// published products; the admin surface sees everything.
type Repository interface {
	ListPublished(ctx context.Context) ([]Product, error)
	GetPublished(ctx context.Context, id int64) (*Product, error)

	ListAll(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id int64, upd Update) (*Product, error)
	Delete(ctx context.Context, id int64) error
}
