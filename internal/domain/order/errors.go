package order

import "fmt"

// Sentinel errors for order operations.
var (
	ErrEmptyCart = fmt.Errorf("cart is empty")
	ErrNotFound  = fmt.Errorf("order not found")
)

// InvalidQuantityError indicates a cart line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %d", e.ProductID)
}

// InvalidTransitionError indicates a payment attempt on an order whose
// current status forbids it.
type InvalidTransitionError struct {
	Current Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot pay order in status %s", e.Current)
}
