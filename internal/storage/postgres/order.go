package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/microshop/internal/domain/order"
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL. Every method is a
// single-statement commit, which gives the saga the per-order, per-line
// durability granularity it relies on.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts the order row and fills in the generated id.
func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO orders (user_id, user_email, status, total)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		o.UserID, o.UserEmail, string(o.Status), o.Total,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}
	return nil
}

// AppendLine attaches one line to an existing order.
func (s *OrderStore) AppendLine(ctx context.Context, orderID int64, l order.Line) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO order_lines (order_id, product_id, qty, unit_price)
		 VALUES ($1, $2, $3, $4)`,
		orderID, l.ProductID, l.Qty, l.UnitPrice,
	)
	if err != nil {
		return errors.Wrapf(err, "insert line for order %d", orderID)
	}
	return nil
}

// SetTotal writes the finalized total.
func (s *OrderStore) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET total = $2 WHERE id = $1`,
		orderID, total,
	)
	if err != nil {
		return errors.Wrapf(err, "update total for order %d", orderID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SetStatus writes a new lifecycle status.
func (s *OrderStore) SetStatus(ctx context.Context, orderID int64, st order.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		orderID, string(st),
	)
	if err != nil {
		return errors.Wrapf(err, "update status for order %d", orderID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetForUser fetches an order with its lines, scoped to the owning user.
func (s *OrderStore) GetForUser(ctx context.Context, orderID, userID int64) (*order.Order, error) {
	var o order.Order
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, user_email, status, total, created_at
		 FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	).Scan(&o.ID, &o.UserID, &o.UserEmail, &status, &o.Total, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", orderID)
	}
	o.Status = order.Status(status)

	rows, err := s.pool.Query(ctx,
		`SELECT product_id, qty, unit_price
		 FROM order_lines WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "get lines for order %d", orderID)
	}
	defer rows.Close()

	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ProductID, &l.Qty, &l.UnitPrice); err != nil {
			return nil, errors.Wrap(err, "scan line")
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate lines")
	}

	return &o, nil
}
