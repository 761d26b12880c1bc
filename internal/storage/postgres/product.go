package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/microshop/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, description, price, published`

// ListPublished returns storefront products, newest first.
func (r *ProductRepository) ListPublished(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE published ORDER BY id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list published products")
	}
	return scanProducts(rows)
}

// GetPublished returns a single published product by id.
func (r *ProductRepository) GetPublished(ctx context.Context, id int64) (*product.Product, error) {
	return r.get(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND published`, id)
}

// ListAll returns the entire catalog for the admin surface.
func (r *ProductRepository) ListAll(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return scanProducts(rows)
}

// Create inserts a product and fills in the generated id.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price, published)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Name, p.Description, p.Price, p.Published,
	).Scan(&p.ID)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	return nil
}

// Update applies a partial update and returns the resulting product.
func (r *ProductRepository) Update(ctx context.Context, id int64, upd product.Update) (*product.Product, error) {
	return r.get(ctx,
		`UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			price       = COALESCE($4, price),
			published   = COALESCE($5, published)
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, upd.Name, upd.Description, upd.Price, upd.Published)
}

// Delete removes a product. Order lines keep their price snapshots; there is
// no foreign key from lines back to products.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) get(ctx context.Context, query string, args ...any) (*product.Product, error) {
	var p product.Product
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]product.Product, error) {
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Published); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}
	return products, nil
}
