// Package handler exposes the storefront HTTP API: auth, catalog and orders.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/microshop/internal/domain/order"
	"github.com/xenking/microshop/internal/domain/product"
	"github.com/xenking/microshop/internal/domain/user"
	"github.com/xenking/microshop/internal/token"
)

// Handler wires the domain services to the HTTP surface.
type Handler struct {
	products product.Repository
	orders   *order.Service
	accounts *user.Service
	tokens   *token.Issuer
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	orders *order.Service,
	accounts *user.Service,
	tokens *token.Issuer,
) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		accounts: accounts,
		tokens:   tokens,
	}
}

// Routes builds the API router. Everything is mounted under /api by the
// server mux.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/register", h.register)
	r.Get("/auth/verify", h.verifyEmail)
	r.Post("/auth/verify", h.verifyEmail)
	r.Post("/auth/login", h.login)

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)

		r.Get("/auth/me", h.me)

		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/pay", h.payOrder)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/admin/products", h.adminListProducts)
			r.Post("/admin/products", h.adminCreateProduct)
			r.Patch("/admin/products/{id}", h.adminUpdateProduct)
			r.Delete("/admin/products/{id}", h.adminDeleteProduct)
		})
	})

	return r
}
