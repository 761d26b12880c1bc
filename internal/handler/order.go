package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/microshop/internal/domain/order"
	"github.com/xenking/microshop/internal/identity"
	"github.com/xenking/microshop/internal/pricing"
)

type cartLineRequest struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type createOrderRequest struct {
	Items []cartLineRequest `json:"items"`
}

type orderLineResponse struct {
	ProductID int64           `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderResponse struct {
	ID     int64               `json:"id"`
	Status string              `json:"status"`
	Total  decimal.Decimal     `json:"total"`
	Items  []orderLineResponse `json:"items"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = orderLineResponse{
			ProductID: l.ProductID,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
		}
	}
	return orderResponse{
		ID:     o.ID,
		Status: string(o.Status),
		Total:  o.Total,
		Items:  items,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cart := make([]order.CartLine, len(req.Items))
	for i, item := range req.Items {
		cart[i] = order.CartLine{ProductID: item.ProductID, Qty: item.Qty}
	}

	o, err := h.orders.Create(r.Context(), id, cart)
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Get(r.Context(), id, orderID)
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Pay(r.Context(), id, orderID)
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// mapOrderError converts saga errors to HTTP responses.
//
// A creation failure after the order row committed can leave a CREATED order
// with some lines attached and no finalized total; the non-2xx response here
// means "the order may exist, re-fetch by id", not "nothing happened".
func mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyCart) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "order not found")
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, r, http.StatusBadRequest, iqErr.Error())
		return
	}

	var itErr *order.InvalidTransitionError
	if errors.As(err, &itErr) {
		writeError(w, r, http.StatusConflict, itErr.Error())
		return
	}

	var puErr *pricing.UnavailableError
	if errors.As(err, &puErr) {
		writeError(w, r, http.StatusBadGateway, puErr.Error())
		return
	}

	internalError(w, r, err)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
