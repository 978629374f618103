package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/catalog"
)

type OrdersHandler struct {
	catalog *catalog.Service
	timeout time.Duration
}

func NewOrdersHandler(c *catalog.Service, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		catalog: c,
		timeout: timeout,
	}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	if !st.Auth.IsAuthenticated() {
		handleError(w, r, auth.ErrNotAuthenticated)
		return
	}
	orders, err := h.catalog.MyOrders(st.Auth.Context(ctx))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}
