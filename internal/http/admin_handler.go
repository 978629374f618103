package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the admin pages. Routes are mounted behind AdminOnly;
// the backend enforces the same rule on every call.
type AdminHandler struct {
	catalog *catalog.Service
	timeout time.Duration
}

func NewAdminHandler(c *catalog.Service, timeout time.Duration) *AdminHandler {
	return &AdminHandler{
		catalog: c,
		timeout: timeout,
	}
}

type AdminOrdersResponseDTO struct {
	Orders  []domain.Order `json:"orders"`
	Revenue float64        `json:"revenue"`
}

// GET /api/v1/admin/orders
func (h *AdminHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	orders, revenue, err := h.catalog.AllOrders(st.Auth.Context(ctx))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AdminOrdersResponseDTO{Orders: orders, Revenue: revenue})
}

// POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	p, err := h.catalog.Create(st.Auth.Context(ctx))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	var product domain.Product
	if !decodeJSON(w, r, &product) {
		return
	}
	p, err := h.catalog.Update(st.Auth.Context(ctx), chi.URLParam(r, "id"), product)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	if err := h.catalog.Delete(st.Auth.Context(ctx), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
