package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ProductReader looks up a product for add-to-cart.
type ProductReader interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CartHandler struct {
	products ProductReader
	timeout  time.Duration
}

func NewCartHandler(products ProductReader, timeout time.Duration) *CartHandler {
	return &CartHandler{
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"qty"`
}

// UpdateQuantityRequestDTO sets Quantity, or moves it by Delta when set.
type UpdateQuantityRequestDTO struct {
	Quantity int `json:"qty"`
	Delta    int `json:"delta"`
}

type CartResponseDTO struct {
	Items           []domain.CartLineItem   `json:"cartItems"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   domain.PaymentMethod    `json:"paymentMethod"`
	Count           int                     `json:"count"`
	ItemsPrice      float64                 `json:"itemsPrice"`
	ShippingPrice   float64                 `json:"shippingPrice"`
	TaxPrice        float64                 `json:"taxPrice"`
	TotalPrice      float64                 `json:"totalPrice"`
}

func cartResponse(c *cart.Store) CartResponseDTO {
	snap := c.Snapshot()
	resp := CartResponseDTO{
		Items:         c.Items(),
		PaymentMethod: c.PaymentMethod(),
		Count:         c.Count(),
		ItemsPrice:    snap.Subtotal,
		ShippingPrice: snap.Shipping,
		TaxPrice:      snap.Tax,
		TotalPrice:    snap.Total,
	}
	if addr, ok := c.ShippingAddress(); ok {
		resp.ShippingAddress = &addr
	}
	return resp
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(st.Cart))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, err := h.products.Get(ctx, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !product.InStock() {
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
		return
	}
	if req.Quantity < 1 || req.Quantity > product.CountInStock {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "qty must be between 1 and the available stock")
		return
	}

	if err := st.Cart.AddItem(ctx, *product, req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(st.Cart))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r.Context())
	productID := chi.URLParam(r, "product_id")

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	var q int
	switch {
	case req.Delta > 0:
		q = st.Cart.Increment(r.Context(), productID)
	case req.Delta < 0:
		q = st.Cart.Decrement(r.Context(), productID)
	default:
		q = st.Cart.UpdateQuantity(r.Context(), productID, req.Quantity)
	}
	if q == 0 {
		respondError(w, http.StatusNotFound, "not_found", "product is not in the cart")
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(st.Cart))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r.Context())
	st.Cart.RemoveItem(r.Context(), chi.URLParam(r, "product_id"))
	respondJSON(w, http.StatusOK, cartResponse(st.Cart))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r.Context())
	st.Cart.Clear(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(st.Cart))
}
