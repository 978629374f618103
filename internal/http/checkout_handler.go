package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	backend  checkout.Backend
	notifier checkout.OrderNotifier
	// confirmer replaces the browser's card result when set (demo mode).
	confirmer payment.Confirmer
	logger    *zap.Logger
	timeout   time.Duration
}

func NewCheckoutHandler(backend checkout.Backend, notifier checkout.OrderNotifier, confirmer payment.Confirmer, logger *zap.Logger, timeout time.Duration) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{
		backend:   backend,
		notifier:  notifier,
		confirmer: confirmer,
		logger:    logger,
		timeout:   timeout,
	}
}

type PaymentMethodRequestDTO struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

// PlaceOrderRequestDTO carries what the hosted card element returned in the
// browser. Both fields are empty for PayPal.
type PlaceOrderRequestDTO struct {
	PaymentResult *payment.Confirmation `json:"paymentResult"`
	PaymentError  string                `json:"paymentError"`
}

type PlaceOrderResponseDTO struct {
	Order    *domain.Order `json:"order"`
	Redirect string        `json:"redirect"`
}

// flow returns the open checkout of the session, starting one if needed.
func (h *CheckoutHandler) flow(st *session.State) (*checkout.Flow, error) {
	if f := st.Flow(); f != nil {
		return f, nil
	}
	f, err := checkout.Start(st.Cart, st.Auth, h.backend, h.notifier, h.logger)
	if err != nil {
		return nil, err
	}
	st.SetFlow(f)
	return f, nil
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	f, err := h.flow(stateFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, f.View())
}

// POST /api/v1/checkout/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	f, err := h.flow(stateFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var addr domain.ShippingAddress
	if !decodeJSON(w, r, &addr) {
		return
	}
	if err := f.SubmitShipping(r.Context(), addr); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, f.View())
}

// POST /api/v1/checkout/payment
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f, err := h.flow(stateFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req PaymentMethodRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := f.SubmitPayment(ctx, req.PaymentMethod); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, f.View())
}

// POST /api/v1/checkout/edit/{step}
func (h *CheckoutHandler) Edit(w http.ResponseWriter, r *http.Request) {
	f, err := h.flow(stateFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	step, ok := checkout.ParseStep(chi.URLParam(r, "step"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_step", "unknown checkout step")
		return
	}
	if err := f.Edit(step); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, f.View())
}

// POST /api/v1/checkout/place-order
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r.Context())
	f, err := h.flow(st)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req PlaceOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	confirmer := h.confirmer
	if confirmer == nil {
		confirmer = payment.FromClientResult(req.PaymentResult, req.PaymentError)
	}

	// Submission is not abandoned when the shopper disconnects.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	res, err := f.PlaceOrder(ctx, confirmer)
	if err != nil {
		handleError(w, r, err)
		return
	}
	st.SetFlow(nil)
	respondJSON(w, http.StatusCreated, PlaceOrderResponseDTO{
		Order:    res.Order,
		Redirect: res.Redirect,
	})
}
