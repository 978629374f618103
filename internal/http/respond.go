package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20

type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Details  string            `json:"details,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError maps domain and backend errors to HTTP responses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *checkout.ValidationError
		submissionErr *checkout.SubmissionError
		paymentErr    *payment.Error
		authErr       *auth.Error
		fetchErr      *catalog.FetchError
		apiErr        *api.Error
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "please fill in all fields",
			Code:   "validation_failed",
			Fields: validationErr.Fields,
		})
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:    err.Error(),
			Code:     "empty_cart",
			Redirect: checkout.RedirectShop,
		})
	case errors.As(err, &authErr):
		respondError(w, http.StatusUnauthorized, "auth_failed", authErr.Message)
	case errors.Is(err, checkout.ErrUnauthenticated),
		errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, api.ErrUnauthorized):
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:    "please sign in",
			Code:     "unauthenticated",
			Redirect: loginRedirect(r),
		})
	case errors.Is(err, checkout.ErrIllegalTransition), errors.Is(err, checkout.ErrCompleted):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", err.Error())
	case errors.Is(err, checkout.ErrPaymentSetup):
		respondError(w, http.StatusBadGateway, "payment_setup_failed", "Failed to initialize payment")
	case errors.As(err, &paymentErr):
		respondError(w, http.StatusPaymentRequired, "payment_failed", paymentErr.Error())
	case errors.As(err, &submissionErr):
		respondError(w, http.StatusUnprocessableEntity, "order_rejected", submissionErr.Message)
	case errors.As(err, &fetchErr):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   fetchErr.Message,
			Code:    "fetch_failed",
			Details: api.Message(fetchErr.Err, ""),
		})
	case errors.As(err, &apiErr):
		handleAPIError(w, apiErr)
	case errors.Is(err, api.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "backend unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func handleAPIError(w http.ResponseWriter, err *api.Error) {
	var code string
	status := err.StatusCode
	switch status {
	case http.StatusBadRequest:
		code = "invalid_argument"
	case http.StatusForbidden:
		code = "permission_denied"
	case http.StatusNotFound:
		code = "not_found"
	case http.StatusConflict:
		code = "already_exists"
	case http.StatusTooManyRequests:
		code = "rate_limit_exceeded"
	default:
		status = http.StatusBadGateway
		code = "backend_error"
	}
	respondError(w, status, code, api.Message(err, http.StatusText(err.StatusCode)))
}

// loginRedirect sends the shopper to login and back to the page behind the
// requested API path.
func loginRedirect(r *http.Request) string {
	page, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, apiPrefix+"/"), "/")
	switch page {
	case "checkout":
		return checkout.RedirectLogin
	case "auth":
		page = "profile"
	case "":
		return "/login"
	}
	return "/login?redirect=/" + page
}
