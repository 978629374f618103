package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
)

type AuthHandler struct {
	registry      *session.Registry
	secureCookies bool
	timeout       time.Duration
}

func NewAuthHandler(registry *session.Registry, secureCookies bool, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		registry:      registry,
		secureCookies: secureCookies,
		timeout:       timeout,
	}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponseDTO struct {
	User          *domain.User `json:"user"`
	Authenticated bool         `json:"authenticated"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	if err := st.Auth.Login(ctx, strings.TrimSpace(req.Email), req.Password); err != nil {
		handleError(w, r, err)
		return
	}
	st = h.rotate(ctx, w, st)
	respondJSON(w, http.StatusOK, UserResponseDTO{User: st.Auth.User(), Authenticated: true})
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	var req api.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	if err := st.Auth.Register(ctx, req); err != nil {
		handleError(w, r, err)
		return
	}
	st = h.rotate(ctx, w, st)
	respondJSON(w, http.StatusCreated, UserResponseDTO{User: st.Auth.User(), Authenticated: true})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r.Context())
	st.Auth.Logout(r.Context())
	st.SetFlow(nil)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	st := stateFrom(r.Context())

	user, err := st.Auth.Profile(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, UserResponseDTO{User: user, Authenticated: true})
}

// rotate issues a new session id once the shopper has signed in, so an id
// known before sign-in never carries the authenticated session.
func (h *AuthHandler) rotate(ctx context.Context, w http.ResponseWriter, st *session.State) *session.State {
	next := h.registry.Rotate(ctx, st)
	setSessionCookie(w, next.ID, h.secureCookies)
	return next
}
