package api

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*domain.AuthResponse, error) {
	var res domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, "users/login", creds, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*domain.AuthResponse, error) {
	var res domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, "users", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, "users/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
