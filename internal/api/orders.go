package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) CreateOrder(ctx context.Context, order domain.OrderRequest) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, http.MethodPost, "orders", order, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, http.MethodGet, "orders/"+url.PathEscape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, "orders/myorders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// AllOrders is the admin listing; the backend enforces the admin check.
func (c *Client) AllOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, "orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
