package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, "products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodGet, "products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct asks the backend for a new placeholder product that an
// admin then edits.
func (c *Client) CreateProduct(ctx context.Context) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodPost, "products", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, product domain.Product) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodPut, "products/"+url.PathEscape(id), product, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "products/"+url.PathEscape(id), nil, nil)
}
