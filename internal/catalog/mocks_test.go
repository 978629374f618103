package catalog

import (
	"context"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type mockBackend struct {
	products  []domain.Product
	product   *domain.Product
	orders    []domain.Order
	err       error
	listCalls atomic.Int32
	gate      chan struct{}
	deleted   []string
}

func (m *mockBackend) ListProducts(context.Context) ([]domain.Product, error) {
	m.listCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	return m.products, m.err
}

func (m *mockBackend) GetProduct(context.Context, string) (*domain.Product, error) {
	return m.product, m.err
}

func (m *mockBackend) CreateProduct(context.Context) (*domain.Product, error) {
	return &domain.Product{ID: "new", Name: "Sample name"}, m.err
}

func (m *mockBackend) UpdateProduct(_ context.Context, id string, p domain.Product) (*domain.Product, error) {
	p.ID = id
	return &p, m.err
}

func (m *mockBackend) DeleteProduct(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockBackend) MyOrders(context.Context) ([]domain.Order, error) {
	return m.orders, m.err
}

func (m *mockBackend) AllOrders(context.Context) ([]domain.Order, error) {
	return m.orders, m.err
}
