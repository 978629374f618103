// Package catalog serves product and admin views backed by the backend API.
package catalog

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend is the product and order surface of the backend API.
type Backend interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	MyOrders(ctx context.Context) ([]domain.Order, error)
	AllOrders(ctx context.Context) ([]domain.Order, error)
}

// FetchError is a failed read shown inline on the page that asked for it.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }
func (e *FetchError) Unwrap() error { return e.Err }

type Service struct {
	backend Backend
	logger  *zap.Logger
	sfg     singleflight.Group // collapses identical concurrent fetches
}

func NewService(backend Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	v, err, shared := s.sfg.Do("products", func() (interface{}, error) {
		return s.backend.ListProducts(ctx)
	})
	if err != nil {
		s.logger.Warn("product list fetch failed", zap.Error(err))
		return nil, &FetchError{Message: "Failed to load products", Err: err}
	}
	if shared {
		s.logger.Debug("product list fetch shared")
	}
	products := v.([]domain.Product)
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	v, err, _ := s.sfg.Do("product:"+id, func() (interface{}, error) {
		return s.backend.GetProduct(ctx, id)
	})
	if err != nil {
		s.logger.Warn("product fetch failed", zap.String("product_id", id), zap.Error(err))
		return nil, &FetchError{Message: "Failed to load product", Err: err}
	}
	p := *v.(*domain.Product)
	return &p, nil
}

// MyOrders lists the orders of the shopper whose token rides on ctx.
func (s *Service) MyOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.backend.MyOrders(ctx)
	if err != nil {
		return nil, &FetchError{Message: "Failed to load orders", Err: err}
	}
	return orders, nil
}

// AllOrders is the admin order list together with the revenue of paid orders.
func (s *Service) AllOrders(ctx context.Context) ([]domain.Order, float64, error) {
	orders, err := s.backend.AllOrders(ctx)
	if err != nil {
		return nil, 0, &FetchError{Message: "Failed to load orders", Err: err}
	}
	return orders, domain.Revenue(orders), nil
}

// Create asks the backend for a new placeholder product.
func (s *Service) Create(ctx context.Context) (*domain.Product, error) {
	p, err := s.backend.CreateProduct(ctx)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created", zap.String("product_id", p.Key()))
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, product domain.Product) (*domain.Product, error) {
	p, err := s.backend.UpdateProduct(ctx, id, product)
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	s.sfg.Forget("product:" + id)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	s.sfg.Forget("product:" + id)
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}
