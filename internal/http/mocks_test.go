package http

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// fakeAPI stands in for the backend REST API.
type fakeAPI struct {
	mu       sync.Mutex
	products map[string]domain.Product
	user     domain.User
	password string

	intentErr error
	orderErr  error
	orders    []domain.OrderRequest
	tokens    []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		products: map[string]domain.Product{
			"p1": {ID: "p1", Name: "Mouse", Price: 40, CountInStock: 5, Image: "/m.jpg"},
			"p2": {ID: "p2", Name: "Monitor", Price: 150, CountInStock: 2},
			"p3": {ID: "p3", Name: "Cable", Price: 5, CountInStock: 0},
		},
		user:     domain.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		password: "secret",
	}
}

func (f *fakeAPI) ListProducts(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeAPI) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, &api.Error{StatusCode: 404, Message: "Product not found"}
	}
	return &p, nil
}

func (f *fakeAPI) CreateProduct(context.Context) (*domain.Product, error) {
	p := domain.Product{ID: "p-new", Name: "Sample name"}
	f.mu.Lock()
	f.products[p.ID] = p
	f.mu.Unlock()
	return &p, nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, id string, p domain.Product) (*domain.Product, error) {
	p.ID = id
	f.mu.Lock()
	f.products[id] = p
	f.mu.Unlock()
	return &p, nil
}

func (f *fakeAPI) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	delete(f.products, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) MyOrders(ctx context.Context) ([]domain.Order, error) {
	if api.TokenFrom(ctx) == "" {
		return nil, &api.Error{StatusCode: 401}
	}
	return []domain.Order{{ID: "o1", TotalPrice: 102, IsPaid: true}}, nil
}

func (f *fakeAPI) AllOrders(context.Context) ([]domain.Order, error) {
	return []domain.Order{
		{ID: "o1", TotalPrice: 102, IsPaid: true},
		{ID: "o2", TotalPrice: 50},
	}, nil
}

func (f *fakeAPI) Login(_ context.Context, creds api.Credentials) (*domain.AuthResponse, error) {
	if creds.Email != f.user.Email || creds.Password != f.password {
		return nil, &api.Error{StatusCode: 401, Message: "Invalid email or password"}
	}
	return &domain.AuthResponse{User: f.user, Token: "token-" + f.user.ID}, nil
}

func (f *fakeAPI) Register(_ context.Context, req api.RegisterRequest) (*domain.AuthResponse, error) {
	u := domain.User{ID: "u2", FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	return &domain.AuthResponse{User: u, Token: "token-u2"}, nil
}

func (f *fakeAPI) Profile(ctx context.Context) (*domain.User, error) {
	if api.TokenFrom(ctx) == "" {
		return nil, &api.Error{StatusCode: 401}
	}
	u := f.user
	return &u, nil
}

func (f *fakeAPI) CreatePaymentIntent(context.Context, float64) (*api.PaymentIntent, error) {
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return &api.PaymentIntent{ClientSecret: "pi_1_secret_abc"}, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, order domain.OrderRequest) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	f.tokens = append(f.tokens, api.TokenFrom(ctx))
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &domain.Order{ID: "o-new", TotalPrice: order.TotalPrice, OrderItems: order.OrderItems}, nil
}
