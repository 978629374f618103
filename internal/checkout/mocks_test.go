package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type mockBackend struct {
	mu           sync.Mutex
	intentCalls  int
	intentAmount float64
	intentErr    error
	secret       string

	orders    []domain.OrderRequest
	keys      []string
	tokens    []string
	order     *domain.Order
	orderErr  error
	orderHook func()
}

func (m *mockBackend) CreatePaymentIntent(_ context.Context, amount float64) (*api.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentCalls++
	m.intentAmount = amount
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	return &api.PaymentIntent{ClientSecret: m.secret}, nil
}

func (m *mockBackend) CreateOrder(ctx context.Context, order domain.OrderRequest) (*domain.Order, error) {
	if m.orderHook != nil {
		m.orderHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order)
	m.keys = append(m.keys, api.IdempotencyKeyFrom(ctx))
	m.tokens = append(m.tokens, api.TokenFrom(ctx))
	if m.orderErr != nil {
		return nil, m.orderErr
	}
	return m.order, nil
}

func (m *mockBackend) intents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intentCalls
}

type mockIdentity struct {
	authenticated bool
	user          *domain.User
}

func (m *mockIdentity) IsAuthenticated() bool { return m.authenticated }
func (m *mockIdentity) User() *domain.User    { return m.user }
func (m *mockIdentity) Context(ctx context.Context) context.Context {
	return api.WithToken(ctx, "token-1")
}

type mockNotifier struct {
	orders []*domain.Order
	err    error
}

func (m *mockNotifier) OrderPlaced(_ context.Context, order *domain.Order) error {
	m.orders = append(m.orders, order)
	return m.err
}
