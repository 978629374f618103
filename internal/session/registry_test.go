package session

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopBackend struct{}

func (nopBackend) Login(context.Context, api.Credentials) (*domain.AuthResponse, error) {
	return nil, api.ErrUnauthorized
}

func (nopBackend) Register(context.Context, api.RegisterRequest) (*domain.AuthResponse, error) {
	return nil, api.ErrUnauthorized
}

func (nopBackend) Profile(context.Context) (*domain.User, error) {
	return nil, api.ErrUnauthorized
}

func TestGet_ReturnsSameState(t *testing.T) {
	r := NewRegistry(storage.NewMemoryStorage(), nopBackend{}, time.Hour, nil)

	a := r.Get(context.Background(), "sid-1")
	b := r.Get(context.Background(), "sid-1")
	c := r.Get(context.Background(), "sid-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestGet_RehydratesFromStorage(t *testing.T) {
	s := storage.NewMemoryStorage()
	r := NewRegistry(s, nopBackend{}, time.Minute, nil)
	ctx := context.Background()

	st := r.Get(ctx, "sid-1")
	require.NoError(t, st.Cart.AddItem(ctx, domain.Product{ID: "p1", Price: 5, CountInStock: 3}, 2))

	fresh := NewRegistry(s, nopBackend{}, time.Minute, nil)
	assert.Equal(t, 2, fresh.Get(ctx, "sid-1").Cart.Count())
}

func TestRotate_MovesStateToNewID(t *testing.T) {
	s := storage.NewMemoryStorage()
	r := NewRegistry(s, nopBackend{}, time.Minute, nil)
	ctx := context.Background()

	old := r.Get(ctx, "sid-1")
	require.NoError(t, old.Cart.AddItem(ctx, domain.Product{ID: "p1", Price: 5, CountInStock: 3}, 2))
	old.Cart.SetShippingAddress(ctx, domain.ShippingAddress{Street: "1 Main St"})

	next := r.Rotate(ctx, old)
	require.NotEqual(t, "sid-1", next.ID)
	assert.Equal(t, next.ID, next.Cart.SessionID())
	assert.Equal(t, 1, r.Len())
	assert.Same(t, next, r.Get(ctx, next.ID))

	_, err := s.Get(ctx, storage.Key(cart.Namespace, "sid-1", "cartItems"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	fresh := NewRegistry(s, nopBackend{}, time.Minute, nil)
	moved := fresh.Get(ctx, next.ID)
	assert.Equal(t, 2, moved.Cart.Count())
	addr, ok := moved.Cart.ShippingAddress()
	require.True(t, ok)
	assert.Equal(t, "1 Main St", addr.Street)
	assert.True(t, fresh.Get(ctx, "sid-1").Cart.IsEmpty())
}

func TestSweep_DropsIdleSessions(t *testing.T) {
	r := NewRegistry(storage.NewMemoryStorage(), nopBackend{}, time.Minute, nil)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Get(context.Background(), "old")
	now = now.Add(2 * time.Minute)
	r.Get(context.Background(), "new")

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestSweep_Disabled(t *testing.T) {
	r := NewRegistry(storage.NewMemoryStorage(), nopBackend{}, 0, nil)
	r.Get(context.Background(), "sid")
	assert.Equal(t, 0, r.Sweep())
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := NewRegistry(storage.NewMemoryStorage(), nopBackend{}, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
