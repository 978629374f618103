package auth

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type mockBackend struct {
	res        *domain.AuthResponse
	err        error
	profile    *domain.User
	profileErr error
	lastToken  string
	lastCreds  api.Credentials
}

func (m *mockBackend) Login(_ context.Context, creds api.Credentials) (*domain.AuthResponse, error) {
	m.lastCreds = creds
	return m.res, m.err
}

func (m *mockBackend) Register(context.Context, api.RegisterRequest) (*domain.AuthResponse, error) {
	return m.res, m.err
}

func (m *mockBackend) Profile(ctx context.Context) (*domain.User, error) {
	m.lastToken = api.TokenFrom(ctx)
	return m.profile, m.profileErr
}
