// Package auth keeps the signed-in user and bearer token of a storefront
// session. It is persisted under its own namespace, independent of the cart.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"go.uber.org/zap"
)

const Namespace = "auth-storage"

const keyState = "state"

var ErrNotAuthenticated = errors.New("not authenticated")

// Backend is the subset of the API client used for authentication.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (*domain.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*domain.AuthResponse, error)
	Profile(ctx context.Context) (*domain.User, error)
}

// Error carries the message shown to the shopper next to the failed form.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

type state struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type Session struct {
	mu      sync.RWMutex
	storage storage.Storage
	session string
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	state state
}

func Load(ctx context.Context, s storage.Storage, sessionID string, backend Backend, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	sess := &Session{
		storage: s,
		session: sessionID,
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
	if _, err := storage.LoadJSON(ctx, s, sess.key(), &sess.state); err != nil {
		logger.Warn("auth session not restored", zap.String("session", sessionID), zap.Error(err))
		sess.state = state{}
	}
	return sess
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	res, err := s.backend.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return &Error{Message: api.Message(err, "Failed to login"), Err: err}
	}
	s.signIn(ctx, res)
	return nil
}

func (s *Session) Register(ctx context.Context, req api.RegisterRequest) error {
	res, err := s.backend.Register(ctx, req)
	if err != nil {
		return &Error{Message: api.Message(err, "Failed to register"), Err: err}
	}
	s.signIn(ctx, res)
	return nil
}

func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state{}
	if err := s.storage.Delete(ctx, s.key()); err != nil {
		s.logger.Warn("auth session not cleared in storage", zap.String("session", s.session), zap.Error(err))
	}
}

// Profile fetches the user from the backend. A 401 ends the session.
func (s *Session) Profile(ctx context.Context) (*domain.User, error) {
	token := s.Token()
	if token == "" || !s.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	u, err := s.backend.Profile(api.WithToken(ctx, token))
	if errors.Is(err, api.ErrUnauthorized) {
		s.Logout(ctx)
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// IsAuthenticated is false when no token is held or the token has expired.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token != "" && !TokenExpired(s.state.Token, s.now())
}

func (s *Session) IsAdmin() bool {
	u := s.User()
	return u != nil && u.IsAdmin && s.IsAuthenticated()
}

// Context returns ctx carrying the session's bearer token for API calls.
func (s *Session) Context(ctx context.Context) context.Context {
	return api.WithToken(ctx, s.Token())
}

// MoveTo rebinds the session to another id, moving the stored state with it.
func (s *Session) MoveTo(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey := s.key()
	s.session = sessionID
	if s.state.Token != "" {
		if err := storage.SaveJSON(ctx, s.storage, s.key(), s.state); err != nil {
			s.logger.Warn("auth session not persisted", zap.String("session", s.session), zap.Error(err))
		}
	}
	if err := s.storage.Delete(ctx, oldKey); err != nil {
		s.logger.Warn("stale auth key not deleted", zap.String("key", oldKey), zap.Error(err))
	}
}

func (s *Session) signIn(ctx context.Context, res *domain.AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := res.User
	s.state = state{User: &user, Token: res.Token}
	if err := storage.SaveJSON(ctx, s.storage, s.key(), s.state); err != nil {
		s.logger.Warn("auth session not persisted", zap.String("session", s.session), zap.Error(err))
	}
}

func (s *Session) key() string {
	return storage.Key(Namespace, s.session, keyState)
}
