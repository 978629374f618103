// Package session keeps the live client state of each browser session in
// process. State is rehydrated from storage the first time a session is seen
// and dropped again after it has been idle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State struct {
	ID   string
	Cart *cart.Store
	Auth *auth.Session

	mu       sync.Mutex
	flow     *checkout.Flow
	lastSeen time.Time
}

// Flow returns the open checkout, or nil when none is open or the last one
// completed.
func (s *State) Flow() *checkout.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow != nil && s.flow.Completed() {
		s.flow = nil
	}
	return s.flow
}

func (s *State) SetFlow(f *checkout.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow = f
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Registry struct {
	mu      sync.Mutex
	states  map[string]*State
	storage storage.Storage
	backend auth.Backend
	maxIdle time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewRegistry(s storage.Storage, backend auth.Backend, maxIdle time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		states:  make(map[string]*State),
		storage: s,
		backend: backend,
		maxIdle: maxIdle,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the state of a session, loading it from storage on first use.
func (r *Registry) Get(ctx context.Context, id string) *State {
	r.mu.Lock()
	st, ok := r.states[id]
	if !ok {
		st = &State{
			ID:   id,
			Cart: cart.Load(ctx, r.storage, id, r.logger),
			Auth: auth.Load(ctx, r.storage, id, r.backend, r.logger),
		}
		r.states[id] = st
	}
	r.mu.Unlock()

	st.touch(r.now())
	return st
}

// Rotate moves the state of st to a freshly minted session id and forgets
// the old one. Any open checkout is dropped.
func (r *Registry) Rotate(ctx context.Context, st *State) *State {
	id := uuid.NewString()
	st.Cart.MoveTo(ctx, id)
	st.Auth.MoveTo(ctx, id)
	st.SetFlow(nil)

	next := &State{ID: id, Cart: st.Cart, Auth: st.Auth}
	next.touch(r.now())

	r.mu.Lock()
	delete(r.states, st.ID)
	r.states[id] = next
	r.mu.Unlock()

	r.logger.Debug("session rotated", zap.String("from", st.ID), zap.String("to", id))
	return next
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Sweep forgets sessions idle for longer than maxIdle. Their stored state is
// kept and reloaded on the next request.
func (r *Registry) Sweep() int {
	if r.maxIdle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, st := range r.states {
		if st.idleSince().Before(cutoff) {
			delete(r.states, id)
			n++
		}
	}
	if n > 0 {
		r.logger.Debug("idle sessions swept", zap.Int("count", n))
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
