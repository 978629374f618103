// Package cart holds the per-session shopping cart: line items, the shipping
// address and the payment method selection. Every mutation is written
// through to storage under the cart namespace; prices are derived on read.
package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"go.uber.org/zap"
)

const Namespace = "cart-storage"

const (
	keyItems   = "cartItems"
	keyAddress = "shippingAddress"
	keyPayment = "paymentMethod"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type Store struct {
	mu      sync.RWMutex
	storage storage.Storage
	session string
	logger  *zap.Logger

	items   []domain.CartLineItem
	address *domain.ShippingAddress
	method  domain.PaymentMethod
}

// Load rehydrates the cart of a session. Missing or unreadable keys fall back
// to an empty cart, no address and the default payment method.
func Load(ctx context.Context, s storage.Storage, sessionID string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := &Store{
		storage: s,
		session: sessionID,
		logger:  logger,
		method:  domain.DefaultPaymentMethod,
	}

	var items []domain.CartLineItem
	if _, err := storage.LoadJSON(ctx, s, st.key(keyItems), &items); err != nil {
		logger.Warn("cart items not restored", zap.String("session", sessionID), zap.Error(err))
	} else {
		st.items = items
	}

	var addr domain.ShippingAddress
	if found, err := storage.LoadJSON(ctx, s, st.key(keyAddress), &addr); err != nil {
		logger.Warn("shipping address not restored", zap.String("session", sessionID), zap.Error(err))
	} else if found {
		st.address = &addr
	}

	var method domain.PaymentMethod
	if found, err := storage.LoadJSON(ctx, s, st.key(keyPayment), &method); err != nil {
		logger.Warn("payment method not restored", zap.String("session", sessionID), zap.Error(err))
	} else if found && method.Valid() {
		st.method = method
	}

	return st
}

// AddItem merges quantity into an existing line for the product or appends
// a new line. A merged line takes the product's current stock and is clamped
// to it.
func (s *Store) AddItem(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := product.Key()
	if i := s.indexOf(id); i >= 0 {
		s.items[i].AvailableStock = product.CountInStock
		s.items[i].Quantity = clamp(s.items[i].Quantity+quantity, product.CountInStock)
	} else {
		s.items = append(s.items, domain.CartLineItem{
			ProductID:      id,
			Name:           product.Name,
			UnitPrice:      product.Price,
			Image:          product.Image,
			Quantity:       quantity,
			AvailableStock: product.CountInStock,
		})
	}
	s.persist(ctx, keyItems, s.items)
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist(ctx, keyItems, s.items)
}

// UpdateQuantity sets the quantity of a line, clamped to [1, AvailableStock].
// It returns the stored quantity, or 0 when the product is not in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setQuantity(ctx, productID, func(int) int { return quantity })
}

func (s *Store) Increment(ctx context.Context, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setQuantity(ctx, productID, func(q int) int { return q + 1 })
}

func (s *Store) Decrement(ctx context.Context, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setQuantity(ctx, productID, func(q int) int { return q - 1 })
}

// setQuantity must be called with the write lock held.
func (s *Store) setQuantity(ctx context.Context, productID string, next func(int) int) int {
	i := s.indexOf(productID)
	if i < 0 {
		return 0
	}
	q := clamp(next(s.items[i].Quantity), s.items[i].AvailableStock)
	s.items[i].Quantity = q
	s.persist(ctx, keyItems, s.items)
	return q
}

// Clear empties the line items only; address and payment method are kept.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if err := s.storage.Delete(ctx, s.key(keyItems)); err != nil {
		s.logger.Warn("cart items not cleared in storage", zap.String("session", s.session), zap.Error(err))
	}
}

func (s *Store) SetShippingAddress(ctx context.Context, addr domain.ShippingAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.address = &addr
	s.persist(ctx, keyAddress, addr)
}

func (s *Store) SetPaymentMethod(ctx context.Context, method domain.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.method = method
	s.persist(ctx, keyPayment, method)
}

func (s *Store) Items() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// ShippingAddress reports false when no address was saved yet.
func (s *Store) ShippingAddress() (domain.ShippingAddress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.address == nil {
		return domain.ShippingAddress{}, false
	}
	return *s.address, true
}

func (s *Store) PaymentMethod() domain.PaymentMethod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.method
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// Count is the total number of units across all lines.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

func (s *Store) Snapshot() pricing.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pricing.Compute(s.items)
}

func (s *Store) Subtotal() float64     { return s.Snapshot().Subtotal }
func (s *Store) ShippingCost() float64 { return s.Snapshot().Shipping }
func (s *Store) Tax() float64          { return s.Snapshot().Tax }
func (s *Store) Total() float64        { return s.Snapshot().Total }

func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// MoveTo rebinds the cart to another session id. The current state is
// written under the new keys and the old keys are deleted.
func (s *Store) MoveTo(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.session
	s.session = sessionID
	if len(s.items) > 0 {
		s.persist(ctx, keyItems, s.items)
	}
	if s.address != nil {
		s.persist(ctx, keyAddress, *s.address)
	}
	s.persist(ctx, keyPayment, s.method)

	err := s.storage.Delete(ctx,
		storage.Key(Namespace, old, keyItems),
		storage.Key(Namespace, old, keyAddress),
		storage.Key(Namespace, old, keyPayment))
	if err != nil {
		s.logger.Warn("stale cart keys not deleted", zap.String("session", old), zap.Error(err))
	}
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// persist is best effort: the in-memory state is authoritative for the
// caller and a failed write is only logged.
func (s *Store) persist(ctx context.Context, field string, v any) {
	if err := storage.SaveJSON(ctx, s.storage, s.key(field), v); err != nil {
		s.logger.Warn("cart state not persisted",
			zap.String("session", s.session),
			zap.String("field", field),
			zap.Error(err))
	}
}

func (s *Store) key(field string) string {
	return storage.Key(Namespace, s.session, field)
}

// clamp bounds q to [1, stock]. A line with no known stock keeps the lower bound.
func clamp(q, stock int) int {
	if stock >= 1 && q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}
