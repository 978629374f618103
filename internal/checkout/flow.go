// Package checkout drives the three step checkout of a session: shipping
// address, payment method, then review and order placement.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultCountry = "United States"

// Backend is the part of the backend API the checkout talks to.
type Backend interface {
	CreatePaymentIntent(ctx context.Context, amount float64) (*api.PaymentIntent, error)
	CreateOrder(ctx context.Context, order domain.OrderRequest) (*domain.Order, error)
}

// Identity is the signed-in shopper.
type Identity interface {
	IsAuthenticated() bool
	User() *domain.User
	Context(ctx context.Context) context.Context
}

// OrderNotifier is told about every order the backend accepted.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, order *domain.Order) error
}

type Flow struct {
	mu       sync.Mutex
	cart     *cart.Store
	identity Identity
	backend  Backend
	notifier OrderNotifier
	logger   *zap.Logger

	step           Step
	clientSecret   string
	secretErr      error
	secretGroup    singleflight.Group
	idempotencyKey string
	submitting     bool
	completed      bool
}

// Result of a placed order.
type Result struct {
	Order    *domain.Order
	Redirect string
}

// View is what the checkout page renders for the current step.
type View struct {
	Step          Step                   `json:"step"`
	Shipping      domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod domain.PaymentMethod   `json:"paymentMethod"`
	Items         []domain.CartLineItem  `json:"cartItems"`
	Pricing       pricing.Snapshot       `json:"pricing"`
	ClientSecret  string                 `json:"clientSecret,omitempty"`
	PaymentError  string                 `json:"paymentError,omitempty"`
}

// Start opens a checkout on step 1. The cart must hold items and the shopper
// must be signed in with an unexpired token.
func Start(c *cart.Store, identity Identity, backend Backend, notifier OrderNotifier, logger *zap.Logger) (*Flow, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Flow{
		cart:           c,
		identity:       identity,
		backend:        backend,
		notifier:       notifier,
		logger:         logger.With(zap.String("session", c.SessionID())),
		step:           StepShipping,
		idempotencyKey: uuid.NewString(),
	}
	if err := f.guard(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Flow) guard() error {
	if f.cart.IsEmpty() {
		return ErrEmptyCart
	}
	if f.identity == nil || !f.identity.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// checkLocked must be called with f.mu held.
func (f *Flow) checkLocked() error {
	if f.completed {
		return ErrCompleted
	}
	return f.guard()
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *Flow) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// ShippingForm returns the initial values of the shipping form: the saved
// address, otherwise the shopper's name and the default country.
func (f *Flow) ShippingForm() domain.ShippingAddress {
	if addr, ok := f.cart.ShippingAddress(); ok {
		return addr
	}
	form := domain.ShippingAddress{Country: defaultCountry}
	if u := f.identity.User(); u != nil {
		form.FirstName = u.FirstName
		form.LastName = u.LastName
	}
	return form
}

func (f *Flow) View() View {
	f.mu.Lock()
	step, secret, secretErr := f.step, f.clientSecret, f.secretErr
	f.mu.Unlock()

	v := View{
		Step:          step,
		Shipping:      f.ShippingForm(),
		PaymentMethod: f.cart.PaymentMethod(),
		Items:         f.cart.Items(),
		Pricing:       f.cart.Snapshot(),
		ClientSecret:  secret,
	}
	if secretErr != nil {
		v.PaymentError = msgPaymentSetup
	}
	return v
}

// SubmitShipping validates and saves the address, then moves to payment.
func (f *Flow) SubmitShipping(ctx context.Context, addr domain.ShippingAddress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkLocked(); err != nil {
		return err
	}
	if f.step != StepShipping {
		return ErrIllegalTransition
	}
	if missing := addr.MissingFields(); len(missing) > 0 {
		fields := make(map[string]string, len(missing))
		for _, name := range missing {
			fields[name] = "required"
		}
		return &ValidationError{Fields: fields}
	}

	f.cart.SetShippingAddress(ctx, trimAddress(addr))
	f.step = StepPayment
	return nil
}

// SubmitPayment saves the payment method and moves to review. Credit Card
// needs a client secret, fetched the first time review is entered.
func (f *Flow) SubmitPayment(ctx context.Context, method domain.PaymentMethod) error {
	f.mu.Lock()
	if err := f.checkLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.step != StepPayment {
		f.mu.Unlock()
		return ErrIllegalTransition
	}
	if !method.Valid() {
		f.mu.Unlock()
		return &ValidationError{Fields: map[string]string{"paymentMethod": "unsupported payment method"}}
	}
	f.cart.SetPaymentMethod(ctx, method)
	f.step = StepReview
	f.mu.Unlock()

	if method != domain.PaymentCreditCard {
		return nil
	}
	_, err := f.ensureClientSecret(ctx)
	return err
}

// ensureClientSecret fetches the secret at most once per flow. A failed
// fetch is kept and returned on every later call.
func (f *Flow) ensureClientSecret(ctx context.Context) (string, error) {
	f.mu.Lock()
	secret, secretErr := f.clientSecret, f.secretErr
	f.mu.Unlock()
	if secret != "" || secretErr != nil {
		return secret, secretErr
	}

	v, err, _ := f.secretGroup.Do("client-secret", func() (any, error) {
		f.mu.Lock()
		if f.clientSecret != "" || f.secretErr != nil {
			defer f.mu.Unlock()
			return f.clientSecret, f.secretErr
		}
		f.mu.Unlock()

		amount := f.cart.Total()
		pi, err := f.backend.CreatePaymentIntent(f.identity.Context(ctx), amount)
		if err == nil && pi.ClientSecret == "" {
			err = errors.New("empty client secret")
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if err != nil {
			f.logger.Error("payment intent failed", zap.Float64("amount", amount), zap.Error(err))
			f.secretErr = fmt.Errorf("%w: %w", ErrPaymentSetup, err)
			return "", f.secretErr
		}
		f.clientSecret = pi.ClientSecret
		return f.clientSecret, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Edit reopens an earlier step. Entered data is kept.
func (f *Flow) Edit(to Step) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.completed {
		return ErrCompleted
	}
	if to >= f.step || !CanTransitionTo(f.step, to) {
		return ErrIllegalTransition
	}
	f.step = to
	return nil
}

func (f *Flow) EditShipping() error { return f.Edit(StepShipping) }
func (f *Flow) EditPayment() error  { return f.Edit(StepPayment) }

// PlaceOrder confirms the card payment when needed and submits the order.
// The cart is cleared only after the backend accepted the order.
func (f *Flow) PlaceOrder(ctx context.Context, confirmer payment.Confirmer) (*Result, error) {
	f.mu.Lock()
	if err := f.checkLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.step != StepReview {
		f.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	addr, ok := f.cart.ShippingAddress()
	if !ok {
		f.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	f.submitting = true
	key := f.idempotencyKey
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	method := f.cart.PaymentMethod()
	var paid *domain.PaymentResult
	if method == domain.PaymentCreditCard {
		conf, err := f.confirmPayment(ctx, confirmer)
		if err != nil {
			return nil, err
		}
		paid = &domain.PaymentResult{ID: conf.ID, Status: conf.Status, Email: conf.Email}
		if paid.Email == "" {
			if u := f.identity.User(); u != nil {
				paid.Email = u.Email
			}
		}
	}

	req := buildOrder(f.cart.Items(), addr, method, f.cart.Snapshot(), paid)
	order, err := f.backend.CreateOrder(api.WithIdempotencyKey(f.identity.Context(ctx), key), req)
	if err != nil {
		f.logger.Warn("order rejected", zap.String("idempotency_key", key), zap.Error(err))
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			f.mu.Lock()
			f.idempotencyKey = uuid.NewString()
			f.mu.Unlock()
		}
		return nil, &SubmissionError{Message: api.Message(err, msgSubmissionFallback), Err: err}
	}

	f.cart.Clear(ctx)
	f.mu.Lock()
	f.completed = true
	f.mu.Unlock()
	f.logger.Info("order placed", zap.String("order_id", order.ID), zap.Float64("total", order.TotalPrice))

	if f.notifier != nil {
		if err := f.notifier.OrderPlaced(ctx, order); err != nil {
			f.logger.Warn("order placed event not published", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return &Result{Order: order, Redirect: RedirectOrders}, nil
}

func (f *Flow) confirmPayment(ctx context.Context, confirmer payment.Confirmer) (*payment.Confirmation, error) {
	secret, err := f.ensureClientSecret(ctx)
	if err != nil {
		return nil, err
	}
	if confirmer == nil {
		return nil, &payment.Error{Message: "Payment details missing"}
	}
	conf, err := confirmer.RequestPaymentConfirmation(ctx, secret)
	if err != nil {
		var payErr *payment.Error
		if errors.As(err, &payErr) {
			return nil, err
		}
		return nil, &payment.Error{Message: "Payment failed", Err: err}
	}
	if !conf.Succeeded() {
		return nil, &payment.Error{Message: fmt.Sprintf("Payment %s", conf.Status)}
	}
	return conf, nil
}

func buildOrder(items []domain.CartLineItem, addr domain.ShippingAddress, method domain.PaymentMethod, snap pricing.Snapshot, paid *domain.PaymentResult) domain.OrderRequest {
	lines := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.OrderItem{
			Name:    it.Name,
			Qty:     it.Quantity,
			Image:   it.Image,
			Price:   it.UnitPrice,
			Product: it.ProductID,
		})
	}
	return domain.OrderRequest{
		OrderItems:      lines,
		ShippingAddress: addr,
		PaymentMethod:   method,
		ItemsPrice:      snap.Subtotal,
		ShippingPrice:   snap.Shipping,
		TaxPrice:        snap.Tax,
		TotalPrice:      snap.Total,
		PaymentResult:   paid,
	}
}

func trimAddress(a domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName:  strings.TrimSpace(a.FirstName),
		LastName:   strings.TrimSpace(a.LastName),
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}
