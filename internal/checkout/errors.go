package checkout

import (
	"errors"
	"sort"
	"strings"
)

const (
	RedirectShop   = "/shop"
	RedirectLogin  = "/login?redirect=/checkout"
	RedirectOrders = "/orders"

	msgSubmissionFallback = "Something went wrong."
	msgPaymentSetup       = "Failed to initialize payment"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrUnauthenticated    = errors.New("sign in to check out")
	ErrIllegalTransition  = errors.New("illegal transition of checkout step")
	ErrPaymentSetup       = errors.New(msgPaymentSetup)
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrCompleted          = errors.New("checkout already completed")
)

// ValidationError lists the form fields that were rejected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// SubmissionError is a rejected order. Message is shown to the shopper.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string { return e.Message }
func (e *SubmissionError) Unwrap() error { return e.Err }

// Redirect returns where the shopper should be sent for a guard error.
func Redirect(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return RedirectShop
	case errors.Is(err, ErrUnauthenticated):
		return RedirectLogin
	}
	return ""
}
