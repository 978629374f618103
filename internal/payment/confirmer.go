// Package payment models the card confirmation step performed by the
// payment processor's hosted card element.
package payment

import (
	"context"
	"errors"
	"strings"
)

const StatusSucceeded = "succeeded"

var ErrSecretMismatch = errors.New("payment result does not belong to this client secret")

// Confirmation is the processor's answer for a confirmed payment intent.
type Confirmation struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Email  string `json:"receipt_email,omitempty"`
}

func (c Confirmation) Succeeded() bool {
	return c.Status == StatusSucceeded
}

// Error is a payment failure the shopper can act on, e.g. a declined card.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "Payment failed"
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Confirmer exchanges a client secret for a payment confirmation.
type Confirmer interface {
	RequestPaymentConfirmation(ctx context.Context, clientSecret string) (*Confirmation, error)
}

type ConfirmerFunc func(ctx context.Context, clientSecret string) (*Confirmation, error)

func (f ConfirmerFunc) RequestPaymentConfirmation(ctx context.Context, clientSecret string) (*Confirmation, error) {
	return f(ctx, clientSecret)
}

// FromClientResult accepts the confirmation the browser obtained from the
// hosted card element. The intent id must be the one the client secret was
// issued for ("<intent id>_secret_<nonce>").
func FromClientResult(result *Confirmation, clientError string) Confirmer {
	return ConfirmerFunc(func(_ context.Context, clientSecret string) (*Confirmation, error) {
		if clientError != "" {
			return nil, &Error{Message: clientError}
		}
		if result == nil || result.ID == "" {
			return nil, &Error{Message: "Payment failed"}
		}
		if !strings.HasPrefix(clientSecret, result.ID+"_secret_") {
			return nil, &Error{Message: "Payment failed", Err: ErrSecretMismatch}
		}
		c := *result
		return &c, nil
	})
}

// StaticConfirmer confirms every secret with a fixed status. Used in demo
// mode where no processor is configured.
type StaticConfirmer struct {
	Status string
	Email  string
	Err    error
}

func (s StaticConfirmer) RequestPaymentConfirmation(_ context.Context, clientSecret string) (*Confirmation, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	id, _, _ := strings.Cut(clientSecret, "_secret_")
	status := s.Status
	if status == "" {
		status = StatusSucceeded
	}
	return &Confirmation{ID: id, Status: status, Email: s.Email}, nil
}
