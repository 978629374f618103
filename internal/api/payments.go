package api

import (
	"context"
	"net/http"
)

type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// CreatePaymentIntent asks the backend to open a card payment for amount and
// returns the processor client secret used to confirm it.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64) (*PaymentIntent, error) {
	var pi PaymentIntent
	body := struct {
		Amount float64 `json:"amount"`
	}{Amount: amount}
	if err := c.do(ctx, http.MethodPost, "payments/intent", body, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}
