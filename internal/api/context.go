package api

import "context"

type ctxKey int

const (
	tokenKey ctxKey = iota
	idempotencyKey
)

// WithToken attaches the bearer token sent with every call made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func TokenFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey).(string); ok {
		return v
	}
	return ""
}

// WithIdempotencyKey sets the Idempotency-Key header for calls made with ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey, key)
}

func IdempotencyKeyFrom(ctx context.Context) string {
	if v, ok := ctx.Value(idempotencyKey).(string); ok {
		return v
	}
	return ""
}
