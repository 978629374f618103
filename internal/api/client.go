// Package api is the HTTP client for the storefront backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBody = 4 << 20

type response struct {
	status int
	body   []byte
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
	logger  *zap.Logger
}

type Options struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Transport        http.RoundTripper
}

// NewClient builds a client for the API rooted at <baseURL>/api. Calls are
// never retried; repeated transport or 5xx failures open the breaker and
// further calls fail fast with ErrUnavailable until it half-opens.
func NewClient(baseURL string, opts Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/api/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host required", baseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	threshold := opts.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:    "backend-api",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: breaker,
		logger:  logger,
	}, nil
}

// do sends in as JSON (when non-nil) and decodes the 2xx body into out
// (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s request failed: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	// path arrives escaped so ids cannot add segments or dot-segments.
	rel := strings.TrimPrefix(path, "/")
	unescaped, err := url.PathUnescape(rel)
	if err != nil {
		return fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: unescaped, RawPath: rel})
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if key := IdempotencyKeyFrom(ctx); key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.send(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnavailable)
	}
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		c.logger.Warn("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}

	if resp.status >= 400 {
		return newError(resp)
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s %s response failed: %w", method, path, err)
	}
	return nil
}

// send performs the round trip. Only transport errors and 5xx responses
// count against the breaker.
func (c *Client) send(req *http.Request) (*response, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}
	resp := &response{status: res.StatusCode, body: data}
	if res.StatusCode >= http.StatusInternalServerError {
		return nil, newError(resp)
	}
	return resp, nil
}

func newError(resp *response) *Error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(resp.body, &payload)
	return &Error{StatusCode: resp.status, Message: payload.Message}
}
