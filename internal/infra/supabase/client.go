// Package supabase provides a client for Supabase (PostgREST + GoTrue).
// Used as the managed backend for the income and expenses tables and for
// user sessions.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the Supabase REST and auth APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	anonKey        string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client. serviceRoleKey authorizes table
// access. When it is empty, table calls carry the signed-in user's access
// token from the request context so row level security applies to that
// user; calls without a user fall back to the anon key.
func NewClient(httpClient *http.Client, baseURL, anonKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		anonKey:        anonKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Body)
}

// doRequest executes a request to Supabase PostgREST as the table role
// (see tableBearer). 4xx responses are permanent and never retried.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	body, _, err := c.do(ctx, method, fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path), c.tableBearer(ctx), payload, nil)
	return body, err
}

// doPage is doRequest for a paged GET. It asks PostgREST for an exact
// count and returns the Content-Range header next to the body.
func (c *Client) doPage(ctx context.Context, path string) ([]byte, string, error) {
	body, header, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path), c.tableBearer(ctx), nil,
		map[string]string{"Prefer": "count=exact"})
	if err != nil {
		return nil, "", err
	}
	return body, header.Get("Content-Range"), nil
}

// tableBearer picks the token for table calls: the service role key when
// configured, otherwise the user's access token, otherwise the anon key.
func (c *Client) tableBearer(ctx context.Context) string {
	if c.serviceRoleKey != "" {
		return c.serviceRoleKey
	}
	if tok := domain.AccessTokenFromContext(ctx); tok != "" {
		return tok
	}
	return c.anonKey
}

// doAuth executes a request against the GoTrue auth API. bearer is the
// user's access token, or empty for anonymous calls.
func (c *Client) doAuth(ctx context.Context, path, bearer string, payload any) ([]byte, error) {
	if bearer == "" {
		bearer = c.anonKey
	}
	body, _, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path), bearer, payload, nil)
	return body, err
}

func (c *Client) do(ctx context.Context, method, url, bearer string, payload any, headers map[string]string) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, resilience.Permanent(err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.Header, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		statusErr := &StatusError{Status: resp.StatusCode, Body: string(body)}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, nil, resilience.Permanent(statusErr)
		}
		return nil, nil, statusErr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
	)
	return body, resp.Header, nil
}

// execute runs fn through the breaker and retry policy.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	return resilience.Execute(ctx, c.cb, c.cfg, fn)
}
