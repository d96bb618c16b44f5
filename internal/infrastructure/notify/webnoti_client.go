// Package notify forwards notification requests to the WebNoti API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
)

// ErrNotConfigured is returned when no upstream URL is configured
var ErrNotConfigured = errors.New("webnoti upstream is not configured")

// UpstreamError is returned when the upstream answers with a non-2xx status
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webnoti upstream returned %d", e.StatusCode)
	}
	return fmt.Sprintf("webnoti upstream returned %d: %s", e.StatusCode, e.Body)
}

// Response is a successful upstream answer. Body is always valid JSON; plain
// text answers are wrapped in a JSON string.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// WebNotiClient posts JSON payloads to the notification API. Requests are
// never retried.
type WebNotiClient struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures a WebNotiClient
type Option func(*WebNotiClient)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(w *WebNotiClient) {
		w.client = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *WebNotiClient) {
		w.logger = logger
	}
}

// NewWebNotiClient creates a client from configuration. A zero
// RatePerSecond disables rate limiting.
func NewWebNotiClient(cfg *config.WebNotiConfig, opts ...Option) (*WebNotiClient, error) {
	if cfg == nil || strings.TrimSpace(cfg.UpstreamURL) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &WebNotiClient{
		baseURL: strings.TrimRight(cfg.UpstreamURL, "/"),
		token:   cfg.UpstreamToken,
		client:  &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Send forwards a notification payload to {upstream}/send
func (c *WebNotiClient) Send(ctx context.Context, payload json.RawMessage) (*Response, error) {
	return c.post(ctx, "/send", payload)
}

// Subscribe forwards a subscription payload to {upstream}/subscribe
func (c *WebNotiClient) Subscribe(ctx context.Context, payload json.RawMessage) (*Response, error) {
	return c.post(ctx, "/subscribe", payload)
}

func (c *WebNotiClient) post(ctx context.Context, path string, payload json.RawMessage) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("webnoti rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build webnoti request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("webnoti request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("webnoti request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read webnoti response: %w", err)
	}

	c.logger.Debug("webnoti request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return &Response{StatusCode: resp.StatusCode, Body: asJSON(body)}, nil
}

func asJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}
