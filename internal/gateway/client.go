// Package gateway is the typed HTTP client for the contract backend's /v2 API.
package gateway

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/contract-wizard/internal/config"
)

// APIVersion is the path prefix every endpoint lives under.
const APIVersion = "v2"

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
	maxDocument    = 50 << 20
	userAgent      = "contractwizard/1.0 (api:" + APIVersion + ")"
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("gateway: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway: status=%d message=%s", e.StatusCode, e.Message)
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a client for baseURL (without the /v2 suffix).
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds a client from the project configuration.
func FromConfig(cfg *config.Config, opts ...Option) *Client {
	base := []Option{WithTimeout(cfg.Timeout())}
	return NewClient(cfg.BaseURL(), cfg.Token(), append(base, opts...)...)
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + APIVersion + path
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Requests are never retried.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("gateway: base url: %w", config.ErrNotConfigured)
	}
	if err := c.checkToken(); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := parseError(resp.StatusCode, raw)
		if apiErr.RequestID == "" {
			apiErr.RequestID = firstNonEmpty(resp.Header.Get("X-Request-ID"), requestID)
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway: read %s %s: %w", method, path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gateway: decode %s %s: %w", method, path, err)
	}
	return nil
}

// parseError accepts {"message"}, {"detail"}, {"error": {...}} and
// {"error": "text"} bodies.
func parseError(status int, body []byte) *Error {
	out := &Error{StatusCode: status}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		out.Message = strings.TrimSpace(string(body))
		if out.Message == "" {
			out.Message = http.StatusText(status)
		}
		return out
	}
	switch inner := obj["error"].(type) {
	case map[string]any:
		obj = inner
	case string:
		out.Message = inner
	}
	out.Code, _ = obj["error_code"].(string)
	if out.Code == "" {
		out.Code, _ = obj["code"].(string)
	}
	if msg, _ := obj["message"].(string); msg != "" {
		out.Message = msg
	}
	if out.Message == "" {
		out.Message, _ = obj["detail"].(string)
	}
	out.RequestID, _ = obj["request_id"].(string)
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	return out
}

// DownloadDocument fetches a document URL returned by the backend. Relative
// URLs resolve against the base URL; the bearer token is only sent to the
// backend's own host.
func (c *Client) DownloadDocument(ctx context.Context, rawURL string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("gateway: base url: %w", config.ErrNotConfigured)
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("gateway: invalid document url %q", rawURL)
	}
	target := base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" && target.Host == base.Host {
		if err := c.checkToken(); err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, parseError(resp.StatusCode, raw)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument+1))
	if err != nil {
		return nil, fmt.Errorf("gateway: read document: %w", err)
	}
	if len(data) > maxDocument {
		return nil, errors.New("gateway: document exceeds 50MB")
	}
	return data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
