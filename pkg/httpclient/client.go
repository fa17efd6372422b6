// Package httpclient provides the cookie-credentialed JSON client used to
// talk to the DestinyPal backend. Sessions are cookie-based, so every client
// owns a cookie jar and sends it with each request.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PMGEECODE/destinypal-sub002/pkg/apierr"
)

// Client is a thin JSON wrapper over net/http rooted at a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client with a fresh cookie jar. The trailing slash of
// baseURL is stripped so paths can always start with "/".
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request and decodes a JSON response into out (which may
// be nil when the body is irrelevant).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes a JSON response
// into out. Either may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err))
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp, method, path)
	}

	if out == nil {
		return nil
	}

	// Empty or non-JSON success bodies are fine; out is left zeroed.
	if !hasJSONBody(resp) {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// errorFromResponse decodes the error body and wraps it as an APIError.
// Unparseable bodies fall back to the HTTP status text.
func (c *Client) errorFromResponse(resp *http.Response, method, path string) error {
	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		body = map[string]any{"detail": http.StatusText(resp.StatusCode)}
	}

	apiErr := apierr.New(resp.StatusCode, body)
	c.logger.Debug("backend returned error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", apiErr.Status))
	return apiErr
}

func hasJSONBody(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "application/json")
}
