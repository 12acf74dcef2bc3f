// Package httpclient implements the retrying HTTP client tool plugin
// vulnerability verifiers use to reach their targets, grounded on the
// source's HttpClient wrapper: connection reuse plus bounded retry with
// linear backoff on transport errors.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
)

func init() {
	plugin.DefaultCatalog.RegisterTool("http_client", func() plugin.Tool {
		return New(DefaultTimeout, DefaultMaxRetries)
	})
}

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
)

// Client wraps *http.Client with a bounded, linearly backed-off retry
// loop for transport-level failures (connection refused, reset, DNS
// failure) — the one concern worth retrying automatically; HTTP error
// status codes are left to the caller to interpret.
type Client struct {
	timeout    time.Duration
	maxRetries int
	http       *http.Client
}

// New constructs a Client with the given per-request timeout and retry
// budget.
func New(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		timeout:    timeout,
		maxRetries: maxRetries,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name implements plugin.Tool.
func (c *Client) Name() string { return "http_client" }

// Get issues a GET request, making up to maxRetries attempts in total on
// transport errors, with a 500ms*(attempt+1) backoff between attempts.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url, headers, nil)
}

// Post issues a POST request with the given body bytes, using the same
// retry policy as Get.
func (c *Client) Post(ctx context.Context, url string, headers map[string]string, body []byte) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, url, headers, body)
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := newRequest(ctx, method, url, headers, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond * time.Duration(attempt+1)):
		}
	}
	return nil, fmt.Errorf("httpclient: request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func newRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
