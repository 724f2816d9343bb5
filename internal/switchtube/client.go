// Package switchtube talks to the SWITCHtube web service API.
package switchtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/switchtube/internal/domain"
)

const (
	defaultTimeout = 60 * time.Second
	authScheme     = "Token"
)

// Client is an authenticated SWITCHtube API client.
//
// The token is attached only to requests aimed at the configured origin, not
// to every request: a continuation or variant URL on another host is fetched
// without credentials. Variant paths resolve against the origin, so media
// downloads from SWITCHtube itself still carry the token.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for catalog calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout for catalog calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// NewClient creates a new SWITCHtube API client
func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server URL %q must be absolute", baseURL)
	}
	if token == "" {
		return nil, fmt.Errorf("access token is required")
	}

	c := &Client{
		baseURL: u,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Endpoint resolves an API path against the origin.
func (c *Client) Endpoint(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	return c.baseURL.ResolveReference(ref).String()
}

// Authorize attaches the access token when req targets the configured origin.
// It reports whether the header was set.
func (c *Client) Authorize(req *http.Request) bool {
	if !sameOrigin(c.baseURL, req.URL) {
		return false
	}
	req.Header.Set("Authorization", authScheme+" "+c.token)
	return true
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

// doRequest performs an authenticated HTTP request.
// Non-2xx responses are returned as *domain.RemoteError with the body drained.
// Nothing is retried: callers see the first failure.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.Authorize(req)

	c.logger.Debug("switchtube request", "method", method, "url", reqURL, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("switchtube request failed", "url", reqURL, "error", err)
		return nil, &domain.TransportError{Op: "request", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := domain.RemoteErrorFromResponse(resp)
		c.logger.Error("switchtube request error", "status", rerr.Status, "url", reqURL, "body", rerr.Body)
		return nil, rerr
	}
	return resp, nil
}

// getJSON issues a GET and decodes the body into dest.
func (c *Client) getJSON(ctx context.Context, reqURL string, dest any) (http.Header, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return nil, &domain.ProtocolError{Reason: fmt.Sprintf("failed to parse response from %s: %v", reqURL, err)}
	}
	return resp.Header, nil
}

// postJSON issues a POST with a JSON body and decodes the response into dest.
func (c *Client) postJSON(ctx context.Context, reqURL string, payload, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, reqURL, bytes.NewReader(data), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &domain.ProtocolError{Reason: fmt.Sprintf("failed to parse response from %s: %v", reqURL, err)}
	}
	return nil
}
