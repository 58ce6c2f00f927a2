// Package moneybird is a small client for the time entry and user
// endpoints of the Moneybird REST API v2.
package moneybird

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/timebird/internal/model"
)

const (
	DefaultBaseURL = "https://moneybird.com/api/v2"
	DefaultWebURL  = "https://moneybird.com"
	DefaultPerPage = 20
)

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client is stateless apart from its configuration. Credentials are passed
// on every call.
type Client struct {
	baseURL string
	webURL  string
	http    *httpClient
	log     *slog.Logger
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		webURL:  DefaultWebURL,
		http:    newHTTPClient(10 * time.Second),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) endpoint(admin, path string) string {
	return c.baseURL + "/" + url.PathEscape(admin) + "/" + path
}

// entryURL is the deep link to an entry in the Moneybird web app.
func (c *Client) entryURL(admin, id string) string {
	return fmt.Sprintf("%s/%s/time_entries/%s", c.webURL, url.PathEscape(admin), url.PathEscape(id))
}

func (c *Client) getRequest(ctx context.Context, creds model.Credentials, path string, params url.Values) (*resp, error) {
	return c.request(ctx, creds, http.MethodGet, path, params, nil)
}

func (c *Client) postRequest(ctx context.Context, creds model.Credentials, path string, body []byte) (*resp, error) {
	return c.request(ctx, creds, http.MethodPost, path, nil, body)
}

func (c *Client) patchRequest(ctx context.Context, creds model.Credentials, path string, body []byte) (*resp, error) {
	return c.request(ctx, creds, http.MethodPatch, path, nil, body)
}

// request sends one call and turns any non-2xx status into an *APIError.
func (c *Client) request(ctx context.Context, creds model.Credentials, method, path string, params url.Values, body []byte) (*resp, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(creds.AdministrationID, path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequest: %w", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	r, err := c.http.do(req, creds.APIToken)
	if err != nil {
		c.log.Warn("moneybird request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return nil, err
	}
	c.log.Debug("moneybird request",
		"method", method,
		"path", path,
		"status", r.Code,
		"request_id", requestID,
		"elapsed", time.Since(start),
	)

	if r.Code < 200 || r.Code > 299 {
		return nil, newAPIError(r, requestID)
	}
	return r, nil
}
