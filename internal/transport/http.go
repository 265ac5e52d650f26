// Package transport implements the HTTP collaborator the poller fetches
// through. It performs plain GETs with per-source headers and query
// parameters and reports network failures as TransportError; status handling
// is left to the caller.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"internwatch/internal/model"
)

// Client is the default Transport over net/http.
type Client struct {
	http *http.Client
}

// Ensure Client implements model.Transport.
var _ model.Transport = (*Client)(nil)

// NewClient returns a Transport with the given overall request timeout.
// Per-request deadlines still come from the caller's context.
func NewClient(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET against rawURL with the given headers and query
// parameters and returns the status and body. It fails only on request
// construction or network-level errors.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string, query url.Values) (*model.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.TransportError{Err: fmt.Errorf("building request for %s: %w", rawURL, err)}
	}
	if len(query) > 0 {
		merged := req.URL.Query()
		for k, vs := range query {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		req.URL.RawQuery = merged.Encode()
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &model.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TransportError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	return &model.Response{
		Status:     resp.StatusCode,
		Body:       body,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}, nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
