//go:generate mockgen -source=transport.go -destination=./transport_mocks_test.go -package=jobs_test

package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jzx17/jobpoll/pkg/types"
)

// maxBodySize bounds how much of a response body is read
const maxBodySize = 4 << 20

// Transport performs one request against the job backend and returns the raw JSON body
type Transport interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// HTTPTransport is a Transport over net/http
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	header  http.Header
}

// TransportOption configures an HTTPTransport
type TransportOption func(*HTTPTransport)

// WithHTTPClient sets the underlying client
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithRequestTimeout bounds a single request.
// The engine does not time-box fetches itself, so this is the only per-call limit.
func WithRequestTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		if d > 0 {
			client := *t.client
			client.Timeout = d
			t.client = &client
		}
	}
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) TransportOption {
	return func(t *HTTPTransport) {
		t.header.Add(key, value)
	}
}

// NewHTTPTransport creates a transport rooted at baseURL
func NewHTTPTransport(baseURL string, opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		header:  make(http.Header),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get implements Transport.
//
// Non-2xx responses come back as *types.ClassifiedError: 401, 403 and other
// client errors are terminal except 404, 408 and 429, everything else is
// retryable.
func (t *HTTPTransport) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return nil, types.Terminal(fmt.Errorf("%w: %v", types.ErrBadRequest, err))
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range t.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, types.Retryable(fmt.Errorf("%w: %v", types.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, types.Retryable(fmt.Errorf("reading response body: %w", err))
	}

	if err := statusError(resp, time.Now()); err != nil {
		return nil, err
	}
	return body, nil
}

// statusError classifies a non-2xx response
func statusError(resp *http.Response, now time.Time) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	classified := &types.ClassifiedError{
		StatusCode: code,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), now),
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		classified.Err = types.ErrUnauthorized
		classified.Class = types.ClassTerminal
	case code == http.StatusNotFound || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		classified.Err = types.ErrUnavailable
		classified.Class = types.ClassRetryable
	case code >= 400 && code < 500:
		classified.Err = types.ErrBadRequest
		classified.Class = types.ClassTerminal
	default:
		classified.Err = types.ErrUnavailable
		classified.Class = types.ClassRetryable
	}
	return classified
}

// parseRetryAfter accepts delay-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// escape quotes one path segment
func escape(segment string) string {
	return url.PathEscape(segment)
}
