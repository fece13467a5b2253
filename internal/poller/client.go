package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; many feeds may share one client
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the result of an HTTP request made by [Client].
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error is a [*TransportError] when the request did not complete.
	// A completed request with a non-2xx status still has a nil Error.
	Error error
}

// Client is an HTTP client wrapper for fetching JSON feeds.
//
// Timeouts are applied per request via context rather than on the
// underlying http.Client, so feeds with different timeouts can share it.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new [Client] with pooled connections.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Fetch performs a GET request and returns a structured [Response].
//
// The timeout is applied via context cancellation; a zero timeout leaves
// the deadline to ctx. Fetch always returns a Response; failures are
// captured in its Error field.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) Response {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   &TransportError{Err: fmt.Errorf("create request: %w", err)},
		}
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   &TransportError{Err: err},
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      &TransportError{Err: fmt.Errorf("read body: %w", err)},
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil receiver.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// HTTPFetcher adapts a [Client] to the [Fetcher] interface.
type HTTPFetcher struct {
	Client  *Client
	Headers map[string]string
	Timeout time.Duration
}

// Fetch issues the GET and turns non-2xx responses into a [*StatusError].
func (f *HTTPFetcher) Fetch(ctx context.Context, resource string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = sharedClient
	}

	resp := client.Fetch(ctx, resource, f.Headers, f.Timeout)
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// sharedClient backs HTTPFetchers built without an explicit client.
var sharedClient = NewClient()
