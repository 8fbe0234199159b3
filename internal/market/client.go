package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint is the production GraphQL service.
const DefaultEndpoint = "https://services.centralmarket.com/cm-graphql-service/"

const (
	defaultTimeout = 20 * time.Second

	// maxErrorBody bounds how much of a failed response we keep for the
	// error message.
	maxErrorBody = 4 * 1024

	// The service rejects requests that don't look like they came from the
	// retail site, so every call carries a browser-like identity.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	siteOrigin = "https://www.centralmarket.com"
)

// TransportError reports a failure to complete the HTTP exchange: a dial or
// timeout error, or a non-2xx response. Status is zero when no response was
// received.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("graphql transport: %v", e.Err)
	}
	return fmt.Sprintf("graphql transport: HTTP %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError reports a completed exchange whose GraphQL envelope signals
// failure: an errors list, or a missing data field.
type UpstreamError struct {
	// Errors is the raw errors field from the response, nil when the
	// response simply lacked data.
	Errors json.RawMessage
}

func (e *UpstreamError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("graphql upstream: %s", e.Errors)
	}
	return "graphql upstream: response has no data field"
}

// Client issues queries against one GraphQL endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
}

// NewClient returns a Client for endpoint. Non-positive timeout falls back
// to the 20s default. The underlying http.Client is built once and reused,
// so connections are pooled across calls.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the endpoint URL this client talks to.
func (c *Client) Endpoint() string { return c.endpoint }

// envelope is the standard GraphQL response wrapper.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Query posts query with vars and returns the raw data field.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return nil, fmt.Errorf("graphql: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("graphql: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", siteOrigin)
	req.Header.Set("Referer", siteOrigin+"/")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Status: resp.StatusCode, Body: clip(body, maxErrorBody)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Body: clip(body, maxErrorBody),
			Err: fmt.Errorf("decode body: %w", err)}
	}

	if len(env.Errors) > 0 && !isJSONNull(env.Errors) {
		return nil, &UpstreamError{Errors: env.Errors}
	}
	if len(env.Data) == 0 || isJSONNull(env.Data) {
		return nil, &UpstreamError{}
	}
	return env.Data, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func clip(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
