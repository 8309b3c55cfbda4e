package mdr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every request when ClientOptions.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// Connection is the explicit per-run connection state: where the MDR lives,
// which namespace is being synchronized and which headers authorize requests.
type Connection struct {
	BaseURL   string
	Namespace string
	Header    http.Header
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	// Burst is the limiter burst size; values below 1 are treated as 1.
	Burst int
	// HTTPClient overrides the underlying client. Its timeout is left untouched.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the MDR REST API.
type Client struct {
	conn       Connection
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client for the given connection.
func NewClient(conn Connection, opts ClientOptions) (*Client, error) {
	base, err := url.Parse(conn.BaseURL)
	if err != nil {
		return nil, WrapConfigurationError("invalid base URL", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, NewConfigurationErrorf("base URL must be absolute: %q", conn.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		conn:       conn,
		base:       base,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Connection returns the connection the client was created with.
func (c *Client) Connection() Connection {
	return c.conn
}

// Namespaces lists the namespaces visible to the caller, grouped by role.
func (c *Client) Namespaces(ctx context.Context) (NamespaceListing, error) {
	var listing NamespaceListing
	if err := c.getJSON(ctx, &listing, "namespaces/"); err != nil {
		return nil, err
	}
	return listing, nil
}

// Members lists the members of the namespace with the given identifier.
func (c *Client) Members(ctx context.Context, namespaceID string) ([]Member, error) {
	var members []Member
	if err := c.getJSON(ctx, &members, "namespaces", namespaceID, "members"); err != nil {
		return nil, err
	}
	return members, nil
}

// Element fetches a data element by URN.
func (c *Client) Element(ctx context.Context, urn string) (*DataElement, error) {
	var element DataElement
	if err := c.getJSON(ctx, &element, "element", urn); err != nil {
		return nil, err
	}
	return &element, nil
}

// ValueDomain fetches the value domain of a data element.
func (c *Client) ValueDomain(ctx context.Context, urn string) (*ValueDomain, error) {
	var vd ValueDomain
	if err := c.getJSON(ctx, &vd, "element", urn, "valuedomain"); err != nil {
		return nil, err
	}
	return &vd, nil
}

// CreateNamespace creates a namespace.
func (c *Client) CreateNamespace(ctx context.Context, req NamespaceRequest) error {
	return c.sendJSON(ctx, http.MethodPost, req, "namespaces/")
}

// CreateElement creates a data element.
func (c *Client) CreateElement(ctx context.Context, element *DataElement) error {
	return c.sendJSON(ctx, http.MethodPost, element, "element")
}

// UpdateElement replaces the data element with the given URN.
func (c *Client) UpdateElement(ctx context.Context, urn string, element *DataElement) error {
	return c.sendJSON(ctx, http.MethodPut, element, "element", urn)
}

func (c *Client) resolve(elems ...string) string {
	return c.base.JoinPath(elems...).String()
}

func (c *Client) getJSON(ctx context.Context, out any, elems ...string) error {
	target := c.resolve(elems...)
	body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RemoteFetchError{Method: http.MethodGet, URL: target, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method string, payload any, elems ...string) error {
	target := c.resolve(elems...)
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	_, err = c.do(ctx, method, target, data)
	return err
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &RemoteFetchError{Method: method, URL: target, Cause: err}
		}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &RemoteFetchError{Method: method, URL: target, Cause: err}
	}
	for name, values := range c.conn.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteFetchError{Method: method, URL: target, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteFetchError{Method: method, URL: target, StatusCode: resp.StatusCode, Cause: err}
	}

	c.logger.Debug("mdr request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &RemoteFetchError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}
