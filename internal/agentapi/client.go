// Package agentapi is the HTTP transport for the remote agent service.
package agentapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/samsaffron/term-agent/internal/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTimeout bounds a single turn when no timeout is configured.
const DefaultTimeout = 5 * time.Minute

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 << 10

// UserAgent is sent on every request.
var UserAgent = "term-agent"

// Client talks to one agent on the service. It implements both
// agent.Transport and agent.StreamTransport.
type Client struct {
	baseURL    string
	apiKey     string
	agent      string
	timeout    time.Duration
	httpClient *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-turn deadline. Zero or negative disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for agentName served under baseURL.
func NewClient(baseURL, apiKey, agentName string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("agent service base URL is not configured")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if agentName == "" {
		return nil, errors.New("agent name is required")
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		agent:      agentName,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Agent returns the agent name the client targets.
func (c *Client) Agent() string {
	return c.agent
}

func (c *Client) endpoint(action string) string {
	return c.baseURL + "/agents/" + url.PathEscape(c.agent) + "/" + action
}

// withTimeout derives the per-turn context.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Invoke performs one buffered turn.
func (c *Client) Invoke(ctx context.Context, req *agent.Request) (*agent.InvokeResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.post(ctx, c.endpoint("invoke"), "application/json", req)
	if err != nil {
		return nil, c.wrapErr("invoke", ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.wrapErr("invoke", ctx, fmt.Errorf("failed to read response: %w", err))
	}

	var out agent.InvokeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse invoke response: %w", err)
	}
	return &out, nil
}

// Stream opens one streamed turn. The per-turn deadline covers reading the
// whole body, so it is released when the returned stream is closed.
func (c *Client) Stream(ctx context.Context, req *agent.Request) (agent.FrameStream, error) {
	ctx, cancel := c.withTimeout(ctx)

	resp, err := c.post(ctx, c.endpoint("stream"), "application/x-ndjson", req)
	if err != nil {
		cancel()
		return nil, c.wrapErr("stream", ctx, err)
	}
	return newFrameStream(ctx, cancel, resp.Body, c.timeout), nil
}

// post sends body as JSON and returns the response when its status is 2xx.
func (c *Client) post(ctx context.Context, endpoint, accept string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", UserAgent)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent API request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := NewAPIError(resp.StatusCode, data)
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		if apiErr.RequestID == "" {
			apiErr.RequestID = resp.Header.Get("X-Request-Id")
		}
		return nil, apiErr
	}
	return resp, nil
}

// wrapErr converts deadline expiry on the per-turn context into a TimeoutError.
func (c *Client) wrapErr(op string, ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Timeout: c.timeout, Err: err}
	}
	return err
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
