// Package gatewayclient is a Go client for the MCP tool gateway HTTP API.
//
// Read-only calls are retried with exponential backoff on transport errors
// and 5xx responses. Tool executions are sent once because the backend tool
// may not be idempotent.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	mcpgateway "github.com/vikashloomba/mcp-tool-gateway/pkg/mcp-gateway"
	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

const (
	defaultMaxRetries      = 3
	defaultInitialInterval = 200 * time.Millisecond
)

// Client talks to a running gateway. The zero value is not usable; set
// BaseURL or use New.
type Client struct {
	// BaseURL is the gateway root, e.g. "http://localhost:8787".
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// MaxRetries bounds additional attempts for read-only calls.
	MaxRetries uint
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
}

// New returns a Client with default retry settings.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:         baseURL,
		MaxRetries:      defaultMaxRetries,
		InitialInterval: defaultInitialInterval,
	}
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gateway HTTP %d: %s", e.StatusCode, e.Message)
}

// Health returns the gateway's view of every configured server.
func (c *Client) Health(ctx context.Context) (*mcpgateway.HealthResponse, error) {
	var out mcpgateway.HealthResponse
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tools returns the canonical tool catalogue of server. An empty server
// selects the gateway's default.
func (c *Client) Tools(ctx context.Context, server string) ([]mcpmgr.Tool, error) {
	var out mcpgateway.ToolsResponse
	if err := c.get(ctx, "/tools", serverQuery(server), &out); err != nil {
		return nil, err
	}
	return out.Tools, nil
}

// GetTools returns server's tools in the provider's declaration envelope.
func (c *Client) GetTools(ctx context.Context, provider, server string) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "/tools/"+url.PathEscape(provider), serverQuery(server), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Context returns the prompt-ready tool listing for provider.
func (c *Client) Context(ctx context.Context, provider, server string) (string, error) {
	var out mcpgateway.ContextResponse
	if err := c.get(ctx, "/tools/"+url.PathEscape(provider)+"/context", serverQuery(server), &out); err != nil {
		return "", err
	}
	return out.Context, nil
}

// Execute forwards a provider-shaped function call and returns the raw
// result JSON.
func (c *Client) Execute(ctx context.Context, provider string, call any, server string) (json.RawMessage, error) {
	rawCall, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("encode call: %w", err)
	}
	var out struct {
		Result json.RawMessage `json:"result"`
	}
	req := mcpgateway.ExecuteRequest{Provider: provider, Call: rawCall, Server: server}
	if err := c.post(ctx, "/execute", req, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// CallTool invokes tool on server with canonical arguments.
func (c *Client) CallTool(ctx context.Context, server, tool string, args map[string]any) (json.RawMessage, error) {
	var out struct {
		Result json.RawMessage `json:"result"`
	}
	req := mcpgateway.CallToolRequest{Server: server, Tool: tool, Arguments: args}
	if err := c.post(ctx, "/call_tool", req, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Logs tails server's log file. A zero limit uses the gateway default and an
// empty since disables the time filter.
func (c *Client) Logs(ctx context.Context, server, since string, limit int) ([]mcpmgr.LogEntry, error) {
	q := serverQuery(server)
	if since != "" {
		q.Set("since", since)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []mcpmgr.LogEntry
	if err := c.get(ctx, "/logs", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func serverQuery(server string) url.Values {
	q := url.Values{}
	if server != "" {
		q.Set("server", server)
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodGet, path, query, nil, out)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.MaxRetries+1),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	err = c.do(ctx, http.MethodPost, path, nil, payload, out)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

// do performs one request. Client errors and undecodable bodies are marked
// permanent.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
		if resp.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(httpErr)
		}
		return httpErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func errorMessage(raw []byte, status string) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return status
}
