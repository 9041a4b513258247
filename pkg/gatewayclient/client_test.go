package gatewayclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL + "/")
	c.HTTPClient = srv.Client()
	c.InitialInterval = time.Millisecond
	return c
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = io.WriteString(w, `{"ok":true,"servers":[{"name":"math","transport":"stdio","connected":false}],"serverCount":1}`)
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.OK)
	assert.Equal(t, 1, health.ServerCount)
	assert.Equal(t, "math", health.Servers[0].Name)
}

func TestToolsAndProviderRoutes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tools":
			assert.Equal(t, "math", r.URL.Query().Get("server"))
			_, _ = io.WriteString(w, `{"tools":[{"name":"add","description":"Add","inputSchema":{"type":"object"}}]}`)
		case "/tools/openai":
			assert.Empty(t, r.URL.Query().Get("server"))
			_, _ = io.WriteString(w, `{"tools":[{"type":"function"}]}`)
		case "/tools/gemini/context":
			_, _ = io.WriteString(w, `{"context":"You can call the following functions:"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	tools, err := c.Tools(ctx, "math")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "add", tools[0].Name)
	assert.Equal(t, "object", tools[0].Schema["type"])

	envelope, err := c.GetTools(ctx, "openai", "")
	require.NoError(t, err)
	assert.Len(t, envelope["tools"], 1)

	text, err := c.Context(ctx, "gemini", "")
	require.NoError(t, err)
	assert.Equal(t, "You can call the following functions:", text)
}

func TestExecuteSendsProviderCall(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/execute", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "openai", body["provider"])
		assert.Equal(t, "math", body["server"])
		call := body["call"].(map[string]any)
		assert.Equal(t, "add", call["name"])
		_, _ = io.WriteString(w, `{"result":{"content":[{"type":"text","text":"42"}]}}`)
	})

	res, err := c.Execute(context.Background(), "openai", map[string]any{
		"name":      "add",
		"arguments": `{"a":40,"b":2}`,
	}, "math")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"42"}]}`, string(res))
}

func TestCallTool(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call_tool", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "add", body["tool"])
		assert.Equal(t, map[string]any{"a": float64(1)}, body["arguments"])
		_, _ = io.WriteString(w, `{"result":"ok"}`)
	})

	res, err := c.CallTool(context.Background(), "math", "add", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(res))
}

func TestLogsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "math", q.Get("server"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("since"))
		assert.Equal(t, "5", q.Get("limit"))
		_, _ = io.WriteString(w, `[{"msg":"hello"},{"raw":"x","parseError":"bad"}]`)
	})

	entries, err := c.Logs(context.Background(), "math", "2024-01-01T00:00:00Z", 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0]["msg"])
	assert.Equal(t, "x", entries[1]["raw"])
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":"warming up"}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"servers":[],"serverCount":0}`)
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"all list strategies failed for \"math\""}`)
	})
	c.MaxRetries = 2

	_, err := c.Tools(context.Background(), "math")
	require.Error(t, err)
	assert.Equal(t, `gateway HTTP 500: all list strategies failed for "math"`, err.Error())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unknown server: ghost. Available: math"}`)
	})

	_, err := c.Tools(context.Background(), "ghost")
	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "gateway HTTP 400: unknown server: ghost. Available: math", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostIsSentOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.CallTool(context.Background(), "math", "add", nil)
	require.Error(t, err)
	assert.Equal(t, "gateway HTTP 502: 502 Bad Gateway", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPlainTextErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such route", http.StatusNotFound)
	})

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, "gateway HTTP 404: no such route", err.Error())
}

func TestCancelledContextStopsRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.MaxRetries = 100
	c.InitialInterval = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Health(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
