package mcpmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// transportsFor returns the transports to try, in order, for d. Network
// stream descriptors fall back between Streamable HTTP and SSE.
func (m *Manager) transportsFor(ctx context.Context, d ServerDescriptor) ([]mcp.Transport, error) {
	if m.options.TransportFactory != nil {
		t, err := m.options.TransportFactory(ctx, d)
		if err != nil {
			return nil, err
		}
		return []mcp.Transport{t}, nil
	}
	switch TransportOf(d) {
	case TransportLocalProcess:
		t, err := buildStdioTransport(d)
		if err != nil {
			return nil, err
		}
		return []mcp.Transport{t}, nil
	case TransportNetworkStream:
		if d.URL == "" {
			return nil, fmt.Errorf("server %q: network transport requires url field", d.Name)
		}
		sse := &mcp.SSEClientTransport{Endpoint: d.URL, HTTPClient: http.DefaultClient}
		streamable := &mcp.StreamableClientTransport{Endpoint: d.URL, HTTPClient: http.DefaultClient, MaxRetries: 1}
		if shouldPreferStreamable(d) {
			return []mcp.Transport{streamable, sse}, nil
		}
		return []mcp.Transport{sse, streamable}, nil
	default:
		return nil, fmt.Errorf("server %q: unsupported transport %q", d.Name, d.Transport)
	}
}

// shouldPreferStreamable keeps SSE first for endpoints that advertise it in
// their path.
func shouldPreferStreamable(d ServerDescriptor) bool {
	if d.PreferStreamable {
		return true
	}
	return !strings.HasSuffix(strings.TrimRight(d.URL, "/"), "/sse")
}

func buildStdioTransport(d ServerDescriptor) (*mcp.CommandTransport, error) {
	if d.Command == "" {
		return nil, fmt.Errorf("server %q: stdio transport requires command field", d.Name)
	}
	cmd := exec.Command(d.Command, d.Args...)
	if len(d.Env) > 0 {
		keys := make([]string, 0, len(d.Env))
		for k := range d.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		env := os.Environ()
		for _, k := range keys {
			env = append(env, fmt.Sprintf("%s=%s", k, d.Env[k]))
		}
		cmd.Env = env
	}
	cmd.Stderr = os.Stderr
	return &mcp.CommandTransport{Command: cmd}, nil
}

func (m *Manager) resolveRPCLogger() RPCLogger {
	if m.options.RPCLogger != nil {
		return m.options.RPCLogger
	}
	if m.options.LogJSONRPC {
		logger := m.options.Logger
		return func(event RPCLogEvent) {
			logger.Debug("jsonrpc",
				"server", event.ServerID,
				"direction", string(event.Direction),
				"message", string(event.Message),
			)
		}
	}
	return nil
}

type loggingTransport struct {
	serverID string
	delegate mcp.Transport
	logger   RPCLogger
}

func (t *loggingTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := t.delegate.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &loggingConnection{serverID: t.serverID, delegate: conn, logger: t.logger}, nil
}

type loggingConnection struct {
	serverID string
	delegate mcp.Connection
	logger   RPCLogger
	mu       sync.Mutex
}

func (c *loggingConnection) SessionID() string { return c.delegate.SessionID() }

func (c *loggingConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	msg, err := c.delegate.Read(ctx)
	if err == nil {
		c.emit(RPCDirectionReceive, msg)
	}
	return msg, err
}

func (c *loggingConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	if err := c.delegate.Write(ctx, msg); err != nil {
		return err
	}
	c.emit(RPCDirectionSend, msg)
	return nil
}

func (c *loggingConnection) Close() error { return c.delegate.Close() }

func (c *loggingConnection) emit(direction RPCDirection, msg jsonrpc.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	encoded, err := json.Marshal(msg)
	if err != nil {
		encoded = []byte(err.Error())
	}
	c.logger(RPCLogEvent{Direction: direction, Message: encoded, ServerID: c.serverID})
}
