package mcpmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/singleflight"
)

// ConnectionHandle is a live session with one backend server.
type ConnectionHandle struct {
	Descriptor  ServerDescriptor
	Session     *mcp.ClientSession
	Client      *mcp.Client
	Transport   mcp.Transport
	ConnectedAt time.Time
}

// Manager owns one connection handle per server name. Handles are created on
// first use and reused until the session ends or the manager is closed.
type Manager struct {
	mu sync.RWMutex

	options   ManagerOptions
	bootstrap Bootstrap

	handles map[string]*ConnectionHandle
	connect singleflight.Group

	toolListHandlers []func(ctx context.Context, serverName string)
}

// NewManager constructs a Manager. bootstrap is called each time an unknown
// server name is requested; nil is treated as an empty configuration.
func NewManager(bootstrap Bootstrap, opts *ManagerOptions) *Manager {
	if bootstrap == nil {
		bootstrap = StaticBootstrap()
	}
	return &Manager{
		options:   opts.normalized(),
		bootstrap: bootstrap,
		handles:   make(map[string]*ConnectionHandle),
	}
}

// ServerNames returns the names of every configured server, sorted.
func (m *Manager) ServerNames() ([]string, error) {
	descriptors, err := m.bootstrap()
	if err != nil {
		return nil, err
	}
	names := descriptorNames(descriptors)
	sort.Strings(names)
	return names, nil
}

// Descriptor returns the configuration for name.
func (m *Manager) Descriptor(name string) (ServerDescriptor, error) {
	descriptors, err := m.bootstrap()
	if err != nil {
		return ServerDescriptor{}, err
	}
	d, ok := findDescriptor(descriptors, name)
	if !ok {
		return ServerDescriptor{}, &UnknownServerError{Name: name, Available: descriptorNames(descriptors)}
	}
	return d, nil
}

// Connected reports whether a live handle exists for name.
func (m *Manager) Connected(name string) bool {
	return m.handle(name) != nil
}

func (m *Manager) handle(name string) *ConnectionHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles[name]
}

// Ensure returns the handle for name, connecting first if needed.
// Concurrent first-time calls for the same name share one connection
// attempt. Connection failures are returned unchanged and are not retried.
func (m *Manager) Ensure(ctx context.Context, name string) (*ConnectionHandle, error) {
	if h := m.handle(name); h != nil {
		return h, nil
	}
	ch := m.connect.DoChan(name, func() (any, error) {
		if h := m.handle(name); h != nil {
			return h, nil
		}
		// The attempt may be shared with other callers, so it must not
		// die with the first caller's context.
		return m.establish(context.WithoutCancel(ctx), name)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ConnectionHandle), nil
	}
}

func (m *Manager) establish(ctx context.Context, name string) (*ConnectionHandle, error) {
	descriptors, err := m.bootstrap()
	if err != nil {
		return nil, err
	}
	d, ok := findDescriptor(descriptors, name)
	if !ok {
		return nil, &UnknownServerError{Name: name, Available: descriptorNames(descriptors)}
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.options.ConnectTimeout)
	defer cancel()

	transports, err := m.transportsFor(connectCtx, d)
	if err != nil {
		return nil, err
	}

	impl := &mcp.Implementation{Name: m.clientName(name), Version: m.options.ClientVersion}
	rpcLogger := m.resolveRPCLogger()

	var errs []error
	for _, transport := range transports {
		client := mcp.NewClient(impl, &mcp.ClientOptions{
			ToolListChangedHandler: func(ctx context.Context, _ *mcp.ToolListChangedRequest) {
				m.dispatchToolListChanged(ctx, name)
			},
		})
		wrapped := transport
		if rpcLogger != nil {
			wrapped = &loggingTransport{serverID: name, delegate: transport, logger: rpcLogger}
		}
		session, err := client.Connect(connectCtx, wrapped, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		h := &ConnectionHandle{
			Descriptor:  d,
			Session:     session,
			Client:      client,
			Transport:   transport,
			ConnectedAt: time.Now(),
		}
		m.mu.Lock()
		m.handles[name] = h
		m.mu.Unlock()
		m.options.Logger.Info("connected to MCP server",
			"server", name,
			"transport", string(TransportOf(d)),
		)
		go m.monitorSession(name, h)
		return h, nil
	}
	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, errors.Join(errs...)
}

// monitorSession drops the handle once its session ends so the next request
// reconnects.
func (m *Manager) monitorSession(name string, h *ConnectionHandle) {
	err := h.Session.Wait()
	m.mu.Lock()
	if m.handles[name] == h {
		delete(m.handles, name)
	}
	m.mu.Unlock()
	if err != nil {
		m.options.Logger.Warn("MCP session ended", "server", name, "error", err)
		return
	}
	m.options.Logger.Debug("MCP session closed", "server", name)
}

func (m *Manager) clientName(serverName string) string {
	if m.options.ClientName != "" {
		return m.options.ClientName
	}
	return serverName
}

// ListTools returns the canonical tool catalogue of a server.
func (m *Manager) ListTools(ctx context.Context, name string) ([]Tool, error) {
	raw, err := m.ListRawTools(ctx, name)
	if err != nil {
		return nil, err
	}
	return ToolsFromMCP(raw)
}

// ListRawTools returns the protocol-level tool catalogue of a server, trying
// each configured list strategy in turn.
func (m *Manager) ListRawTools(ctx context.Context, name string) ([]*mcp.Tool, error) {
	h, err := m.Ensure(ctx, name)
	if err != nil {
		return nil, err
	}
	return runListStrategies(ctx, name, h.Session, m.options.ListStrategies, m.options.AttemptTimeout)
}

// CallTool invokes tool on the named server with canonical arguments,
// trying each configured call strategy in turn.
func (m *Manager) CallTool(ctx context.Context, name, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	if tool == "" {
		return nil, fmt.Errorf("missing tool name for server %q", name)
	}
	h, err := m.Ensure(ctx, name)
	if err != nil {
		return nil, err
	}
	return runCallStrategies(ctx, name, tool, args, h.Session, m.options.CallStrategies, m.options.AttemptTimeout)
}

// ServerHealth reports, for every configured server, whether a live
// connection currently exists. Configured but never used servers report
// Connected=false.
func (m *Manager) ServerHealth() ([]ServerHealth, error) {
	descriptors, err := m.bootstrap()
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServerHealth, 0, len(descriptors))
	for _, d := range descriptors {
		_, connected := m.handles[d.Name]
		out = append(out, ServerHealth{Name: d.Name, Transport: TransportOf(d), Connected: connected})
	}
	return out, nil
}

// ServerCount returns the number of configured servers.
func (m *Manager) ServerCount() (int, error) {
	descriptors, err := m.bootstrap()
	if err != nil {
		return 0, err
	}
	return len(descriptors), nil
}

// OnToolListChanged registers a handler invoked when any connected server
// announces that its tool list changed.
func (m *Manager) OnToolListChanged(handler func(ctx context.Context, serverName string)) {
	if handler == nil {
		return
	}
	m.mu.Lock()
	m.toolListHandlers = append(m.toolListHandlers, handler)
	m.mu.Unlock()
}

func (m *Manager) dispatchToolListChanged(ctx context.Context, name string) {
	m.mu.RLock()
	handlers := append([]func(context.Context, string){}, m.toolListHandlers...)
	m.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, name)
	}
}

// Disconnect closes the session for name, if any.
func (m *Manager) Disconnect(ctx context.Context, name string) error {
	m.mu.Lock()
	h := m.handles[name]
	delete(m.handles, name)
	m.mu.Unlock()
	if h == nil {
		return nil
	}
	return closeSession(ctx, h.Session)
}

// Close disconnects every server.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]*ConnectionHandle)
	m.mu.Unlock()

	var errs []error
	for name, h := range handles {
		if err := closeSession(ctx, h.Session); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func closeSession(ctx context.Context, session *mcp.ClientSession) error {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan error, 1)
	go func() { done <- session.Close() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
