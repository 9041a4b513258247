package mcpgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

// syncConcurrency bounds how many backends SyncAll lists at once.
const syncConcurrency = 4

// Gateway serves the provider-translating JSON API and an aggregated
// Streamable MCP endpoint for every server known to an mcpmgr.Manager.
type Gateway struct {
	manager *mcpmgr.Manager
	opts    Options

	tools   *toolIndex
	metrics *metrics

	server        *mcp.Server
	streamHandler *mcp.StreamableHTTPHandler
	router        chi.Router
	httpHandler   http.Handler

	serverMu     sync.Mutex
	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// NewGateway builds a Gateway. With Options.AutoConnect set, every
// configured server is connected and its tools registered before returning;
// failures are logged and do not prevent construction.
func NewGateway(mgr *mcpmgr.Manager, opts *Options) (*Gateway, error) {
	if mgr == nil {
		return nil, fmt.Errorf("mcpgateway: manager is required")
	}
	options := opts.withDefaults()
	g := &Gateway{
		manager: mgr,
		opts:    options,
		tools:   newToolIndex(options.Namespace),
	}
	g.metrics = newMetrics(g.tools.Count)

	g.server = mcp.NewServer(options.Implementation, &mcp.ServerOptions{
		HasTools:           true,
		InitializedHandler: g.handleInitialized,
	})
	g.streamHandler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return g.server
	}, &options.Streamable)
	g.router = g.buildRouter()
	g.httpHandler = cors.New(cors.Options{
		AllowedOrigins: options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{CorrelationHeader, "Mcp-Session-Id"},
	}).Handler(g.router)

	mgr.OnToolListChanged(func(_ context.Context, serverName string) {
		go func() {
			if err := g.SyncServer(context.Background(), serverName); err != nil {
				g.logError("resync tools", err, "server", serverName)
			}
		}()
	})

	if options.AutoConnect {
		if err := g.SyncAll(context.Background()); err != nil {
			options.Logger.Warn("autoconnect incomplete", "error", err)
		}
	}
	return g, nil
}

// Handler exposes the HTTP handler serving every route.
func (g *Gateway) Handler() http.Handler {
	return g.httpHandler
}

// Router exposes the chi router so callers can mount extra routes before
// serving.
func (g *Gateway) Router() chi.Router {
	return g.router
}

// Options returns a copy of the effective options.
func (g *Gateway) Options() Options {
	return g.opts
}

func (g *Gateway) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withCorrelation)
	r.Use(g.observe)

	r.Get("/health", g.handleHealth)
	r.Get("/tools", g.handleTools)
	r.Get("/tools/{provider}", g.handleProviderTools)
	r.Get("/tools/{provider}/context", g.handleProviderContext)
	r.Post("/execute", g.handleExecute)
	r.Post("/call_tool", g.handleCallTool)
	r.Get("/logs", g.handleLogs)
	r.Method(http.MethodGet, "/metrics", g.metrics.handler())

	path := g.opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimSuffix(path, "/")
	r.Handle(path, g.streamHandler)
	r.Handle(path+"/*", g.streamHandler)
	return r
}

// ListenAndServe runs an HTTP server until the provided context is cancelled or
// the server stops.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		serv := g.httpServer
		g.httpServerMu.Unlock()
		return fmt.Errorf("mcpgateway: server already running on %s", serv.Addr)
	}
	srv := &http.Server{
		Addr:              g.opts.Addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.opts.SyncTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

// SyncAll refreshes the aggregated tools of every configured server. One
// failing server does not stop the others; all failures are returned joined.
func (g *Gateway) SyncAll(ctx context.Context) error {
	names, err := g.manager.ServerNames()
	if err != nil {
		return err
	}
	var (
		mu   sync.Mutex
		errs []error
		eg   errgroup.Group
	)
	eg.SetLimit(syncConcurrency)
	for _, name := range names {
		eg.Go(func() error {
			if err := g.SyncServer(ctx, name); err != nil {
				g.logError("sync server", err, "server", name)
				mu.Lock()
				errs = append(errs, fmt.Errorf("sync %q: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}

// SyncServer connects a server if needed and refreshes its aggregated tools.
func (g *Gateway) SyncServer(ctx context.Context, serverName string) error {
	ctx, cancel := g.syncContext(ctx)
	defer cancel()
	raw, err := g.manager.ListRawTools(ctx, serverName)
	if err != nil {
		return err
	}
	g.applyTools(serverName, raw)
	return nil
}

func (g *Gateway) applyTools(serverName string, raw []*mcp.Tool) {
	g.serverMu.Lock()
	defer g.serverMu.Unlock()
	g.applyToolsLocked(serverName, raw)
}

// applyToolsLocked keeps the index and the MCP server in step; callers hold
// serverMu so concurrent syncs of one server apply in a single order.
func (g *Gateway) applyToolsLocked(serverName string, raw []*mcp.Tool) {
	removed, added := g.tools.Update(serverName, raw)
	if len(removed) > 0 {
		g.server.RemoveTools(removed...)
	}
	for _, reg := range added {
		g.server.AddTool(reg.Tool, g.handleAggregatedCall)
	}
}

// noteTools registers a server's tools on the aggregated endpoint the first
// time the REST API lists them.
func (g *Gateway) noteTools(serverName string, raw []*mcp.Tool) {
	g.serverMu.Lock()
	defer g.serverMu.Unlock()
	if g.tools.Has(serverName) {
		return
	}
	g.applyToolsLocked(serverName, raw)
}

// handleInitialized starts a background sync when a downstream MCP client
// connects before any backend has been listed. Tools then arrive through
// tools/list_changed notifications.
func (g *Gateway) handleInitialized(context.Context, *mcp.InitializedRequest) {
	if g.tools.Count() > 0 {
		return
	}
	go func() {
		if err := g.SyncAll(context.Background()); err != nil {
			g.logError("sync on initialize", err)
		}
	}()
}

// handleAggregatedCall routes an aggregated tool call by its current name,
// so a resync never leaves a stale target behind.
func (g *Gateway) handleAggregatedCall(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.Params == nil {
		return nil, errors.New("missing tool call params")
	}
	target, ok := g.resolveTarget(req.Params.Name)
	if !ok {
		return nil, fmt.Errorf("unknown aggregated tool %q", req.Params.Name)
	}
	args := map[string]any{}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", target.GatewayName, err)
		}
	}
	return g.callTool(ctx, target.ServerName, "mcp", target.NativeName, args)
}

// resolveTarget looks the name up in the index, falling back to the
// namespace for names removed by a resync that is still in flight.
func (g *Gateway) resolveTarget(gatewayName string) (toolTarget, bool) {
	if target, ok := g.tools.Target(gatewayName); ok {
		return target, true
	}
	serverName, nativeName, ok := g.opts.Namespace.SplitToolName(gatewayName)
	if !ok {
		return toolTarget{}, false
	}
	return toolTarget{GatewayName: gatewayName, ServerName: serverName, NativeName: nativeName}, true
}

// callTool dispatches through the manager and records metrics.
func (g *Gateway) callTool(ctx context.Context, serverName, providerName, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	start := time.Now()
	res, err := g.manager.CallTool(ctx, serverName, tool, args)
	label := serverName
	if errors.Is(err, mcpmgr.ErrUnknownServer) {
		label = unknownServerLabel
	}
	g.metrics.observeToolCall(label, providerName, err, time.Since(start))
	if err != nil {
		g.logger(ctx).Warn("tool call failed",
			"server", serverName,
			"tool", tool,
			"provider", providerName,
			"error", err,
		)
	}
	return res, err
}

func (g *Gateway) syncContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, g.opts.SyncTimeout)
}

func (g *Gateway) logError(msg string, err error, args ...any) {
	if err == nil {
		return
	}
	attrs := append([]any{"error", err}, args...)
	g.opts.Logger.Error(msg, attrs...)
}
