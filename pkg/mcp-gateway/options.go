package mcpgateway

import (
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultAddr is the listen address used when Options.Addr is empty.
const DefaultAddr = ":8787"

// Options configure a Gateway instance.
type Options struct {
	// Implementation identifies the aggregated MCP server implementation metadata.
	Implementation *mcp.Implementation
	// Addr controls the listen address used by ListenAndServe. Defaults to ":8787".
	Addr string
	// Path mounts the aggregated Streamable MCP handler. Defaults to "/mcp".
	Path string
	// Namespace customizes how backend tool names are exposed on the
	// aggregated endpoint. Defaults to ServerPrefixNamespace.
	Namespace NamespaceStrategy
	// DefaultServer is used by the REST routes when a request names no
	// server. Defaults to "default".
	DefaultServer string
	// AllowedOrigins configures CORS. Defaults to allowing every origin.
	AllowedOrigins []string
	// AutoConnect connects every configured server during construction and
	// registers its tools on the aggregated endpoint.
	AutoConnect bool
	// Streamable tweaks the Streamable HTTP handler behavior passed to
	// mcp.NewStreamableHTTPHandler.
	Streamable mcp.StreamableHTTPOptions
	// Logger receives structured diagnostics.
	Logger *slog.Logger
	// SyncTimeout bounds how long a tool synchronization or graceful shutdown
	// may take.
	SyncTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.Implementation == nil {
		opts.Implementation = &mcp.Implementation{
			Name:    "mcp-tool-gateway",
			Title:   "MCP Tool Gateway",
			Version: "1.0.0",
		}
	} else {
		impl := *opts.Implementation
		opts.Implementation = &impl
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Path == "" {
		opts.Path = "/mcp"
	}
	if opts.Namespace == nil {
		opts.Namespace = ServerPrefixNamespace{}
	}
	if opts.DefaultServer == "" {
		opts.DefaultServer = "default"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 30 * time.Second
	}
	return opts
}
