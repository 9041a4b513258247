package mcpmgr

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RPCDirection represents the direction of an observed JSON-RPC message.
type RPCDirection string

const (
	RPCDirectionSend    RPCDirection = "send"
	RPCDirectionReceive RPCDirection = "receive"
)

// RPCLogEvent encapsulates JSON-RPC traffic for custom logging.
type RPCLogEvent struct {
	Direction RPCDirection
	Message   []byte
	ServerID  string
}

// RPCLogger is invoked for each JSON-RPC message when logging is enabled.
type RPCLogger func(RPCLogEvent)

// TransportKind identifies how a backend server is reached.
type TransportKind string

const (
	// TransportLocalProcess launches the server as a child process and speaks
	// over its standard streams.
	TransportLocalProcess TransportKind = "stdio"
	// TransportNetworkStream connects to an event-stream capable HTTP endpoint.
	TransportNetworkStream TransportKind = "sse"
)

// ServerDescriptor is the validated, static description of one backend server.
// Descriptors are produced by a Resolver and never mutated afterwards.
type ServerDescriptor struct {
	Name      string            `json:"name"`
	Transport TransportKind     `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	LogPath   string            `json:"logPath,omitempty"`

	// PreferStreamable selects the Streamable HTTP transport before falling
	// back to SSE. Set when the config names the "http" transport.
	PreferStreamable bool `json:"preferStreamable,omitempty"`
}

// Validate checks the transport-specific required fields.
func (d ServerDescriptor) Validate() error {
	switch d.Transport {
	case TransportLocalProcess, "":
		if d.Command == "" {
			return fmt.Errorf("server %q: stdio transport requires command field", d.Name)
		}
	case TransportNetworkStream:
		if d.URL == "" {
			return fmt.Errorf("server %q: network transport requires url field", d.Name)
		}
	default:
		return fmt.Errorf("server %q: unsupported transport %q", d.Name, d.Transport)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate resolver output.
func (d ServerDescriptor) Clone() ServerDescriptor {
	out := d
	out.Args = slices.Clone(d.Args)
	out.Env = maps.Clone(d.Env)
	return out
}

// Bootstrap supplies the current list of known server descriptors. The
// manager calls it every time a name it has not connected yet is requested.
type Bootstrap func() ([]ServerDescriptor, error)

// StaticBootstrap returns a Bootstrap that always yields the given descriptors.
func StaticBootstrap(descriptors ...ServerDescriptor) Bootstrap {
	snapshot := make([]ServerDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		snapshot = append(snapshot, d.Clone())
	}
	return func() ([]ServerDescriptor, error) {
		out := make([]ServerDescriptor, 0, len(snapshot))
		for _, d := range snapshot {
			out = append(out, d.Clone())
		}
		return out, nil
	}
}

// TransportFactory builds the client transport for a descriptor. Tests swap
// it for in-memory transports.
type TransportFactory func(ctx context.Context, d ServerDescriptor) (mcp.Transport, error)

// ManagerOptions configures a Manager instance.
type ManagerOptions struct {
	// ClientName is advertised during initialization. When empty, the server
	// name is used.
	ClientName string
	// ClientVersion controls the semantic version reported to servers.
	ClientVersion string
	// ConnectTimeout bounds transport construction plus the initialize
	// handshake.
	ConnectTimeout time.Duration
	// AttemptTimeout bounds each individual dispatch strategy attempt.
	AttemptTimeout time.Duration
	// ListStrategies overrides the ordered tool discovery conventions.
	ListStrategies []ListStrategy
	// CallStrategies overrides the ordered tool invocation conventions.
	CallStrategies []CallStrategy
	// TransportFactory overrides transport construction.
	TransportFactory TransportFactory
	// Logger receives structured diagnostics.
	Logger *slog.Logger
	// LogJSONRPC toggles logging of JSON-RPC traffic through Logger.
	LogJSONRPC bool
	// RPCLogger provides a custom sink for JSON-RPC traffic; it takes
	// precedence over LogJSONRPC.
	RPCLogger RPCLogger
}

const (
	defaultConnectTimeout = 30 * time.Second
	defaultAttemptTimeout = time.Second
)

func (o *ManagerOptions) normalized() ManagerOptions {
	if o == nil {
		o = &ManagerOptions{}
	}
	opts := *o
	if opts.ClientVersion == "" {
		opts.ClientVersion = "1.0.0"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if len(opts.ListStrategies) == 0 {
		opts.ListStrategies = DefaultListStrategies()
	}
	if len(opts.CallStrategies) == 0 {
		opts.CallStrategies = DefaultCallStrategies()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}
