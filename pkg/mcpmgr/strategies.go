package mcpmgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Session is the subset of *mcp.ClientSession the manager dispatches
// against.
type Session interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	Tools(ctx context.Context, params *mcp.ListToolsParams) iter.Seq2[*mcp.Tool, error]
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	Close() error
}

var _ Session = (*mcp.ClientSession)(nil)

// ListStrategy is one tool discovery convention.
type ListStrategy struct {
	Name string
	List func(ctx context.Context, s Session) ([]*mcp.Tool, error)
}

// CallStrategy is one tool invocation convention.
type CallStrategy struct {
	Name string
	Call func(ctx context.Context, s Session, tool string, args map[string]any) (*mcp.CallToolResult, error)
}

// DefaultListStrategies returns the discovery conventions tried in order:
// explicit cursor pagination, then the session's tool iterator.
func DefaultListStrategies() []ListStrategy {
	return []ListStrategy{
		{Name: "paginated-list", List: listPaginated},
		{Name: "iterator", List: listIterator},
	}
}

// DefaultCallStrategies returns the invocation conventions tried in order:
// arguments as a decoded object, then as pre-encoded JSON.
func DefaultCallStrategies() []CallStrategy {
	return []CallStrategy{
		{Name: "object-arguments", Call: callObjectArguments},
		{Name: "raw-arguments", Call: callRawArguments},
	}
}

func listPaginated(ctx context.Context, s Session) ([]*mcp.Tool, error) {
	var (
		tools  []*mcp.Tool
		cursor string
	)
	for {
		res, err := s.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		if res == nil {
			return tools, nil
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" || res.NextCursor == cursor {
			return tools, nil
		}
		cursor = res.NextCursor
	}
}

func listIterator(ctx context.Context, s Session) ([]*mcp.Tool, error) {
	var tools []*mcp.Tool
	for tool, err := range s.Tools(ctx, nil) {
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

func callObjectArguments(ctx context.Context, s Session, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	return s.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
}

func callRawArguments(ctx context.Context, s Session, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	return s.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: json.RawMessage(encoded)})
}

// attemptError records one failed strategy attempt.
type attemptError struct {
	strategy string
	err      error
}

func (e *attemptError) Error() string { return e.strategy + ": " + e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

// ExhaustedError is returned when every strategy failed. Its message lists
// each attempt's failure in order.
type ExhaustedError struct {
	Op       string
	Server   string
	Attempts []error
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("all %s strategies failed for %q: %s", e.Op, e.Server, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() []error { return e.Attempts }

// runListStrategies tries each strategy with its own deadline and returns
// the first success.
func runListStrategies(ctx context.Context, server string, s Session, strategies []ListStrategy, timeout time.Duration) ([]*mcp.Tool, error) {
	var attempts []error
	for _, st := range strategies {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		tools, err := st.List(attemptCtx, s)
		cancel()
		if err == nil {
			return tools, nil
		}
		if isMethodUnavailableError(err, "tools/list") {
			return []*mcp.Tool{}, nil
		}
		attempts = append(attempts, &attemptError{strategy: st.Name, err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &ExhaustedError{Op: "list", Server: server, Attempts: attempts}
}

func runCallStrategies(ctx context.Context, server, tool string, args map[string]any, s Session, strategies []CallStrategy, timeout time.Duration) (*mcp.CallToolResult, error) {
	var attempts []error
	for _, st := range strategies {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		res, err := st.Call(attemptCtx, s, tool, args)
		cancel()
		if err == nil {
			return res, nil
		}
		attempts = append(attempts, &attemptError{strategy: st.Name, err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &ExhaustedError{Op: "call", Server: server, Attempts: attempts}
}

// AllTimeouts reports whether every attempt in err failed on a deadline,
// which usually means the backend is unresponsive rather than mismatched.
func AllTimeouts(err error) bool {
	var ex *ExhaustedError
	if !errors.As(err, &ex) || len(ex.Attempts) == 0 {
		return false
	}
	for _, a := range ex.Attempts {
		if !errors.Is(a, context.DeadlineExceeded) {
			return false
		}
	}
	return true
}

func isMethodUnavailableError(err error, method string) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	if !(strings.Contains(lower, "method not found") ||
		strings.Contains(lower, "not implemented") ||
		strings.Contains(lower, "does not support") ||
		strings.Contains(lower, "unimplemented")) {
		return false
	}
	return strings.Contains(lower, strings.ToLower(method)) || strings.Contains(lower, "method not found")
}
