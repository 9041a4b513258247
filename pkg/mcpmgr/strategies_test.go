package mcpmgr

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession scripts each Session method independently.
type fakeSession struct {
	listTools func(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	tools     func(ctx context.Context) ([]*mcp.Tool, error)
	callTool  func(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
}

func (f *fakeSession) ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
	return f.listTools(ctx, params)
}

func (f *fakeSession) Tools(ctx context.Context, _ *mcp.ListToolsParams) iter.Seq2[*mcp.Tool, error] {
	return func(yield func(*mcp.Tool, error) bool) {
		tools, err := f.tools(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, t := range tools {
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (f *fakeSession) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	return f.callTool(ctx, params)
}

func (f *fakeSession) Close() error { return nil }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestListPaginatedFollowsCursor(t *testing.T) {
	t.Parallel()

	s := &fakeSession{
		listTools: func(_ context.Context, p *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
			switch p.Cursor {
			case "":
				return &mcp.ListToolsResult{Tools: []*mcp.Tool{{Name: "a"}}, NextCursor: "page-2"}, nil
			case "page-2":
				return &mcp.ListToolsResult{Tools: []*mcp.Tool{{Name: "b"}}}, nil
			}
			return nil, errors.New("unexpected cursor")
		},
	}

	tools, err := runListStrategies(context.Background(), "math", s, DefaultListStrategies(), time.Second)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "a", tools[0].Name)
	assert.Equal(t, "b", tools[1].Name)
}

func TestListFallsBackToIterator(t *testing.T) {
	t.Parallel()

	s := &fakeSession{
		listTools: func(context.Context, *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
			return nil, errors.New("unexpected response shape")
		},
		tools: func(context.Context) ([]*mcp.Tool, error) {
			return []*mcp.Tool{{Name: "add"}}, nil
		},
	}

	tools, err := runListStrategies(context.Background(), "math", s, DefaultListStrategies(), time.Second)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "add", tools[0].Name)
}

func TestListExhaustionConcatenatesAttempts(t *testing.T) {
	t.Parallel()

	s := &fakeSession{
		listTools: func(context.Context, *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
			return nil, errors.New("boom")
		},
		tools: func(context.Context) ([]*mcp.Tool, error) {
			return nil, errors.New("bang")
		},
	}

	_, err := runListStrategies(context.Background(), "math", s, DefaultListStrategies(), time.Second)
	require.EqualError(t, err, `all list strategies failed for "math": paginated-list: boom; iterator: bang`)
	assert.False(t, AllTimeouts(err))

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Len(t, ex.Attempts, 2)
}

func TestListEachAttemptIsTimeBounded(t *testing.T) {
	t.Parallel()

	s := &fakeSession{
		listTools: func(ctx context.Context, _ *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
			return nil, blockUntilDone(ctx)
		},
		tools: func(ctx context.Context) ([]*mcp.Tool, error) {
			return nil, blockUntilDone(ctx)
		},
	}

	start := time.Now()
	_, err := runListStrategies(context.Background(), "math", s, DefaultListStrategies(), 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, AllTimeouts(err), "expected every attempt to time out: %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestListMethodUnavailableYieldsEmpty(t *testing.T) {
	t.Parallel()

	s := &fakeSession{
		listTools: func(context.Context, *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
			return nil, errors.New(`calling "tools/list": Method not found`)
		},
	}

	tools, err := runListStrategies(context.Background(), "math", s, DefaultListStrategies(), time.Second)
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestCallFallsBackToRawArguments(t *testing.T) {
	t.Parallel()

	var seen []any
	s := &fakeSession{
		callTool: func(_ context.Context, p *mcp.CallToolParams) (*mcp.CallToolResult, error) {
			seen = append(seen, p.Arguments)
			if _, ok := p.Arguments.(json.RawMessage); !ok {
				return nil, errors.New("arguments rejected")
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "42"}}}, nil
		},
	}

	res, err := runCallStrategies(context.Background(), "math", "add", map[string]any{"a": 15, "b": 27}, s, DefaultCallStrategies(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "42", res.Content[0].(*mcp.TextContent).Text)
	require.Len(t, seen, 2)
	assert.Equal(t, map[string]any{"a": 15, "b": 27}, seen[0])
	assert.JSONEq(t, `{"a":15,"b":27}`, string(seen[1].(json.RawMessage)))
}

func TestCallExhaustionReportsEveryAttempt(t *testing.T) {
	t.Parallel()

	s := &fakeSession{
		callTool: func(ctx context.Context, _ *mcp.CallToolParams) (*mcp.CallToolResult, error) {
			return nil, blockUntilDone(ctx)
		},
	}

	_, err := runCallStrategies(context.Background(), "math", "add", nil, s, DefaultCallStrategies(), 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `all call strategies failed for "math"`)
	assert.Contains(t, err.Error(), "object-arguments: context deadline exceeded")
	assert.Contains(t, err.Error(), "raw-arguments: context deadline exceeded")
	assert.True(t, AllTimeouts(err))
}

func TestCallStopsWhenCallerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s := &fakeSession{
		callTool: func(context.Context, *mcp.CallToolParams) (*mcp.CallToolResult, error) {
			calls++
			cancel()
			return nil, errors.New("interrupted")
		},
	}

	_, err := runCallStrategies(ctx, "math", "add", nil, s, DefaultCallStrategies(), time.Second)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
