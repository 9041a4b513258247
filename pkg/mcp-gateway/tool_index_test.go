package mcpgateway

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolIndexUpdate(t *testing.T) {
	idx := newToolIndex(ServerPrefixNamespace{})
	assert.False(t, idx.Has("math"))

	removed, added := idx.Update("math", []*mcp.Tool{
		{Name: "add", Meta: mcp.Meta{"origin": "upstream"}},
		nil,
		{Name: "sub", InputSchema: map[string]any{"type": "object", "properties": map[string]any{"a": map[string]any{"type": "number"}}}},
	})
	assert.Empty(t, removed)
	require.Len(t, added, 2)
	assert.True(t, idx.Has("math"))
	assert.Equal(t, 2, idx.Count())

	add := added[0]
	assert.Equal(t, "math__add", add.Tool.Name)
	assert.Equal(t, toolTarget{GatewayName: "math__add", ServerName: "math", NativeName: "add"}, add.Target)
	assert.Equal(t, "upstream", add.Tool.Meta["origin"])
	assert.Equal(t, "math", add.Tool.Meta[metaKeyServerName])
	assert.Equal(t, "add", add.Tool.Meta[metaKeyNativeName])
	assert.Equal(t, map[string]any{"type": "object"}, add.Tool.InputSchema)
	assert.Nil(t, add.Tool.OutputSchema)

	sub := added[1]
	schema := sub.Tool.InputSchema.(map[string]any)
	assert.Contains(t, schema, "properties")

	target, ok := idx.Target("math__sub")
	require.True(t, ok)
	assert.Equal(t, "sub", target.NativeName)

	removed, added = idx.Update("math", []*mcp.Tool{{Name: "mul"}})
	assert.ElementsMatch(t, []string{"math__add", "math__sub"}, removed)
	require.Len(t, added, 1)
	assert.Equal(t, 1, idx.Count())
	_, ok = idx.Target("math__add")
	assert.False(t, ok)
}

func TestToolIndexKeepsServersSeparate(t *testing.T) {
	idx := newToolIndex(ServerPrefixNamespace{})
	idx.Update("alpha", []*mcp.Tool{{Name: "echo"}})
	idx.Update("beta", []*mcp.Tool{{Name: "echo"}})
	assert.Equal(t, 2, idx.Count())

	removed, _ := idx.Update("alpha", nil)
	assert.Equal(t, []string{"alpha__echo"}, removed)
	assert.True(t, idx.Has("alpha"))
	_, ok := idx.Target("beta__echo")
	assert.True(t, ok)
}

func TestCloneToolDoesNotMutateUpstream(t *testing.T) {
	upstream := &mcp.Tool{Name: "add", Meta: mcp.Meta{"k": "v"}, OutputSchema: map[string]any{"type": "object"}}
	clone := cloneTool(upstream, "math__add", "math")

	assert.Equal(t, "add", upstream.Name)
	assert.NotContains(t, upstream.Meta, metaKeyServerName)
	assert.NotNil(t, upstream.OutputSchema)
	assert.Equal(t, "math__add", clone.Name)
}
