package mcpgateway

import (
	"maps"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	metaKeyServerName = "mcpgateway.server"
	metaKeyNativeName = "mcpgateway.native_name"
)

// toolIndex tracks which aggregated tool names belong to which backend so a
// resync can remove exactly the names a server previously contributed.
type toolIndex struct {
	ns NamespaceStrategy

	mu          sync.RWMutex
	tools       map[string]toolTarget
	serverTools map[string][]string
}

type toolTarget struct {
	GatewayName string
	ServerName  string
	NativeName  string
}

type toolRegistration struct {
	Tool   *mcp.Tool
	Target toolTarget
}

func newToolIndex(ns NamespaceStrategy) *toolIndex {
	return &toolIndex{
		ns:          ns,
		tools:       make(map[string]toolTarget),
		serverTools: make(map[string][]string),
	}
}

// Update replaces the server's tool set and reports the aggregated names to
// remove and the registrations to add.
func (x *toolIndex) Update(serverName string, upstream []*mcp.Tool) (removed []string, added []toolRegistration) {
	x.mu.Lock()
	defer x.mu.Unlock()

	removed = x.removeLocked(serverName)
	added = make([]toolRegistration, 0, len(upstream))
	names := make([]string, 0, len(upstream))
	for _, tool := range upstream {
		if tool == nil {
			continue
		}
		gatewayName := x.ns.ToolName(serverName, tool.Name)
		target := toolTarget{GatewayName: gatewayName, ServerName: serverName, NativeName: tool.Name}
		x.tools[gatewayName] = target
		added = append(added, toolRegistration{Tool: cloneTool(tool, gatewayName, serverName), Target: target})
		names = append(names, gatewayName)
	}
	x.serverTools[serverName] = names
	return removed, added
}

func (x *toolIndex) Target(gatewayName string) (toolTarget, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	t, ok := x.tools[gatewayName]
	return t, ok
}

// Has reports whether serverName has been synchronized at least once.
func (x *toolIndex) Has(serverName string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.serverTools[serverName]
	return ok
}

// Count returns the number of aggregated tools across all servers.
func (x *toolIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.tools)
}

func (x *toolIndex) removeLocked(serverName string) []string {
	names := x.serverTools[serverName]
	if len(names) == 0 {
		return nil
	}
	for _, name := range names {
		delete(x.tools, name)
	}
	delete(x.serverTools, serverName)
	return append([]string(nil), names...)
}

func cloneTool(tool *mcp.Tool, gatewayName, serverName string) *mcp.Tool {
	clone := *tool
	clone.Name = gatewayName
	clone.Meta = maps.Clone(tool.Meta)
	if clone.Meta == nil {
		clone.Meta = make(mcp.Meta)
	}
	clone.Meta[metaKeyServerName] = serverName
	clone.Meta[metaKeyNativeName] = tool.Name
	clone.InputSchema = objectSchema(tool.InputSchema)
	// Results are forwarded verbatim.
	clone.OutputSchema = nil
	return &clone
}

// objectSchema returns schema when it is a JSON object schema, else an
// empty object schema. mcp.Server.AddTool rejects anything else.
func objectSchema(schema any) any {
	if m, ok := schema.(map[string]any); ok && m["type"] == "object" {
		return m
	}
	return map[string]any{"type": "object"}
}
