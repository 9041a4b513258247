package mcpmgr

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tidwall/gjson"
)

// schemaAliases lists the field names a tool's argument schema has appeared
// under across protocol library versions, in priority order.
var schemaAliases = []string{"inputSchema", "input_schema", "parameters"}

// Tool is the canonical, provider-agnostic description of a backend tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"inputSchema,omitempty"`
}

// EffectiveDescription returns the description, or "tool: <name>" when the
// backend did not supply one.
func (t Tool) EffectiveDescription() string {
	if t.Description != "" {
		return t.Description
	}
	return DefaultDescription(t.Name)
}

// DefaultDescription is the synthesized description for an undocumented tool.
func DefaultDescription(name string) string {
	return "tool: " + name
}

// Properties returns the top-level schema properties, or nil.
func (t Tool) Properties() map[string]any {
	props, _ := t.Schema["properties"].(map[string]any)
	return props
}

// Required returns the top-level required property names.
func (t Tool) Required() []string {
	return StringList(t.Schema["required"])
}

// StringList converts a decoded JSON array of strings to []string, skipping
// non-string members.
func StringList(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ToolFromJSON decodes a tool descriptor, reading the schema from the first
// alias present in schemaAliases.
func ToolFromJSON(raw []byte) (Tool, error) {
	if !gjson.ValidBytes(raw) {
		return Tool{}, fmt.Errorf("invalid tool JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Tool{}, fmt.Errorf("tool descriptor must be an object")
	}
	name := doc.Get("name")
	if name.Type != gjson.String || name.String() == "" {
		return Tool{}, fmt.Errorf("tool descriptor missing string \"name\"")
	}
	tool := Tool{
		Name:        name.String(),
		Description: doc.Get("description").String(),
	}
	for _, alias := range schemaAliases {
		res := doc.Get(alias)
		if !res.Exists() || res.Type == gjson.Null {
			continue
		}
		if schema, ok := res.Value().(map[string]any); ok {
			tool.Schema = schema
		}
		break
	}
	if tool.Schema == nil {
		tool.Schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return tool, nil
}

// ToolFromMCP converts a protocol-level tool into the canonical form.
func ToolFromMCP(t *mcp.Tool) (Tool, error) {
	if t == nil {
		return Tool{}, fmt.Errorf("nil tool")
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return Tool{}, fmt.Errorf("encode tool %q: %w", t.Name, err)
	}
	return ToolFromJSON(raw)
}

// ToolsFromMCP converts a tool list, failing on the first malformed entry.
func ToolsFromMCP(tools []*mcp.Tool) ([]Tool, error) {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		ct, err := ToolFromMCP(t)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// Invocation is the canonical tool call: arguments are always a decoded
// object, never a JSON string.
type Invocation struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// LogEntry is one line of a backend's newline-delimited JSON log. Lines that
// fail to parse are represented with the "raw" and "parseError" keys.
type LogEntry map[string]any

// ServerHealth reports whether a live session exists for a known server.
type ServerHealth struct {
	Name      string        `json:"name"`
	Transport TransportKind `json:"transport"`
	Connected bool          `json:"connected"`
}
