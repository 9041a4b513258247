package provider

import "github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"

// allowList names the JSON Schema keywords a provider accepts inside a
// property definition.
type allowList map[string]struct{}

func newAllowList(keys ...string) allowList {
	out := make(allowList, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

var (
	commonKeywords = []string{"type", "description", "enum", "format", "nullable"}

	geminiKeywords = newAllowList(commonKeywords...)

	openAIKeywords = newAllowList(append([]string{
		"default",
		"minimum", "maximum",
		"minLength", "maxLength",
		"pattern",
		"minItems", "maxItems",
		"additionalProperties",
	}, commonKeywords...)...)
)

// parameters builds the top-level parameter object for tool. The required
// key is omitted entirely when no field is required.
func parameters(tool mcpmgr.Tool, allow allowList) map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": sanitizeProperties(tool.Properties(), allow),
	}
	if required := tool.Required(); len(required) > 0 {
		out["required"] = required
	}
	return out
}

func sanitizeProperties(props map[string]any, allow allowList) map[string]any {
	out := make(map[string]any, len(props))
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[name] = sanitizeProperty(prop, allow)
	}
	return out
}

// sanitizeProperty copies allow-listed keywords and recurses into array
// items and nested object properties.
func sanitizeProperty(prop map[string]any, allow allowList) map[string]any {
	out := make(map[string]any, len(prop))
	for key, value := range prop {
		if _, ok := allow[key]; ok {
			out[key] = value
		}
	}
	if items, ok := prop["items"].(map[string]any); ok {
		out["items"] = sanitizeProperty(items, allow)
	}
	if nested, ok := prop["properties"].(map[string]any); ok {
		out["properties"] = sanitizeProperties(nested, allow)
		if required := mcpmgr.StringList(prop["required"]); len(required) > 0 {
			out["required"] = required
		}
	}
	return out
}
