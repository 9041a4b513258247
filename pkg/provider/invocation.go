package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

// decodeCall normalizes a call that may arrive as a decoded map, raw JSON,
// or any JSON-marshalable value into a map.
func decodeCall(provider string, call any) (map[string]any, error) {
	var raw []byte
	switch v := call.(type) {
	case nil:
		return nil, fmt.Errorf("invalid %s call: expected object", provider)
	case map[string]any:
		return v, nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s call: %w", provider, err)
		}
		raw = encoded
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("invalid %s call: expected object", provider)
	}
	return obj, nil
}

// translateCall implements the shared invocation rules. Arguments are read
// from primary, then fallback; either may hold an object or a JSON string.
func translateCall(provider string, call any, primary, fallback string) (mcpmgr.Invocation, error) {
	obj, err := decodeCall(provider, call)
	if err != nil {
		return mcpmgr.Invocation{}, err
	}
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return mcpmgr.Invocation{}, fmt.Errorf("invalid %s call: missing string \"name\"", provider)
	}

	field := primary
	value, present := obj[primary]
	if !present || value == nil {
		if v, ok := obj[fallback]; ok && v != nil {
			field, value = fallback, v
		}
	}
	args, err := coerceArguments(field, value)
	if err != nil {
		return mcpmgr.Invocation{}, err
	}
	return mcpmgr.Invocation{Name: name, Arguments: args}, nil
}

// coerceArguments accepts an object, a JSON-encoded object, or nothing.
func coerceArguments(field string, value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return normalizeNumbers(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]any{}, nil
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(v), &args); err != nil {
			return nil, fmt.Errorf("invalid JSON in %q: %v", field, err)
		}
		if args == nil {
			return nil, fmt.Errorf("invalid JSON in %q: expected object", field)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("invalid %q: expected object or JSON string, got %T", field, value)
	}
}

// normalizeNumbers round-trips an argument map through JSON so that values
// built in Go (ints, structs) compare equal to ones decoded from strings.
func normalizeNumbers(args map[string]any) (map[string]any, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}
