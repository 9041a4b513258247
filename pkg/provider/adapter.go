// Package provider translates between canonical MCP tool descriptors and the
// function-calling formats of individual model providers.
//
// Each Adapter is stateless and safe for concurrent use. Lookup resolves an
// adapter by the provider name used in gateway requests ("gemini", "openai",
// "xai").
package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

// Adapter converts tool catalogues and tool calls for one provider.
type Adapter interface {
	// Name returns the provider key, e.g. "openai".
	Name() string
	// TranslateSchema converts one tool into the provider's declaration.
	TranslateSchema(tool mcpmgr.Tool) map[string]any
	// TranslateAllTools wraps every declaration in the provider's envelope.
	TranslateAllTools(tools []mcpmgr.Tool) map[string]any
	// TranslateInvocation turns a provider-shaped function call into a
	// canonical invocation. Malformed calls are an error, never an empty
	// invocation.
	TranslateInvocation(call any) (mcpmgr.Invocation, error)
	// FormatResult reshapes a raw tool result for the provider.
	FormatResult(raw any) any
	// FormatForContext renders the catalogue as prompt-ready markdown.
	FormatForContext(tools []mcpmgr.Tool) string
}

var registry = map[string]Adapter{
	"gemini": Gemini{},
	"openai": OpenAI{},
	"xai":    XAI{},
}

// Lookup returns the adapter registered under name. Matching ignores case.
func Lookup(name string) (Adapter, error) {
	if a, ok := registry[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("unsupported provider: %s", name)
}

// Names lists the registered provider keys in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
