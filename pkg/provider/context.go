package provider

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

// NoToolsAvailable is rendered in place of an empty catalogue.
const NoToolsAvailable = "No tools available."

// renderContext lists tools as a numbered markdown list with one indented
// line per parameter.
func renderContext(header string, tools []mcpmgr.Tool) string {
	if len(tools) == 0 {
		return NoToolsAvailable
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for i, tool := range tools {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, tool.Name, tool.EffectiveDescription())

		props := tool.Properties()
		required := tool.Required()
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop, _ := props[name].(map[string]any)
			typ, _ := prop["type"].(string)
			if typ == "" {
				typ = "any"
			}
			marker := ""
			if slices.Contains(required, name) {
				marker = ", required"
			}
			fmt.Fprintf(&b, "   - %s (%s%s)", name, typ, marker)
			if desc, _ := prop["description"].(string); desc != "" {
				fmt.Fprintf(&b, ": %s", desc)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
