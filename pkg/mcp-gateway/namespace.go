package mcpgateway

import (
	"fmt"
	"strings"
)

// NamespaceStrategy generates the aggregated tool names exposed on the MCP
// endpoint. Implementations must be deterministic and collision-free for a
// given server/tool pair.
type NamespaceStrategy interface {
	ToolName(serverName, toolName string) string
	// SplitToolName reverses ToolName.
	SplitToolName(gatewayName string) (serverName, toolName string, ok bool)
}

// ServerPrefixNamespace prefixes every tool with the originating server name,
// separating the two with a configurable delimiter (defaults to "__" to stay
// within the MCP tool name character guidance).
type ServerPrefixNamespace struct {
	Separator string
}

func (s ServerPrefixNamespace) separator() string {
	if s.Separator == "" {
		return "__"
	}
	return s.Separator
}

func (s ServerPrefixNamespace) ToolName(serverName, toolName string) string {
	return fmt.Sprintf("%s%s%s", serverName, s.separator(), toolName)
}

func (s ServerPrefixNamespace) SplitToolName(gatewayName string) (string, string, bool) {
	server, tool, ok := strings.Cut(gatewayName, s.separator())
	if !ok || server == "" || tool == "" {
		return "", "", false
	}
	return server, tool, true
}
