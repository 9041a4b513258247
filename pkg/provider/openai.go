package provider

import "github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"

// OpenAI speaks the chat-completions tools format. Calls carry arguments as
// a JSON-encoded string under "arguments".
type OpenAI struct{}

var _ Adapter = OpenAI{}

func (OpenAI) Name() string { return "openai" }

func (OpenAI) TranslateSchema(tool mcpmgr.Tool) map[string]any {
	return functionTool(tool)
}

func (OpenAI) TranslateAllTools(tools []mcpmgr.Tool) map[string]any {
	return functionTools(tools)
}

func (OpenAI) TranslateInvocation(call any) (mcpmgr.Invocation, error) {
	return translateCall("openai", call, "arguments", "args")
}

func (OpenAI) FormatResult(raw any) any { return raw }

func (OpenAI) FormatForContext(tools []mcpmgr.Tool) string {
	return renderContext("Available tools:", tools)
}

// functionTool builds a {"type":"function","function":{...}} entry.
func functionTool(tool mcpmgr.Tool) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        tool.Name,
			"description": tool.EffectiveDescription(),
			"parameters":  parameters(tool, openAIKeywords),
		},
	}
}

func functionTools(tools []mcpmgr.Tool) map[string]any {
	entries := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		entries = append(entries, functionTool(t))
	}
	return map[string]any{"tools": entries}
}
