package provider

import "github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"

// XAI uses the same wire format as OpenAI under its own provider key.
type XAI struct{}

var _ Adapter = XAI{}

func (XAI) Name() string { return "xai" }

func (XAI) TranslateSchema(tool mcpmgr.Tool) map[string]any {
	return functionTool(tool)
}

func (XAI) TranslateAllTools(tools []mcpmgr.Tool) map[string]any {
	return functionTools(tools)
}

func (XAI) TranslateInvocation(call any) (mcpmgr.Invocation, error) {
	return translateCall("xai", call, "arguments", "args")
}

func (XAI) FormatResult(raw any) any { return raw }

func (XAI) FormatForContext(tools []mcpmgr.Tool) string {
	return renderContext("Tools available to Grok:", tools)
}
