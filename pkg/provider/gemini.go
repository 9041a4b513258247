package provider

import "github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"

// Gemini speaks the function_declarations format. Calls carry structured
// arguments under "args".
type Gemini struct{}

var _ Adapter = Gemini{}

func (Gemini) Name() string { return "gemini" }

func (Gemini) TranslateSchema(tool mcpmgr.Tool) map[string]any {
	return map[string]any{
		"name":        tool.Name,
		"description": tool.EffectiveDescription(),
		"parameters":  parameters(tool, geminiKeywords),
	}
}

func (g Gemini) TranslateAllTools(tools []mcpmgr.Tool) map[string]any {
	decls := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, g.TranslateSchema(t))
	}
	return map[string]any{"function_declarations": decls}
}

func (Gemini) TranslateInvocation(call any) (mcpmgr.Invocation, error) {
	return translateCall("gemini", call, "args", "arguments")
}

func (Gemini) FormatResult(raw any) any { return raw }

func (Gemini) FormatForContext(tools []mcpmgr.Tool) string {
	return renderContext("You can call the following functions:", tools)
}
