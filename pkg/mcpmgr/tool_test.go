package mcpmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolFromJSONSchemaAliases(t *testing.T) {
	t.Parallel()

	emptyObject := map[string]any{"type": "object", "properties": map[string]any{}}
	cases := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "inputSchema",
			raw:  `{"name":"add","inputSchema":{"type":"object","required":["a"]}}`,
			want: map[string]any{"type": "object", "required": []any{"a"}},
		},
		{
			name: "input_schema",
			raw:  `{"name":"add","input_schema":{"type":"object","title":"snake"}}`,
			want: map[string]any{"type": "object", "title": "snake"},
		},
		{
			name: "parameters",
			raw:  `{"name":"add","parameters":{"type":"object","title":"params"}}`,
			want: map[string]any{"type": "object", "title": "params"},
		},
		{
			name: "inputSchema wins over parameters",
			raw:  `{"name":"add","parameters":{"title":"params"},"inputSchema":{"title":"camel"}}`,
			want: map[string]any{"title": "camel"},
		},
		{
			name: "null alias is skipped",
			raw:  `{"name":"add","inputSchema":null,"input_schema":{"title":"snake"}}`,
			want: map[string]any{"title": "snake"},
		},
		{
			name: "absent schema",
			raw:  `{"name":"add","description":"Add"}`,
			want: emptyObject,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tool, err := ToolFromJSON([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, "add", tool.Name)
			assert.Equal(t, tc.want, tool.Schema)
		})
	}
}

func TestToolFromJSONRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":     `{"name":`,
		"not object":   `["add"]`,
		"missing name": `{"description":"x"}`,
		"numeric name": `{"name":7}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ToolFromJSON([]byte(raw))
			require.Error(t, err)
		})
	}
}
