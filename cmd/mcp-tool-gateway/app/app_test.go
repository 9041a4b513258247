package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp-servers.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mcp-tool-gateway version: dev\n", out)
}

func TestValidateListsServers(t *testing.T) {
	path := writeConfig(t, `{"servers":{
		"math":{"command":"node","args":["math.js"],"logPath":"/tmp/math.log"},
		"remote":{"transport":"sse","url":"http://localhost:9000/sse"}
	}}`)

	out, err := run(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "math")
	assert.Contains(t, out, "node math.js")
	assert.Contains(t, out, "http://localhost:9000/sse")
	assert.Contains(t, out, "2 server(s) OK")
}

func TestValidateRejectsBrokenConfig(t *testing.T) {
	path := writeConfig(t, `{"servers":{"math":{"transport":"stdio"}}}`)

	_, err := run(t, "validate", "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "requires command field")
}

func TestValidateReadsConfigFromEnvironment(t *testing.T) {
	path := writeConfig(t, `{"servers":{"env-math":{"command":"node"}}}`)
	t.Setenv("MCP_GATEWAY_CONFIG", path)

	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "env-math")
}

func TestValidateAppliesEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "servers.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"servers":{"overlay":{"command":"node"}}}`), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("MCP_SERVERS_CONFIG="+configPath+"\n"), 0o600))

	out, err := run(t, "validate", "--env-file", envPath)
	require.NoError(t, err)
	assert.Contains(t, out, "overlay")
}

func TestHealthCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = io.WriteString(w, `{"ok":true,"servers":[{"name":"math","transport":"stdio","connected":true}],"serverCount":1}`)
	}))
	t.Cleanup(srv.Close)

	out, err := run(t, "health", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 servers)")
	assert.Contains(t, out, "math (stdio)")
}

func TestExecuteCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execute", r.URL.Path)
		_, _ = io.WriteString(w, `{"result":{"content":[{"type":"text","text":"3"}]}}`)
	}))
	t.Cleanup(srv.Close)

	out, err := run(t, "execute", "openai", `{"name":"add","arguments":"{\"a\":1,\"b\":2}"}`, "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"text": "3"`)
}

func TestExecuteValidatesLocally(t *testing.T) {
	_, err := run(t, "execute", "claude", `{"name":"add"}`, "--url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, "unsupported provider: claude", err.Error())

	_, err = run(t, "execute", "openai", `{"name":`, "--url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid call JSON")
}

func TestCallRejectsBadArguments(t *testing.T) {
	_, err := run(t, "call", "add", "[1,2]", "--url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments JSON")
}

func TestSetupLogger(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	logger.Warn("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger = setupLogger(&buf, "bogus", "text")
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	logger = setupLogger(&buf, "DEBUG", "")
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))
}
