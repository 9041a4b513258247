package mcpgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
	"github.com/vikashloomba/mcp-tool-gateway/pkg/provider"
)

const maxBodyBytes = 1 << 20

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK          bool                  `json:"ok"`
	Servers     []mcpmgr.ServerHealth `json:"servers"`
	ServerCount int                   `json:"serverCount"`
}

// ToolsResponse is the body of GET /tools.
type ToolsResponse struct {
	Tools []mcpmgr.Tool `json:"tools"`
}

// ContextResponse is the body of GET /tools/{provider}/context.
type ContextResponse struct {
	Context string `json:"context"`
}

// ExecuteRequest is the body of POST /execute. Call holds the function call
// exactly as the provider produced it.
type ExecuteRequest struct {
	Provider string          `json:"provider"`
	Call     json.RawMessage `json:"call"`
	Server   string          `json:"server,omitempty"`
}

// CallToolRequest is the body of POST /call_tool.
type CallToolRequest struct {
	Server    string         `json:"server,omitempty"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ResultResponse wraps a tool result.
type ResultResponse struct {
	Result any `json:"result"`
}

func (g *Gateway) serverName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return g.opts.DefaultServer
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	servers, err := g.manager.ServerHealth()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{OK: true, Servers: servers, ServerCount: len(servers)})
}

// listTools returns the canonical catalogue and makes sure the aggregated
// endpoint knows the server.
func (g *Gateway) listTools(ctx context.Context, serverName string) ([]mcpmgr.Tool, error) {
	raw, err := g.manager.ListRawTools(ctx, serverName)
	if err != nil {
		return nil, err
	}
	g.noteTools(serverName, raw)
	return mcpmgr.ToolsFromMCP(raw)
}

func (g *Gateway) handleTools(w http.ResponseWriter, r *http.Request) {
	tools, err := g.listTools(r.Context(), g.serverName(r.URL.Query().Get("server")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToolsResponse{Tools: tools})
}

func (g *Gateway) handleProviderTools(w http.ResponseWriter, r *http.Request) {
	adapter, err := provider.Lookup(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	tools, err := g.listTools(r.Context(), g.serverName(r.URL.Query().Get("server")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adapter.TranslateAllTools(tools))
}

func (g *Gateway) handleProviderContext(w http.ResponseWriter, r *http.Request) {
	adapter, err := provider.Lookup(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	tools, err := g.listTools(r.Context(), g.serverName(r.URL.Query().Get("server")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContextResponse{Context: adapter.FormatForContext(tools)})
}

func (g *Gateway) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Provider == "" {
		writeError(w, errors.New(`missing "provider" field`))
		return
	}
	if len(req.Call) == 0 || string(req.Call) == "null" {
		writeError(w, errors.New(`missing "call" field`))
		return
	}
	adapter, err := provider.Lookup(req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}
	inv, err := adapter.TranslateInvocation(req.Call)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := g.callTool(r.Context(), g.serverName(req.Server), adapter.Name(), inv.Name, inv.Arguments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Result: adapter.FormatResult(res)})
}

func (g *Gateway) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var req CallToolRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Tool == "" {
		writeError(w, errors.New(`missing "tool" field`))
		return
	}
	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	res, err := g.callTool(r.Context(), g.serverName(req.Server), "", req.Tool, args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Result: res})
}

func (g *Gateway) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	entries, err := g.manager.ReadLogs(g.serverName(q.Get("server")), q.Get("since"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("missing request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
