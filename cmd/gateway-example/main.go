package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpgateway "github.com/vikashloomba/mcp-tool-gateway/pkg/mcp-gateway"
	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	manager := mcpmgr.NewManager(mcpmgr.StaticBootstrap(mcpmgr.ServerDescriptor{
		Name:    "everything",
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-everything"},
	}), &mcpmgr.ManagerOptions{
		ClientName:     "gateway-example",
		ConnectTimeout: 30 * time.Second,
		Logger:         logger,
	})
	defer func() { _ = manager.Close(context.Background()) }()

	gateway, err := mcpgateway.NewGateway(manager, &mcpgateway.Options{
		Addr:          ":8787",
		Path:          "/mcp",
		DefaultServer: "everything",
		AutoConnect:   true,
		Logger:        logger,
		Streamable: mcp.StreamableHTTPOptions{
			Stateless:    false,
			JSONResponse: true,
		},
	})
	if err != nil {
		log.Fatalf("failed to build gateway: %v", err)
	}

	gateway.Router().Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"example"}`))
	})

	gwOptions := gateway.Options()
	log.Printf("gateway serving REST and Streamable MCP on %s (MCP at %s)", gwOptions.Addr, gwOptions.Path)
	if err := gateway.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("gateway server stopped: %v", err)
	}
}
