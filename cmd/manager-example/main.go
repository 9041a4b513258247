package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
	"github.com/vikashloomba/mcp-tool-gateway/pkg/provider"
)

func main() {
	resolver := &mcpmgr.Resolver{}
	descriptors, err := resolver.Resolve()
	if err != nil {
		log.Fatalf("resolve servers: %v", err)
	}
	if len(descriptors) == 0 {
		descriptors = []mcpmgr.ServerDescriptor{{
			Name:    "example-stdio",
			Command: "npx",
			Args:    []string{"-y", "@modelcontextprotocol/server-everything"},
		}}
	}

	manager := mcpmgr.NewManager(mcpmgr.StaticBootstrap(descriptors...), &mcpmgr.ManagerOptions{
		ClientName:     "manager-example",
		ConnectTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer func() {
		if err := manager.Close(context.Background()); err != nil {
			fmt.Printf("close error: %v\n", err)
		}
	}()

	names, err := manager.ServerNames()
	if err != nil {
		log.Fatalf("list servers: %v", err)
	}
	for _, name := range names {
		fmt.Printf("Configured server: %s\n", name)
		tools, err := manager.ListTools(ctx, name)
		if err != nil {
			fmt.Printf("  list tools: %v\n", err)
			continue
		}
		fmt.Println(provider.OpenAI{}.FormatForContext(tools))
	}

	health, err := manager.ServerHealth()
	if err != nil {
		log.Fatalf("health: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(health)
}
