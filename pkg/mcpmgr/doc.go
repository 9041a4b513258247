// Package mcpmgr centralizes the management of multiple Model Context Protocol
// (MCP) servers from a single Go process. It layers lazy connection
// establishment, session tracking, and tolerant tool dispatch on top of the
// modelcontextprotocol/go-sdk client so callers can list and invoke tools by
// server name without rebuilding MCP plumbing.
//
// # Core entry points
//
//   - Resolver turns a JSON or YAML config file (or, when none exists, the
//     legacy MCP_ENTRY / MCP_DATA_DIR variables) into ServerDescriptor
//     values. Pass Resolver.Bootstrap to NewManager.
//   - Manager is the long-lived orchestration type. Ensure connects a server
//     on first use; concurrent callers for the same name share one attempt.
//   - ManagerOptions set client identifiers, connect and per-attempt
//     timeouts, JSON-RPC logging, and the ordered list/call strategies.
//
// After a server is configured, use ListTools, ListRawTools, and CallTool to
// interrogate and invoke its tools, ReadLogs to inspect its newline-delimited
// JSON log, and ServerHealth to report which servers currently hold a live
// session. Tool descriptors are normalized into Tool, whose schema is read
// from whichever of "inputSchema", "input_schema", or "parameters" the
// backend populated.
package mcpmgr
