// Package mcpgateway exposes the tools managed by mcpmgr over HTTP in two
// forms: a small JSON API that translates tool catalogues and calls to and
// from model provider formats (see package provider), and an aggregated
// Streamable MCP endpoint that re-exposes every backend tool as
// "<server>__<tool>". Downstream clients connect to one host and reach any
// configured backend without knowing how it is launched.
package mcpgateway
