// Package mcp bridges tools hosted on Model Context Protocol servers
// into the orchestrator's registry. The tool implementations stay on the
// MCP side; this package only discovers their declarations at startup
// and forwards invocations.
package mcp
