// Package tools defines the capability interface the orchestrator consumes:
// tool calls produced by the provider, handlers that execute them, and the
// results fed back into the conversation.
//
// Tool implementations live outside this repository. The registry
// subpackage resolves declared names to handlers at startup, and the mcp
// subpackage bridges tools hosted on Model Context Protocol servers.
package tools
