package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// handler adapts one discovered MCP tool to the tools.Handler interface.
type handler struct {
	client *Client
	def    tools.Definition
}

// Definition implements tools.Handler.
func (h *handler) Definition() tools.Definition { return h.def }

// Invoke implements tools.Handler.
func (h *handler) Invoke(ctx context.Context, args json.RawMessage) (*tools.Outcome, error) {
	return h.client.CallTool(ctx, h.def.Name, args)
}

// Handlers connects to the configured MCP servers, discovers their
// tools, and returns one handler per tool. Name conflicts resolve
// first-server-wins with a warning, matching registry semantics.
//
// Used at startup; a server that cannot be reached fails boot rather
// than silently shrinking the tool catalog.
func Handlers(ctx context.Context, configs []ServerConfig) ([]tools.Handler, func() error, error) {
	var clients []*Client
	var handlers []tools.Handler
	seen := make(map[string]string)

	closeAll := func() error {
		var lastErr error
		for _, c := range clients {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close MCP client", "server", c.cfg.Name, "error", err)
				lastErr = err
			}
		}
		return lastErr
	}

	for _, cfg := range configs {
		client := NewClient(cfg)
		if err := client.Connect(ctx, nil); err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		clients = append(clients, client)

		defs, err := client.DiscoverTools(ctx)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("discovering tools: %w", err)
		}

		for _, def := range defs {
			if owner, ok := seen[def.Name]; ok {
				slog.Warn("MCP tool name conflict, keeping first server",
					"tool", def.Name,
					"winner", owner,
					"loser", cfg.Name,
				)
				continue
			}
			seen[def.Name] = cfg.Name
			handlers = append(handlers, &handler{client: client, def: def})
		}

		slog.Info("connected MCP server", "server", cfg.Name, "tools", len(defs))
	}

	return handlers, closeAll, nil
}
