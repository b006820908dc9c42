// Command server runs the ElectroHub maintenance assistant.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, ELECTROHUB_CONFIG env, ./config.yaml, or
// /etc/electrohub/config.yaml), then ELECTROHUB_* environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/config"
	"github.com/dp287517/electrohub-assistant/pkg/engine"
	"github.com/dp287517/electrohub-assistant/pkg/observability"
	"github.com/dp287517/electrohub-assistant/pkg/provider/openaicompat"
	toolsmcp "github.com/dp287517/electrohub-assistant/pkg/tools/mcp"
	"github.com/dp287517/electrohub-assistant/pkg/tools/registry"
	transporthttp "github.com/dp287517/electrohub-assistant/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Create providers.
	primary, err := newProvider(cfg.Providers.Primary)
	if err != nil {
		return fmt.Errorf("creating primary provider: %w", err)
	}
	defer primary.Close()

	engineOpts := []engine.Option{}
	if cfg.Providers.Secondary != nil {
		secondary, err := newProvider(*cfg.Providers.Secondary)
		if err != nil {
			return fmt.Errorf("creating secondary provider: %w", err)
		}
		defer secondary.Close()
		engineOpts = append(engineOpts, engine.WithSecondary(secondary))
		logger.Info("secondary provider enabled",
			"name", cfg.Providers.Secondary.Name,
			"tool_calling", cfg.Providers.Secondary.ToolCalling)
	}

	// Connect MCP tool servers and register their tools.
	reg := registry.New()
	if len(cfg.MCP.Servers) > 0 {
		ctx := context.Background()
		handlers, closeAll, err := toolsmcp.Handlers(ctx, cfg.MCP.Servers)
		if err != nil {
			return fmt.Errorf("connecting MCP servers: %w", err)
		}
		defer closeAll()

		for _, h := range handlers {
			if err := reg.Register(h); err != nil {
				return fmt.Errorf("registering tool %q: %w", h.Definition().Name, err)
			}
		}
		logger.Info("tools registered", "count", len(handlers))
	}

	// Create engine.
	collector := observability.NewCollector()
	eng, err := engine.New(primary, reg, collector, engine.Config{
		MaxToolIterations: cfg.Engine.MaxToolIterations,
		RetryAttempts:     cfg.Engine.RetryAttempts,
		RetryBaseDelay:    cfg.Engine.RetryBaseDelay,
		Validation: api.ValidationConfig{
			MaxMessageChars: cfg.Engine.MaxMessageChars,
			HistoryWindow:   cfg.Engine.HistoryWindow,
		},
		SystemPrompt: cfg.Engine.SystemPrompt,
	}, engineOpts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// Create and run the HTTP server.
	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}
	srv := transporthttp.NewServer(eng, collector,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(logger),
	)

	return srv.ListenAndServe()
}

// newProvider builds a Chat Completions client from provider config.
func newProvider(pc config.ProviderConfig) (*openaicompat.Client, error) {
	return openaicompat.New(openaicompat.Config{
		Name:        pc.Name,
		BaseURL:     pc.BackendURL,
		APIKey:      pc.APIKey,
		Model:       pc.Model,
		Timeout:     pc.Timeout,
		ToolCalling: pc.ToolCalling,
	})
}
