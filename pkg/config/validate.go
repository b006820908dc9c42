package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// providers.primary.backend_url is required.
	if c.Providers.Primary.BackendURL == "" {
		errs = append(errs, fmt.Errorf("providers.primary.backend_url is required"))
	}
	if c.Providers.Primary.Model == "" {
		errs = append(errs, fmt.Errorf("providers.primary.model is required"))
	}

	// Secondary is optional, but when declared it needs a backend and model.
	if c.Providers.Secondary != nil {
		if c.Providers.Secondary.BackendURL == "" {
			errs = append(errs, fmt.Errorf("providers.secondary.backend_url is required when a secondary provider is configured"))
		}
		if c.Providers.Secondary.Model == "" {
			errs = append(errs, fmt.Errorf("providers.secondary.model is required when a secondary provider is configured"))
		}
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Engine.MaxToolIterations <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_tool_iterations must be > 0, got %d", c.Engine.MaxToolIterations))
	}
	if c.Engine.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("engine.retry_attempts must be > 0, got %d", c.Engine.RetryAttempts))
	}
	if c.Engine.RetryBaseDelay < 0 {
		errs = append(errs, fmt.Errorf("engine.retry_base_delay must be >= 0, got %s", c.Engine.RetryBaseDelay))
	}
	if c.Engine.MaxMessageChars <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_message_chars must be > 0, got %d", c.Engine.MaxMessageChars))
	}
	if c.Engine.HistoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("engine.history_window must be > 0, got %d", c.Engine.HistoryWindow))
	}

	// mcp.servers entries need a name, transport, and URL.
	for i, srv := range c.MCP.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		switch srv.Transport {
		case "sse", "streamable-http":
			// valid
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, srv.Transport))
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
	}

	return errors.Join(errs...)
}
