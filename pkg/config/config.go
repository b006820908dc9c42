// Package config provides unified configuration for the assistant
// orchestrator.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ELECTROHUB_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/tools/mcp"
)

// Config holds all configuration for the orchestrator service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Providers     ProvidersConfig     `yaml:"providers"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 300s, SSE-friendly
}

// EngineConfig holds orchestration settings.
type EngineConfig struct {
	MaxToolIterations int           `yaml:"max_tool_iterations"` // default: 5
	RetryAttempts     int           `yaml:"retry_attempts"`      // default: 3
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`    // default: 1s
	MaxMessageChars   int           `yaml:"max_message_chars"`   // default: 10000
	HistoryWindow     int           `yaml:"history_window"`      // default: 15
	SystemPrompt      string        `yaml:"system_prompt"`       // optional override
}

// ProvidersConfig holds the primary and optional secondary LLM backend.
type ProvidersConfig struct {
	Primary   ProviderConfig  `yaml:"primary"`
	Secondary *ProviderConfig `yaml:"secondary"`
}

// ProviderConfig describes one Chat Completions backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	BackendURL  string        `yaml:"backend_url"`
	APIKey      string        `yaml:"api_key"`
	APIKeyFile  string        `yaml:"api_key_file"` // _file variant for api_key
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`      // default: 120s
	ToolCalling bool          `yaml:"tool_calling"` // primary defaults true, secondary false
}

// MCPConfig holds MCP tool server settings.
type MCPConfig struct {
	Servers []mcp.ServerConfig `yaml:"servers"`
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		Engine: EngineConfig{
			MaxToolIterations: 5,
			RetryAttempts:     3,
			RetryBaseDelay:    time.Second,
			MaxMessageChars:   10000,
			HistoryWindow:     15,
		},
		Providers: ProvidersConfig{
			Primary: ProviderConfig{
				Name:        "primary",
				Timeout:     120 * time.Second,
				ToolCalling: true,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
