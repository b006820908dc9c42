package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dp287517/electrohub-assistant/pkg/tools/mcp"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ELECTROHUB_CONFIG env, ./config.yaml, /etc/electrohub/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ELECTROHUB_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/electrohub/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check ELECTROHUB_CONFIG env var.
	if envPath := os.Getenv("ELECTROHUB_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/electrohub/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ELECTROHUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("ELECTROHUB_PRIMARY_URL"); v != "" {
		cfg.Providers.Primary.BackendURL = v
	}
	if v := os.Getenv("ELECTROHUB_PRIMARY_MODEL"); v != "" {
		cfg.Providers.Primary.Model = v
	}
	if v := os.Getenv("ELECTROHUB_PRIMARY_API_KEY"); v != "" {
		cfg.Providers.Primary.APIKey = v
	}

	// Setting any secondary env var enables the secondary provider.
	if v := os.Getenv("ELECTROHUB_SECONDARY_URL"); v != "" {
		ensureSecondary(cfg).BackendURL = v
	}
	if v := os.Getenv("ELECTROHUB_SECONDARY_MODEL"); v != "" {
		ensureSecondary(cfg).Model = v
	}
	if v := os.Getenv("ELECTROHUB_SECONDARY_API_KEY"); v != "" {
		ensureSecondary(cfg).APIKey = v
	}

	if v := os.Getenv("ELECTROHUB_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxToolIterations = n
		}
	}
	if v := os.Getenv("ELECTROHUB_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.RetryAttempts = n
		}
	}
	if v := os.Getenv("ELECTROHUB_RETRY_BASE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.RetryBaseDelay = d
		}
	}

	// ELECTROHUB_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("ELECTROHUB_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err == nil && len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}
}

// ensureSecondary returns the secondary provider config, allocating it with
// defaults if the YAML layer did not declare one.
func ensureSecondary(cfg *Config) *ProviderConfig {
	if cfg.Providers.Secondary == nil {
		cfg.Providers.Secondary = &ProviderConfig{
			Name:    "secondary",
			Timeout: 120 * time.Second,
		}
	}
	return cfg.Providers.Secondary
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]mcp.ServerConfig, error) {
	var servers []mcp.ServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// providers.primary.api_key_file -> providers.primary.api_key
	if cfg.Providers.Primary.APIKeyFile != "" && cfg.Providers.Primary.APIKey == "" {
		val, err := readSecretFile(cfg.Providers.Primary.APIKeyFile)
		if err != nil {
			return fmt.Errorf("providers.primary.api_key_file: %w", err)
		}
		cfg.Providers.Primary.APIKey = val
	}

	// providers.secondary.api_key_file -> providers.secondary.api_key
	if cfg.Providers.Secondary != nil &&
		cfg.Providers.Secondary.APIKeyFile != "" && cfg.Providers.Secondary.APIKey == "" {
		val, err := readSecretFile(cfg.Providers.Secondary.APIKeyFile)
		if err != nil {
			return fmt.Errorf("providers.secondary.api_key_file: %w", err)
		}
		cfg.Providers.Secondary.APIKey = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
