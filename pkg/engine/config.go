package engine

import (
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/api"
)

const (
	// DefaultMaxToolIterations bounds the tool-call loop.
	DefaultMaxToolIterations = 5

	// DefaultRetryAttempts is the provider call retry budget.
	DefaultRetryAttempts = 3

	// DefaultRetryBaseDelay is the delay before the second attempt; it
	// doubles for each attempt after that.
	DefaultRetryBaseDelay = time.Second
)

// Config holds engine tuning knobs.
type Config struct {
	// MaxToolIterations caps the number of tool rounds per request.
	MaxToolIterations int

	// RetryAttempts is the maximum number of tries per provider call.
	RetryAttempts int

	// RetryBaseDelay is the backoff base; delays grow as base * 2^(k-2)
	// before attempt k.
	RetryBaseDelay time.Duration

	// Validation holds input clamping limits.
	Validation api.ValidationConfig

	// SystemPrompt overrides the built-in system prompt when non-empty.
	SystemPrompt string
}

// withDefaults fills zero fields with defaults.
func (c Config) withDefaults() Config {
	if c.MaxToolIterations <= 0 {
		c.MaxToolIterations = DefaultMaxToolIterations
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.Validation == (api.ValidationConfig{}) {
		c.Validation = api.DefaultValidationConfig()
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	return c
}
