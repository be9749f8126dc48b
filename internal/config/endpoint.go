package config

import (
	"fmt"
	"os"
	"time"
)

// EndpointConfig describes a remote HTTP collaborator (normalization service, store service).
type EndpointConfig struct {
	Name       string        `mapstructure:"name"`         // Identifier used in errors and logs
	BaseURL    string        `mapstructure:"base_url"`     // Service root, e.g. http://normalizer:8090
	BaseURLEnv string        `mapstructure:"base_url_env"` // Environment variable name for base URL
	APIKey     string        `mapstructure:"api_key"`      // Bearer token (can be set directly or via env var)
	APIKeyEnv  string        `mapstructure:"api_key_env"`  // Environment variable name for API key
	Timeout    time.Duration `mapstructure:"timeout"`      // Per-request timeout
}

// ResolveEnvVars resolves environment variable references in the configuration.
// Direct values (APIKey, BaseURL) take precedence if already set.
func (c *EndpointConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
	if c.BaseURLEnv != "" && c.BaseURL == "" {
		if val := os.Getenv(c.BaseURLEnv); val != "" {
			c.BaseURL = val
		}
	}
}

// Validate checks that the endpoint has what a client needs.
func (c *EndpointConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%s: base_url is required", c.label())
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s: timeout must be positive", c.label())
	}
	return nil
}

func (c *EndpointConfig) label() string {
	if c.Name == "" {
		return "endpoint"
	}
	return c.Name
}
