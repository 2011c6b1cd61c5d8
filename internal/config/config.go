// Package config loads the weft command configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "weft.yaml"

// Config is the root of weft.yaml.
type Config struct {
	LogLevel string        `yaml:"log_level" json:"log_level"`
	HTTP     HTTPConfig    `yaml:"http" json:"http"`
	Metrics  MetricsConfig `yaml:"metrics" json:"metrics"`
	MCP      MCPConfig     `yaml:"mcp" json:"mcp"`
	Redis    RedisConfig   `yaml:"redis" json:"redis"`
	Tracing  TracingConfig `yaml:"tracing" json:"tracing"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// MCPConfig selects how the MCP server is exposed: "stdio" or "sse".
type MCPConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
}

// RedisConfig enables the Redis event publisher when URL is set.
type RedisConfig struct {
	URL    string `yaml:"url" json:"url"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

type TracingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		HTTP:     HTTPConfig{Addr: ":8080"},
		Metrics:  MetricsConfig{Enabled: true},
		MCP:      MCPConfig{Transport: "stdio", Port: 8081},
		Redis:    RedisConfig{Prefix: "weft:"},
	}
}

// Load reads a YAML or JSON file over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	switch c.MCP.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("mcp.transport must be stdio or sse, got %q", c.MCP.Transport)
	}
	if c.MCP.Transport == "sse" && c.MCP.Port <= 0 {
		return fmt.Errorf("mcp.port must be positive, got %d", c.MCP.Port)
	}
	return nil
}
