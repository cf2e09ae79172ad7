// Package config provides configuration loading and management for the
// propane body catalog.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete propane configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Serve   ServeConfig   `yaml:"serve"`
	Watch   WatchConfig   `yaml:"watch"`
}

// CatalogConfig configures where fragment definitions load from.
type CatalogConfig struct {
	// Paths are glob patterns for definition files. ** is supported.
	Paths []string `yaml:"paths"`
}

// ServeConfig configures the catalog service.
type ServeConfig struct {
	// HTTPAddr is the listen address for the HTTP API.
	HTTPAddr string `yaml:"http_addr"`
	// NATS configures the resolution request-reply transport.
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server).
	URL string `yaml:"url"`
	// Embedded indicates whether to run an embedded NATS server.
	Embedded bool `yaml:"embedded"`
	// Cache enables the JetStream KV cache of emitted output.
	Cache bool `yaml:"cache"`
	// StoreDir is the embedded server's JetStream storage directory
	// (empty = the server's default).
	StoreDir string `yaml:"store_dir"`
}

// WatchConfig configures definition file watching.
type WatchConfig struct {
	// Debounce is how long to wait for further changes before
	// re-checking the catalog.
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Paths: []string{"bodies/**/*.yaml"},
		},
		Serve: ServeConfig{
			HTTPAddr: ":8420",
			NATS: NATSConfig{
				URL:      "",
				Embedded: true,
				Cache:    true,
			},
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Catalog.Paths) == 0 {
		return fmt.Errorf("catalog.paths is required")
	}
	if c.Serve.HTTPAddr == "" {
		return fmt.Errorf("serve.http_addr is required")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, applied on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Merge overlays another config onto this one; non-zero values in the
// overlay take precedence. Used for flag overrides on top of the file
// config. The cache toggle is deliberately not part of the overlay: a
// bool cannot distinguish "unset" from "false", so cache comes from the
// file or the defaults only.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Catalog.Paths) > 0 {
		c.Catalog.Paths = other.Catalog.Paths
	}

	if other.Serve.HTTPAddr != "" {
		c.Serve.HTTPAddr = other.Serve.HTTPAddr
	}
	if other.Serve.NATS.URL != "" {
		c.Serve.NATS.URL = other.Serve.NATS.URL
		c.Serve.NATS.Embedded = false
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}
