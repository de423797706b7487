// Package config loads gateway configuration from an optional YAML file and
// FORK_-prefixed environment variables, with built-in defaults matching the
// standard five-version, three-region deployment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Versions VersionsConfig `koanf:"versions"`
	Regions  RegionsConfig  `koanf:"regions"`
	Fanout   FanoutConfig   `koanf:"fanout"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type VersionsConfig struct {
	Active      string              `koanf:"active"`
	Fallback    string              `koanf:"fallback"`
	Definitions []VersionDefinition `koanf:"definitions"`
}

type VersionDefinition struct {
	ID            string `koanf:"id"`
	Status        string `koanf:"status"`
	MinAppVersion string `koanf:"min_app_version"`
}

type RegionsConfig struct {
	Primary     string             `koanf:"primary"`
	Deployments []RegionDeployment `koanf:"deployments"`
}

type RegionDeployment struct {
	ID       string `koanf:"id"`
	Endpoint string `koanf:"endpoint"`
}

type FanoutConfig struct {
	// DeliveryTimeout bounds each per-region delivery attempt.
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
}

// Load reads configuration from path (skipped when the file does not
// exist), overlays FORK_-prefixed environment variables, and applies
// defaults for anything still unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("FORK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "FORK_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.request_timeout") {
		k.Set("server.request_timeout", "30s")
	}
	if !k.Exists("storage.driver") {
		k.Set("storage.driver", "sqlite")
	}
	if !k.Exists("storage.path") {
		k.Set("storage.path", "./data/gateway.db")
	}
	if !k.Exists("fanout.delivery_timeout") {
		k.Set("fanout.delivery_timeout", "5s")
	}
	if !k.Exists("versions.definitions") {
		k.Set("versions.definitions", defaultVersionDefinitions())
	}
	if !k.Exists("versions.active") {
		k.Set("versions.active", "v3")
	}
	if !k.Exists("versions.fallback") {
		k.Set("versions.fallback", "v1")
	}
	if !k.Exists("regions.deployments") {
		k.Set("regions.deployments", defaultRegionDeployments())
	}
	if !k.Exists("regions.primary") {
		k.Set("regions.primary", "us-east-1")
	}
}

func defaultVersionDefinitions() []map[string]any {
	return []map[string]any{
		{"id": "v1", "status": "deprecated", "min_app_version": "1.0.0"},
		{"id": "v2", "status": "deprecated", "min_app_version": "1.4.0"},
		{"id": "v3", "status": "active", "min_app_version": "2.0.0"},
		{"id": "v4", "status": "active", "min_app_version": "2.3.0"},
		{"id": "v5", "status": "active", "min_app_version": "3.0.0"},
	}
}

func defaultRegionDeployments() []map[string]any {
	return []map[string]any{
		{"id": "us-east-1", "endpoint": "http://gateway.us-east-1.internal"},
		{"id": "us-west-2", "endpoint": "http://gateway.us-west-2.internal"},
		{"id": "eu-west-1", "endpoint": "http://gateway.eu-west-1.internal"},
	}
}

func (c *Config) validate() error {
	if len(c.Versions.Definitions) == 0 {
		return fmt.Errorf("config requires at least one version definition")
	}
	known := make(map[string]bool, len(c.Versions.Definitions))
	for _, d := range c.Versions.Definitions {
		known[d.ID] = true
	}
	if c.Versions.Active != "" && !known[c.Versions.Active] {
		return fmt.Errorf("active version %q is not among the definitions", c.Versions.Active)
	}
	if c.Versions.Fallback != "" && !known[c.Versions.Fallback] {
		return fmt.Errorf("fallback version %q is not among the definitions", c.Versions.Fallback)
	}
	if len(c.Regions.Deployments) == 0 {
		return fmt.Errorf("config requires at least one region deployment")
	}
	regionKnown := false
	for _, r := range c.Regions.Deployments {
		if r.ID == c.Regions.Primary {
			regionKnown = true
		}
	}
	if !regionKnown {
		return fmt.Errorf("primary region %q is not among the deployments", c.Regions.Primary)
	}
	return nil
}

// RegionIDs returns the configured region identifiers in order.
func (c *Config) RegionIDs() []string {
	out := make([]string, 0, len(c.Regions.Deployments))
	for _, r := range c.Regions.Deployments {
		out = append(out, r.ID)
	}
	return out
}

// RegionEndpoints returns the region id to endpoint URL mapping.
func (c *Config) RegionEndpoints() map[string]string {
	out := make(map[string]string, len(c.Regions.Deployments))
	for _, r := range c.Regions.Deployments {
		out[r.ID] = r.Endpoint
	}
	return out
}
