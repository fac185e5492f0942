package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// standardizes it to JSON, unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before standardizing, since templates are in strings)
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault is Load, falling back to defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18430
	}
	if cfg.Server.MaxClients == 0 {
		cfg.Server.MaxClients = 1024
	}
	if cfg.Graph.Samples == 0 {
		cfg.Graph.Samples = 400
	}
	if cfg.Graph.ContourResolution == 0 {
		cfg.Graph.ContourResolution = 96
	}
	if cfg.Graph.Viewport == (ViewportConfig{}) {
		cfg.Graph.Viewport = ViewportConfig{XMin: -10, XMax: 10, YMin: -10, YMax: 10}
	}
	if cfg.Calculator.AngleUnit == "" {
		cfg.Calculator.AngleUnit = "rad"
	}
	if cfg.Calculator.HistorySize == 0 {
		cfg.Calculator.HistorySize = 10
	}
	if cfg.Boundaries.Graph == 0 {
		cfg.Boundaries.Graph = 2
	}
	if cfg.Boundaries.Calculator == 0 {
		cfg.Boundaries.Calculator = 3
	}
	if cfg.Boundaries.Practice == 0 {
		cfg.Boundaries.Practice = 2
	}
	if cfg.Boundaries.App == 0 {
		cfg.Boundaries.App = 2
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(MathFarmPath(), "mathfarm.db")
	}
	if cfg.Storage.EventLogDir == "" {
		cfg.Storage.EventLogDir = filepath.Join(MathFarmPath(), "logs")
	}
	if cfg.Hours.Timezone == "" {
		cfg.Hours.Timezone = "UTC"
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
}
