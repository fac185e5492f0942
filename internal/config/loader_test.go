package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
	// This is a JSONC comment
	"server": {
		"host": "0.0.0.0",
		"port": 9999,
		"static_dir": "${{ .Env.MATHFARM_STATIC }}",
	},
	"calculator": {"angle_unit": "deg"},
	"boundaries": {"graph": 3},
	"hours": {
		"timezone": "Europe/Paris",
		"windows": [
			{"open": "0 9 * * 1-5", "duration": "8h"}, // weekdays
		],
	},
}`)

	t.Setenv("MATHFARM_STATIC", "/srv/mathfarm")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Server.StaticDir != "/srv/mathfarm" {
		t.Errorf("expected expanded static_dir, got %q", cfg.Server.StaticDir)
	}
	if cfg.Calculator.AngleUnit != "deg" {
		t.Errorf("expected angle_unit deg, got %s", cfg.Calculator.AngleUnit)
	}
	if cfg.Boundaries.Graph != 3 || cfg.Boundaries.Calculator != 3 {
		t.Errorf("unexpected boundaries %+v", cfg.Boundaries)
	}
	if len(cfg.Hours.Windows) != 1 || cfg.Hours.Windows[0].Duration.Duration() != 8*time.Hour {
		t.Errorf("unexpected hours %+v", cfg.Hours)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MATHFARM_PATH", "/tmp/mf")
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 18430 {
		t.Errorf("expected default port 18430, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxClients != 1024 {
		t.Errorf("expected default max clients 1024, got %d", cfg.Server.MaxClients)
	}
	if cfg.Events.BufferSize != 1024 {
		t.Errorf("expected default buffer 1024, got %d", cfg.Events.BufferSize)
	}
	if cfg.Graph.ContourResolution != 96 || cfg.Graph.Viewport.XMax != 10 {
		t.Errorf("unexpected graph defaults %+v", cfg.Graph)
	}
	if cfg.Calculator.HistorySize != 10 || cfg.Calculator.AngleUnit != "rad" {
		t.Errorf("unexpected calculator defaults %+v", cfg.Calculator)
	}
	if cfg.Storage.Path != "/tmp/mf/mathfarm.db" {
		t.Errorf("unexpected storage path %q", cfg.Storage.Path)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"server": `)); err == nil {
		t.Fatal("expected error for truncated config")
	}
	if _, err := Load(writeConfig(t, `{"hours": {"windows": [{"duration": "soon"}]}}`)); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.jsonc"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 18430 {
		t.Errorf("expected defaults, got %+v", cfg.Server)
	}
	if _, err := LoadOrDefault(writeConfig(t, `nope`)); err == nil {
		t.Fatal("expected parse error to surface")
	}
}

func TestExpandEnvTemplates(t *testing.T) {
	t.Setenv("TEST_KEY", "my-secret")
	result := expandEnvTemplates(`{"key": "${{ .Env.TEST_KEY }}"}`)
	expected := `{"key": "my-secret"}`
	if result != expected {
		t.Errorf("expected %s, got %s", expected, result)
	}
}
