package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMathFarmPath_Default(t *testing.T) {
	t.Setenv("MATHFARM_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := MathFarmPath()
	want := filepath.Join(home, ".mathfarm")
	if got != want {
		t.Errorf("MathFarmPath() = %q, want %q", got, want)
	}
}

func TestMathFarmPath_EnvOverride(t *testing.T) {
	t.Setenv("MATHFARM_PATH", "/tmp/custom-mathfarm")

	got := MathFarmPath()
	want := "/tmp/custom-mathfarm"
	if got != want {
		t.Errorf("MathFarmPath() = %q, want %q", got, want)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("MATHFARM_PATH", "/tmp/test-mathfarm")

	got := ConfigPath()
	want := "/tmp/test-mathfarm/config.jsonc"
	if got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestDotenvPath(t *testing.T) {
	t.Setenv("MATHFARM_PATH", "/tmp/test-mathfarm")

	got := DotenvPath()
	want := "/tmp/test-mathfarm/.env"
	if got != want {
		t.Errorf("DotenvPath() = %q, want %q", got, want)
	}
}

func TestHeartbeatPath(t *testing.T) {
	t.Setenv("MATHFARM_PATH", "/tmp/test-mathfarm")

	got := HeartbeatPath()
	want := "/tmp/test-mathfarm/heartbeat.json"
	if got != want {
		t.Errorf("HeartbeatPath() = %q, want %q", got, want)
	}
}
