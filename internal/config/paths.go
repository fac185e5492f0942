package config

import (
	"os"
	"path/filepath"
)

// MathFarmPath returns the root directory for Math Farm data.
// It uses $MATHFARM_PATH if set, otherwise defaults to ~/.mathfarm.
func MathFarmPath() string {
	if v := os.Getenv("MATHFARM_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".mathfarm")
	}
	return filepath.Join(home, ".mathfarm")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(MathFarmPath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(MathFarmPath(), ".env")
}

// HeartbeatPath returns the path of the server liveness file.
func HeartbeatPath() string {
	return filepath.Join(MathFarmPath(), "heartbeat.json")
}
