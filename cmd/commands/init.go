package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/config"
)

// NewInitCommand returns the setup subcommand.
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Create the Math Farm home directory (~/.mathfarm)",
		Action: runInit,
	}
}

func runInit(_ context.Context, _ *cli.Command) error {
	created, err := initHome(config.MathFarmPath())
	if err != nil {
		return err
	}
	for _, p := range created {
		fmt.Printf("  Created %s\n", p)
	}
	if len(created) == 0 {
		fmt.Printf("%s is already set up. Nothing to do.\n", config.MathFarmPath())
		return nil
	}
	fmt.Println(initMessage(config.MathFarmPath()))
	return nil
}

// initHome creates the data directory layout under root and writes a default
// config and .env when missing. It returns the paths it created.
func initHome(root string) ([]string, error) {
	var created []string

	for _, d := range []string{root, filepath.Join(root, "logs"), filepath.Join(root, "topics")} {
		if _, err := os.Stat(d); err == nil {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return created, fmt.Errorf("create dir %s: %w", d, err)
		}
		created = append(created, d)
	}

	files := []struct {
		path string
		data string
		perm os.FileMode
	}{
		{filepath.Join(root, "config.jsonc"), defaultConfig, 0o644},
		{filepath.Join(root, ".env"), defaultDotenv, 0o600},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.data), f.perm); err != nil {
			return created, fmt.Errorf("write %s: %w", f.path, err)
		}
		created = append(created, f.path)
	}
	return created, nil
}

const defaultConfig = `{
	// Math Farm configuration

	"server": {
		"host": "${{ .Env.MATHFARM_HOST }}",
		"port": 18430,
		"max_clients": 1024
		// "static_dir": "/path/to/frontend/dist"
	},

	"graph": {
		"samples": 400,
		"contour_resolution": 96,
		"viewport": {"x_min": -10, "x_max": 10, "y_min": -10, "y_max": 10}
	},

	"calculator": {
		"angle_unit": "rad",
		"history_size": 10
	},

	// Retries allowed after a failure before a page reload is suggested.
	"boundaries": {
		"graph": 2,
		"calculator": 3,
		"practice": 2,
		"app": 2
	},

	// Uncomment to replace the built-in topics.
	// "content": {"dir": "~/.mathfarm/topics"},

	"hours": {
		"timezone": "UTC",
		"windows": [
			{"open": "0 8 * * 1-5", "duration": "10h"},
			{"open": "0 10 * * 6", "duration": "4h"}
		]
	},

	"events": {
		"buffer_size": 1024
	}
}
`

const defaultDotenv = `# Math Farm environment variables
# This file is loaded automatically. Existing env vars are never overridden.

MATHFARM_HOST=127.0.0.1
`

func initMessage(root string) string {
	return fmt.Sprintf(`
  Math Farm is ready in %s

  Next steps:
    1. Tweak %s/config.jsonc if you like
    2. Run: mathfarm serve
    3. Or try: mathfarm plot "y = x^2"
`, root, root)
}
