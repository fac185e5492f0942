package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/config"
	"github.com/dohr-michael/mathfarm/internal/content"
	"github.com/dohr-michael/mathfarm/internal/hours"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "mathfarm",
		Usage: "Graphing, a calculator and practice problems for young mathematicians",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewInitCommand(),
			NewServeCommand(),
			NewPlotCommand(),
			NewClassifyCommand(),
			NewCalcCommand(),
			NewTopicsCommand(),
			NewPracticeCommand(),
			NewHoursCommand(),
			NewEventsCommand(),
			NewWatchCommand(),
			NewStatusCommand(),
		},
	}
}

func setupLogging(cmd *cli.Command) {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
}

// loadConfig reads the --config file, using the defaults when it is missing.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// loadCatalog returns the built-in topics, or the ones in cfg.Content.Dir.
func loadCatalog(cfg *config.Config) (*content.Catalog, error) {
	if cfg.Content.Dir == "" {
		return content.Load()
	}
	catalog, err := content.LoadFS(os.DirFS(cfg.Content.Dir))
	if err != nil {
		return nil, fmt.Errorf("load topics from %s: %w", cfg.Content.Dir, err)
	}
	return catalog, nil
}

// loadSchedule builds the opening-hours schedule. No configured windows
// means the default ones.
func loadSchedule(cfg config.HoursConfig) (*hours.Schedule, error) {
	windows := hours.DefaultWindows
	if len(cfg.Windows) > 0 {
		windows = make([]hours.Window, 0, len(cfg.Windows))
		for _, w := range cfg.Windows {
			windows = append(windows, hours.Window{Open: w.Open, Duration: w.Duration.Duration()})
		}
	}
	return hours.New(cfg.Timezone, windows)
}
