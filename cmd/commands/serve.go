package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/calculator"
	"github.com/dohr-michael/mathfarm/internal/config"
	"github.com/dohr-michael/mathfarm/internal/events"
	"github.com/dohr-michael/mathfarm/internal/gateway"
	"github.com/dohr-michael/mathfarm/internal/heartbeat"
	"github.com/dohr-michael/mathfarm/internal/plot"
	"github.com/dohr-michael/mathfarm/internal/prefs"
	"github.com/dohr-michael/mathfarm/internal/progress"
	"github.com/dohr-michael/mathfarm/internal/storage"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the Math Farm server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "static",
				Usage: "Directory of front-end files served at /",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}
	if cmd.IsSet("static") {
		cfg.Server.StaticDir = cmd.String("static")
	}

	unit, err := calculator.ParseAngleUnit(cfg.Calculator.AngleUnit)
	if err != nil {
		return fmt.Errorf("calculator.angle_unit: %w", err)
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	eventLog := storage.NewEventLogger(cfg.Storage.EventLogDir, bus)
	defer eventLog.Close()

	db, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	slog.Info("topics loaded", "count", len(catalog.Topics()))

	schedule, err := loadSchedule(cfg.Hours)
	if err != nil {
		return fmt.Errorf("hours: %w", err)
	}

	server := gateway.NewServer(gateway.Deps{
		Bus:     bus,
		Prefs:   prefs.NewManager(db.Prefs()),
		Catalog: catalog,
		Tracker: progress.NewTracker(db.Attempts(), bus, catalog.ProblemCount()),
		Hours:   schedule,
	}, gateway.Options{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		StaticDir: cfg.Server.StaticDir,
		Viewport: plot.Viewport{
			XMin: cfg.Graph.Viewport.XMin,
			XMax: cfg.Graph.Viewport.XMax,
			YMin: cfg.Graph.Viewport.YMin,
			YMax: cfg.Graph.Viewport.YMax,
		},
		Samples:     cfg.Graph.Samples,
		Resolution:  cfg.Graph.ContourResolution,
		AngleUnit:   unit,
		HistorySize: cfg.Calculator.HistorySize,
		MaxRetries: map[string]int{
			gateway.BoundaryGraph:      cfg.Boundaries.Graph,
			gateway.BoundaryCalculator: cfg.Boundaries.Calculator,
			gateway.BoundaryPractice:   cfg.Boundaries.Practice,
			gateway.BoundaryApp:        cfg.Boundaries.App,
		},
		MaxClients: cfg.Server.MaxClients,
	})

	// SIGHUP reloads .env and the config; the opening hours apply live.
	reloader := config.NewReloader(cmd.String("config"), config.DotenvPath(), cfg)
	reloader.OnReload(func(c *config.Config, changed []string) {
		for _, section := range changed {
			switch section {
			case "hours":
				s, err := loadSchedule(c.Hours)
				if err != nil {
					slog.Error("hours not reloaded", "error", err)
					continue
				}
				server.SetHours(s)
			default:
				slog.Warn("config section changed, restart to apply", "section", section)
			}
		}
		bus.Publish(events.NewTypedEvent(events.SourceConfig, events.ConfigReloadedPayload{
			Path:    cmd.String("config"),
			Changed: changed,
		}))
	})
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloader.Watch(ctx, hup)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		heartbeat.NewWriter(config.HeartbeatPath(), server.Addr(), heartbeat.DefaultInterval, func(hb *heartbeat.Heartbeat) {
			hb.Clients = server.Clients()
			hb.Failing = server.FailingBoundaries()
		}).Run(hbCtx)
	}()
	defer func() {
		stopHeartbeat()
		<-hbDone
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
