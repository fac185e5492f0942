// Command mathfarm serves and drives the Math Farm learning tools.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dohr-michael/mathfarm/cmd/commands"
	"github.com/dohr-michael/mathfarm/internal/config"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	dotenv := config.DotenvPath()
	if err := config.LoadDotenv(dotenv); err != nil {
		slog.Warn("ignoring .env", "path", dotenv, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCommand().Run(ctx, args); err != nil {
		slog.Error("mathfarm failed", "error", err)
		return 1
	}
	return 0
}
