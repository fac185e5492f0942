package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/config"
	"github.com/dohr-michael/mathfarm/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show Math Farm server status",
		Action: func(_ context.Context, _ *cli.Command) error {
			hb, err := heartbeat.Read(config.HeartbeatPath())
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}
			fmt.Println(statusReport(hb, time.Now()))
			return nil
		},
	}
}

// statusReport renders the heartbeat; a heartbeat older than four write
// intervals is stale.
func statusReport(hb *heartbeat.Heartbeat, now time.Time) string {
	var lines []string
	switch hb.Status(now, 4*heartbeat.DefaultInterval) {
	case heartbeat.StatusDead:
		return field("server", errorStyle.Render("NOT RUNNING"))
	case heartbeat.StatusStale:
		lines = append(lines, field("server", warningStyle.Render("STALE"))+" "+
			mutedStyle.Render(fmt.Sprintf("(PID %d, last heartbeat %s ago)", hb.PID, now.Sub(hb.Timestamp).Truncate(time.Second))))
	case heartbeat.StatusAlive:
		lines = append(lines, field("server", successStyle.Render("ALIVE"))+" "+
			mutedStyle.Render(fmt.Sprintf("(PID %d, uptime %s)", hb.PID, hb.Uptime())))
	}

	lines = append(lines, field("address", hb.Addr), field("clients", fmt.Sprint(hb.Clients)))
	if len(hb.Failing) == 0 {
		lines = append(lines, field("failing", mutedStyle.Render("none")))
	} else {
		lines = append(lines, field("failing", errorStyle.Render(strings.Join(hb.Failing, ", "))))
	}
	return strings.Join(lines, "\n")
}
