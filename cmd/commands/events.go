package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/events"
	"github.com/dohr-michael/mathfarm/internal/storage"
)

// NewEventsCommand returns the events subcommand.
func NewEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Show recent events from the server logs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "client",
				Usage: "Client ID (default: events not tied to a client)",
			},
			&cli.StringSliceFlag{
				Name:  "type",
				Usage: "Only show these event types (e.g. boundary.exhausted)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Number of events to show",
			},
		},
		Action: runEvents,
	}
}

func runEvents(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var types []events.EventType
	for _, t := range cmd.StringSlice("type") {
		types = append(types, events.EventType(t))
	}

	list, err := storage.ReadEvents(cfg.Storage.EventLogDir, cmd.String("client"), cmd.Int("limit"), types...)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	t := newTable("TIME", "TYPE", "SOURCE", "DETAILS")
	for _, e := range list {
		t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), string(e.Type), string(e.Source), payloadSummary(e.Payload))
	}
	lipgloss.Println(t)
	return nil
}

// payloadSummary renders a payload as sorted key=value pairs.
func payloadSummary(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, " ")
}
