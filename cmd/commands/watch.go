package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	wsclient "github.com/dohr-michael/mathfarm/clients/ws"
	"github.com/dohr-michael/mathfarm/internal/events"
	wsprotocol "github.com/dohr-michael/mathfarm/internal/gateway/ws"
)

// NewWatchCommand returns the watch subcommand.
func NewWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Stream live events from a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "client",
				Usage: "Only events for this client ID (plus global ones)",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "WebSocket endpoint (default: from config)",
			},
		},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	endpoint := cmd.String("url")
	if endpoint == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		endpoint = fmt.Sprintf("ws://%s:%d/api/ws", cfg.Server.Host, cfg.Server.Port)
	}

	client, err := wsclient.Dial(ctx, endpoint, cmd.String("client"))
	if err != nil {
		return err
	}
	defer client.Close()

	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if frame.Type != wsprotocol.FrameTypeEvent {
			continue
		}
		fmt.Println(formatFrame(frame))
	}
}

// formatFrame renders one event frame as a single line.
func formatFrame(f wsprotocol.Frame) string {
	if f.Event == wsprotocol.EventHello {
		return mutedStyle.Render("connected as " + f.ClientID)
	}

	var e events.Event
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		return f.Event + " " + string(f.Payload)
	}
	style := mutedStyle
	switch e.Type {
	case events.EventBoundaryFailed, events.EventBoundaryExhausted:
		style = errorStyle
	case events.EventBadgeAwarded:
		style = successStyle
	case events.EventPrefsUpdated, events.EventConfigReloaded:
		style = warningStyle
	}
	line := e.Timestamp.Format("15:04:05") + " " + style.Render(string(e.Type))
	if e.ClientID != "" {
		line += " " + mutedStyle.Render("["+e.ClientID+"]")
	}
	return line + " " + payloadSummary(e.Payload)
}
