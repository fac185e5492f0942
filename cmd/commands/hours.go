package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// NewHoursCommand returns the hours subcommand.
func NewHoursCommand() *cli.Command {
	return &cli.Command{
		Name:  "hours",
		Usage: "Show whether the help desk is open",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			schedule, err := loadSchedule(cfg.Hours)
			if err != nil {
				return err
			}

			st := schedule.Status(time.Now())
			if st.Open {
				fmt.Println(successStyle.Render("OPEN"), "until", st.Until.Format("Mon 15:04"), mutedStyle.Render(st.Timezone))
			} else {
				next := "never"
				if !st.NextOpen.IsZero() {
					next = st.NextOpen.Format("Mon 15:04")
				}
				fmt.Println(errorStyle.Render("CLOSED"), "opens", next, mutedStyle.Render(st.Timezone))
			}
			fmt.Println(mutedStyle.Render(schedule.String()))
			return nil
		},
	}
}
