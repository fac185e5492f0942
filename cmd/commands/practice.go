package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/content"
	"github.com/dohr-michael/mathfarm/internal/progress"
	"github.com/dohr-michael/mathfarm/internal/storage"
)

// NewPracticeCommand returns the practice subcommand.
func NewPracticeCommand() *cli.Command {
	return &cli.Command{
		Name:      "practice",
		Usage:     "Check an answer to a practice problem",
		ArgsUsage: "<problem-id> <answer>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "client",
				Value: "cli",
				Usage: "Client ID the attempt is recorded for",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Only print the progress summary",
			},
		},
		Action: runPractice,
	}
}

func runPractice(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	db, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	tracker := progress.NewTracker(db.Attempts(), nil, catalog.ProblemCount())
	client := cmd.String("client")

	if cmd.Bool("progress") {
		sum, err := tracker.Summary(ctx, client)
		if err != nil {
			return err
		}
		printSummary(sum)
		return nil
	}

	if cmd.Args().Len() < 2 {
		return errors.New("usage: mathfarm practice <problem-id> <answer>")
	}
	p, err := catalog.Problem(cmd.Args().First())
	if err != nil {
		return err
	}
	verdict, err := content.Check(p, strings.Join(cmd.Args().Tail(), " "))
	if err != nil {
		return err
	}

	badges, err := tracker.Record(ctx, progress.Attempt{
		ClientID:  client,
		ProblemID: p.ID,
		TopicID:   p.TopicID,
		Correct:   verdict.Correct,
	})
	if err != nil {
		return err
	}

	if verdict.Correct {
		fmt.Println(successStyle.Render("Correct!"))
	} else {
		fmt.Println(errorStyle.Render("Not quite."))
		if verdict.Message != "" {
			fmt.Println(verdict.Message)
		}
		if verdict.Hint != "" {
			fmt.Println(mutedStyle.Render("Hint: " + verdict.Hint))
		}
	}
	for _, b := range badges {
		fmt.Println(warningStyle.Render("New badge: " + b.Title))
	}
	return nil
}

func printSummary(s progress.Summary) {
	fmt.Println(titleStyle.Render("Progress for " + s.ClientID))
	fmt.Println(field("solved", fmt.Sprintf("%d of %d problems tried", s.Solved, s.Tried)))
	fmt.Println(field("checks", fmt.Sprint(s.Attempted)))
	fmt.Println(field("streak", fmt.Sprintf("%d (best %d)", s.Streak, s.BestStreak)))
	titles := make([]string, 0, len(s.Badges))
	for _, b := range s.Badges {
		titles = append(titles, b.Title)
	}
	if len(titles) == 0 {
		titles = append(titles, mutedStyle.Render("none yet"))
	}
	fmt.Println(field("badges", strings.Join(titles, ", ")))
}
