package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/content"
)

// NewTopicsCommand returns the topics subcommand.
func NewTopicsCommand() *cli.Command {
	return &cli.Command{
		Name:  "topics",
		Usage: "Browse the topic cards",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List topics by level",
				Action: runTopicsList,
			},
			{
				Name:      "show",
				Usage:     "Show a topic card and its problems",
				ArgsUsage: "<topic-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "width", Value: 80, Usage: "Wrap width"},
				},
				Action: runTopicsShow,
			},
		},
		DefaultCommand: "list",
	}
}

func runTopicsList(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	t := newTable("ID", "LEVEL", "TITLE", "PROBLEMS", "TAGS")
	for _, topic := range catalog.Topics() {
		t.Row(topic.ID, fmt.Sprint(topic.Level), topic.Title, fmt.Sprint(len(topic.Problems)), strings.Join(topic.Tags, ", "))
	}
	lipgloss.Println(t)
	return nil
}

func runTopicsShow(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("usage: mathfarm topics show <topic-id>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	topic, err := catalog.Topic(id)
	if err != nil {
		return err
	}

	fmt.Println(renderMarkdown(topicMarkdown(topic), cmd.Int("width")))
	return nil
}

// topicMarkdown assembles the card body, its examples and the problem prompts.
func topicMarkdown(t content.Topic) string {
	var b strings.Builder
	body := strings.TrimSpace(t.Body)
	if body == "" {
		body = "# " + t.Title + "\n\n" + t.Summary
	}
	b.WriteString(body)
	b.WriteString("\n")

	if len(t.Examples) > 0 {
		b.WriteString("\n## Try plotting\n\n")
		for _, ex := range t.Examples {
			fmt.Fprintf(&b, "- `%s`\n", ex)
		}
	}
	if len(t.Problems) > 0 {
		b.WriteString("\n## Practice\n\n")
		for _, p := range t.Problems {
			fmt.Fprintf(&b, "- **%s**: %s\n", p.ID, p.Prompt)
		}
		b.WriteString("\nAnswer with `mathfarm practice <problem-id> <answer>`.\n")
	}
	return b.String()
}

// renderMarkdown renders md for the terminal, returning it unchanged when
// rendering fails.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
