package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/mathfarm/internal/calculator"
)

// NewCalcCommand returns the calc subcommand.
func NewCalcCommand() *cli.Command {
	return &cli.Command{
		Name:      "calc",
		Usage:     "Evaluate an expression, or start an interactive calculator",
		ArgsUsage: "[expression]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "unit",
				Aliases: []string{"u"},
				Usage:   "Angle unit for trigonometry: rad or deg",
			},
		},
		Action: runCalc,
	}
}

func runCalc(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	unitName := cmd.String("unit")
	if unitName == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		unitName = cfg.Calculator.AngleUnit
	}
	unit, err := calculator.ParseAngleUnit(unitName)
	if err != nil {
		return err
	}
	calc := calculator.New(unit, 50)

	if cmd.Args().Len() > 0 {
		res, err := calc.Evaluate(strings.Join(cmd.Args().Slice(), " "))
		if err != nil {
			return err
		}
		fmt.Println(calculator.FormatValue(res.Value))
		return nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return calcREPL(calc)
	}
	return calcLines(calc, os.Stdin, os.Stdout)
}

// calcLines evaluates one expression per input line. Blank lines are skipped.
func calcLines(calc *calculator.Calculator, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fmt.Fprintln(w, calc.Display(line))
	}
	return scanner.Err()
}

func calcREPL(calc *calculator.Calculator) error {
	rl, err := readline.New(titleStyle.Render("calc> "))
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer rl.Close()

	fmt.Println(mutedStyle.Render(fmt.Sprintf("Angles in %s. Type :unit deg|rad, :history or :quit.", calc.Unit())))
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil // EOF
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case line == ":quit" || line == ":q":
			return nil
		case line == ":history":
			for _, r := range calc.History().Items() {
				fmt.Println(mutedStyle.Render(r.Expression+" ="), calculator.FormatValue(r.Value))
			}
		case strings.HasPrefix(line, ":unit"):
			unit, err := calculator.ParseAngleUnit(strings.TrimSpace(strings.TrimPrefix(line, ":unit")))
			if err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
				continue
			}
			calc = calc.WithUnit(unit)
			fmt.Println(mutedStyle.Render("Angles in " + string(unit) + "."))
		default:
			out := calc.Display(line)
			if strings.HasPrefix(out, "Error: ") {
				fmt.Println(errorStyle.Render(out))
			} else {
				fmt.Println(successStyle.Render(out))
			}
		}
	}
}
