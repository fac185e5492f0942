package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/mathfarm/internal/calculator"
	"github.com/dohr-michael/mathfarm/internal/graph"
	"github.com/dohr-michael/mathfarm/internal/plot"
	"github.com/dohr-michael/mathfarm/internal/rewrite"
)

// NewPlotCommand returns the plot subcommand.
func NewPlotCommand() *cli.Command {
	return &cli.Command{
		Name:      "plot",
		Usage:     "Sample an equation over a viewport",
		ArgsUsage: "<equation>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "xmin", Value: plot.DefaultViewport.XMin, Usage: "Left edge"},
			&cli.Float64Flag{Name: "xmax", Value: plot.DefaultViewport.XMax, Usage: "Right edge"},
			&cli.Float64Flag{Name: "ymin", Value: plot.DefaultViewport.YMin, Usage: "Bottom edge"},
			&cli.Float64Flag{Name: "ymax", Value: plot.DefaultViewport.YMax, Usage: "Top edge"},
			&cli.IntFlag{Name: "samples", Value: 11, Usage: "Samples for y = f(x) equations"},
			&cli.IntFlag{Name: "resolution", Value: plot.ContourResolution, Usage: "Grid cells per axis for implicit equations"},
			&cli.BoolFlag{Name: "json", Usage: "Print the raw plot result as JSON"},
		},
		Action: runPlot,
	}
}

func runPlot(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	src := strings.Join(cmd.Args().Slice(), " ")
	if src == "" {
		return errors.New("usage: mathfarm plot <equation>")
	}

	vp := plot.Viewport{
		XMin: cmd.Float64("xmin"),
		XMax: cmd.Float64("xmax"),
		YMin: cmd.Float64("ymin"),
		YMax: cmd.Float64("ymax"),
	}
	res, err := plot.Plot(src, vp, plot.Options{
		Samples:    cmd.Int("samples"),
		Resolution: cmd.Int("resolution"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Println(titleStyle.Render(res.Equation.Source) + " " + mutedStyle.Render(string(res.Equation.Kind)))

	if res.Equation.Kind == graph.KindImplicit {
		fmt.Println(field("segments", fmt.Sprint(len(res.Contour))))
		if len(res.Contour) == 0 {
			fmt.Println(warningStyle.Render("The curve does not cross this viewport."))
		}
		return nil
	}

	t := newTable("x", "y", "expanded")
	for _, p := range res.Curve {
		y := mutedStyle.Render("undefined")
		if !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) {
			y = calculator.FormatValue(p.Y)
		}
		t.Row(calculator.FormatValue(p.X), y, rewrite.Expand(res.Equation.Right, map[string]float64{"x": p.X}))
	}
	lipgloss.Println(t)
	return nil
}

// NewClassifyCommand returns the classify subcommand.
func NewClassifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Tell whether an equation is y = f(x) or implicit",
		ArgsUsage: "<equation>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			src := strings.Join(cmd.Args().Slice(), " ")
			eq, err := graph.Classify(src)
			if err != nil {
				return err
			}

			fmt.Println(field("kind", titleStyle.Render(string(eq.Kind))))
			if eq.Left != "" {
				fmt.Println(field("left", eq.Left))
			}
			fmt.Println(field("right", eq.Right))
			vars := "none"
			if len(eq.Vars) > 0 {
				vars = strings.Join(eq.Vars, ", ")
			}
			fmt.Println(field("variables", vars))
			return nil
		},
	}
}
