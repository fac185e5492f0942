package plot

import (
	"fmt"

	"github.com/dohr-michael/mathfarm/internal/graph"
)

// Result is what the graphing tool renders for one input.
type Result struct {
	Equation graph.Equation `json:"equation"`
	Viewport Viewport       `json:"viewport"`
	Curve    []Point        `json:"curve,omitempty"`
	Contour  []Segment      `json:"contour,omitempty"`
	Defined  int            `json:"defined"` // samples or segments that produced geometry
}

// Options tune Plot. Zero values fall back to the defaults.
type Options struct {
	Samples    int
	Resolution int
}

// Plot classifies src, compiles it, and samples it over vp.
func Plot(src string, vp Viewport, opts Options) (*Result, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	eq, err := graph.Classify(src)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	res := &Result{Equation: eq, Viewport: vp}
	switch eq.Kind {
	case graph.KindExplicit:
		n := opts.Samples
		if n == 0 {
			n = DefaultSamples
		}
		res.Curve = Sample(eq.Func(), vp, n)
		for _, p := range res.Curve {
			if defined(p.Y) {
				res.Defined++
			}
		}
	case graph.KindImplicit:
		r := opts.Resolution
		if r == 0 {
			r = ContourResolution
		}
		res.Contour = Contour(eq.Difference(), vp, r)
		res.Defined = len(res.Contour)
	}
	return res, nil
}
