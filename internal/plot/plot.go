// Package plot samples compiled functions into data a renderer can draw.
package plot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/dohr-michael/mathfarm/internal/graph"
)

// ContourResolution is the fixed grid size used to trace implicit curves.
const ContourResolution = 96

// DefaultSamples is the number of samples taken across an explicit curve.
const DefaultSamples = 400

const maxSamples = 10000

var ErrViewport = errors.New("invalid viewport")

// Viewport is the visible region of the plane.
type Viewport struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// DefaultViewport is the bounding box the graphing tool starts with.
var DefaultViewport = Viewport{XMin: -10, XMax: 10, YMin: -10, YMax: 10}

// Validate checks that both ranges are finite and non-empty.
func (vp Viewport) Validate() error {
	for _, v := range []float64{vp.XMin, vp.XMax, vp.YMin, vp.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bounds must be finite", ErrViewport)
		}
	}
	if vp.XMin >= vp.XMax || vp.YMin >= vp.YMax {
		return fmt.Errorf("%w: expects min < max", ErrViewport)
	}
	return nil
}

// Point is a sample. Y is NaN where the function is undefined.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes NaN coordinates as null.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]*float64{finiteOrNil(p.X), finiteOrNil(p.Y)})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Segment is a straight piece of a traced contour.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Sample evaluates f at n evenly spaced x values across the viewport.
// Undefined samples are kept as NaN so renderers can break the line there.
func Sample(f graph.Func, vp Viewport, n int) []Point {
	if n < 2 {
		n = 2
	}
	if n > maxSamples {
		n = maxSamples
	}
	out := make([]Point, n)
	dx := (vp.XMax - vp.XMin) / float64(n-1)
	for i := 0; i < n; i++ {
		x := vp.XMin + float64(i)*dx
		out[i] = Point{X: x, Y: f(x)}
	}
	return out
}

// Segments splits a sampled curve into runs of defined points.
func Segments(points []Point) [][]Point {
	var out [][]Point
	var run []Point
	for _, p := range points {
		if math.IsNaN(p.Y) {
			if len(run) > 0 {
				out = append(out, run)
				run = nil
			}
			continue
		}
		run = append(run, p)
	}
	if len(run) > 0 {
		out = append(out, run)
	}
	return out
}

// Contour traces the zero set of f with marching squares over a
// resolution x resolution grid. Cells with an undefined corner are skipped.
func Contour(f graph.Func2, vp Viewport, resolution int) []Segment {
	n := resolution
	if n < 8 {
		n = 8
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		xs[i] = vp.XMin + t*(vp.XMax-vp.XMin)
		ys[i] = vp.YMin + t*(vp.YMax-vp.YMin)
	}
	val := make([]float64, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			val[j*n+i] = f(xs[i], ys[j])
		}
	}

	var out []Segment
	for j := 0; j < n-1; j++ {
		y0, y1 := ys[j], ys[j+1]
		for i := 0; i < n-1; i++ {
			x0, x1 := xs[i], xs[i+1]
			z00 := val[j*n+i]
			z10 := val[j*n+i+1]
			z01 := val[(j+1)*n+i]
			z11 := val[(j+1)*n+i+1]
			if !defined(z00) || !defined(z10) || !defined(z01) || !defined(z11) {
				continue
			}

			idx := 0
			if z00 > 0 {
				idx |= 1
			}
			if z10 > 0 {
				idx |= 2
			}
			if z11 > 0 {
				idx |= 4
			}
			if z01 > 0 {
				idx |= 8
			}
			if idx == 0 || idx == 15 {
				continue
			}

			// Edges: 0 bottom (00-10), 1 right (10-11), 2 top (01-11), 3 left (00-01).
			var e [4]Point
			e[0] = interp(x0, y0, z00, x1, y0, z10)
			e[1] = interp(x1, y0, z10, x1, y1, z11)
			e[2] = interp(x0, y1, z01, x1, y1, z11)
			e[3] = interp(x0, y0, z00, x0, y1, z01)

			emit := func(a, b int) { out = append(out, Segment{A: e[a], B: e[b]}) }
			switch idx {
			case 1, 14:
				emit(3, 0)
			case 2, 13:
				emit(0, 1)
			case 3, 12:
				emit(3, 1)
			case 4, 11:
				emit(1, 2)
			case 5:
				emit(3, 2)
				emit(0, 1)
			case 6, 9:
				emit(0, 2)
			case 7, 8:
				emit(3, 2)
			case 10:
				emit(3, 0)
				emit(1, 2)
			}
		}
	}
	return out
}

func defined(z float64) bool { return !math.IsNaN(z) && !math.IsInf(z, 0) }

func interp(x0, y0, z0, x1, y1, z1 float64) Point {
	dz := z1 - z0
	if dz == 0 {
		return Point{X: (x0 + x1) / 2, Y: (y0 + y1) / 2}
	}
	t := -z0 / dz
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Point{X: x0 + t*(x1-x0), Y: y0 + t*(y1-y0)}
}
