package plot

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/dohr-michael/mathfarm/internal/graph"
)

func TestSampleKeepsGaps(t *testing.T) {
	vp := Viewport{XMin: -1, XMax: 1, YMin: -1, YMax: 1}
	pts := Sample(graph.Compile("1/x"), vp, 5)
	if len(pts) != 5 {
		t.Fatalf("expected 5 points, got %d", len(pts))
	}
	if pts[0].X != -1 || pts[4].X != 1 {
		t.Fatalf("unexpected x range: %v..%v", pts[0].X, pts[4].X)
	}
	if !math.IsNaN(pts[2].Y) {
		t.Fatalf("expected NaN at x=0, got %v", pts[2].Y)
	}

	segs := Segments(pts)
	if len(segs) != 2 {
		t.Fatalf("expected 2 runs split at the singularity, got %d", len(segs))
	}
	if len(segs[0]) != 2 || len(segs[1]) != 2 {
		t.Fatalf("unexpected run lengths: %d, %d", len(segs[0]), len(segs[1]))
	}
}

func TestSampleClampsCount(t *testing.T) {
	pts := Sample(graph.Compile("x"), DefaultViewport, 1)
	if len(pts) != 2 {
		t.Fatalf("expected at least 2 samples, got %d", len(pts))
	}
}

func TestContourCircle(t *testing.T) {
	vp := Viewport{XMin: -3, XMax: 3, YMin: -3, YMax: 3}
	segs := Contour(graph.CompileImplicit("x^2 + y^2 = 4"), vp, 48)
	if len(segs) == 0 {
		t.Fatal("expected contour segments")
	}
	for _, s := range segs {
		for _, p := range []Point{s.A, s.B} {
			r := math.Hypot(p.X, p.Y)
			if math.Abs(r-2) > 0.15 {
				t.Fatalf("point %+v is %v from origin, want ~2", p, r)
			}
		}
	}
}

func TestContourSkipsUndefinedCells(t *testing.T) {
	vp := Viewport{XMin: -2, XMax: 2, YMin: -2, YMax: 2}
	// sqrt is undefined for x < 0, so only the right half is traced.
	segs := Contour(graph.CompileImplicit("sqrt(x) = y"), vp, 32)
	if len(segs) == 0 {
		t.Fatal("expected segments on the defined half")
	}
	for _, s := range segs {
		if s.A.X < -0.2 || s.B.X < -0.2 {
			t.Fatalf("segment %+v lies in the undefined half", s)
		}
	}
}

func TestContourAllNaN(t *testing.T) {
	segs := Contour(graph.CompileImplicit("invalid_function(x) = y"), DefaultViewport, ContourResolution)
	if len(segs) != 0 {
		t.Fatalf("expected no segments, got %d", len(segs))
	}
}

func TestViewportValidate(t *testing.T) {
	bad := []Viewport{
		{XMin: 1, XMax: 1, YMin: 0, YMax: 1},
		{XMin: 0, XMax: 1, YMin: 2, YMax: -2},
		{XMin: math.Inf(-1), XMax: 1, YMin: 0, YMax: 1},
		{XMin: 0, XMax: math.NaN(), YMin: 0, YMax: 1},
	}
	for _, vp := range bad {
		if err := vp.Validate(); !errors.Is(err, ErrViewport) {
			t.Errorf("Validate(%+v) = %v, want ErrViewport", vp, err)
		}
	}
	if err := DefaultViewport.Validate(); err != nil {
		t.Fatalf("default viewport invalid: %v", err)
	}
}

func TestPointJSONEncodesNaNAsNull(t *testing.T) {
	data, err := json.Marshal([]Point{{X: 1, Y: 2}, {X: 0, Y: math.NaN()}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[[1,2],[0,null]]` {
		t.Fatalf("got %s", data)
	}
}

func TestPlot(t *testing.T) {
	res, err := Plot("x^2", DefaultViewport, Options{Samples: 21})
	if err != nil {
		t.Fatal(err)
	}
	if res.Equation.Kind != graph.KindExplicit {
		t.Fatalf("kind = %s", res.Equation.Kind)
	}
	if len(res.Curve) != 21 || res.Defined != 21 {
		t.Fatalf("curve=%d defined=%d", len(res.Curve), res.Defined)
	}
	if res.Curve[10].Y != 0 {
		t.Fatalf("vertex at %v, want 0", res.Curve[10].Y)
	}

	res, err = Plot("x^2 + y^2 = 4", DefaultViewport, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Equation.Kind != graph.KindImplicit || len(res.Contour) == 0 {
		t.Fatalf("kind=%s segments=%d", res.Equation.Kind, len(res.Contour))
	}

	if _, err := Plot("sin(t)", DefaultViewport, Options{}); !errors.Is(err, graph.ErrUnsupportedVariable) {
		t.Fatalf("expected ErrUnsupportedVariable, got %v", err)
	}
	if _, err := Plot("x", Viewport{}, Options{}); !errors.Is(err, ErrViewport) {
		t.Fatalf("expected ErrViewport, got %v", err)
	}
}
