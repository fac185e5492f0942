package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/dohr-michael/mathfarm/internal/expr"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

var samples = []float64{-10, -3.5, -1, -0.25, 0, 0.5, 1, 2, math.Pi, 7.75}

func TestCompileScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		x    float64
		want float64
	}{
		{name: "square", src: "x^2", x: 3, want: 9},
		{name: "implicit multiplication with function", src: "2sin(3x)", x: math.Pi / 6, want: 2},
		{name: "power glyph", src: "x**3", x: 2, want: 8},
		{name: "superscript", src: "x²", x: -4, want: 16},
		{name: "natural log", src: "ln(e^x)", x: 1.5, want: 1.5},
		{name: "common log", src: "log(1000)", x: 0, want: 3},
		{name: "upper case input", src: "SQRT(X)", x: 16, want: 4},
		{name: "product of parens", src: "(x+1)(x-1)", x: 3, want: 8},
		{name: "euler times two minus one", src: "2*e-1", x: 3, want: 2*math.E - 1},
		{name: "juxtaposed euler minus one", src: "2e-1", x: 3, want: 2*math.E - 1},
		{name: "euler after a power", src: "x^2*e-1", x: 3, want: 9*math.E - 1},
		{name: "euler plus one", src: "3*e+1", x: 0, want: 3*math.E + 1},
		{name: "scientific literal", src: "1e5", x: 0, want: 100000},
		{name: "scientific literal times x", src: "2.5e3x", x: 2, want: 5000},
		{name: "bare root", src: "√x", x: 16, want: 4},
		{name: "root of a number", src: "x√4", x: 3, want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compile(tt.src)(tt.x)
			if !approx(got, tt.want) {
				t.Fatalf("Compile(%q)(%v) = %v, want %v", tt.src, tt.x, got, tt.want)
			}
		})
	}
}

func TestCompileReturnsNaN(t *testing.T) {
	tests := []struct {
		src string
		x   float64
	}{
		{src: "1/x", x: 0},
		{src: "-1/x", x: 0},
		{src: "ln(x)", x: 0},
		{src: "sqrt(x)", x: -1},
		{src: "invalid_function(x)", x: 1},
		{src: "x +", x: 1},
		{src: "z * x", x: 1},
		{src: "", x: 1},
		{src: "10^x", x: 400},
	}

	for _, tt := range tests {
		got := Compile(tt.src)(tt.x)
		if !math.IsNaN(got) {
			t.Errorf("Compile(%q)(%v) = %v, want NaN", tt.src, tt.x, got)
		}
	}
}

func TestConstantExpressionsAreConstant(t *testing.T) {
	for _, src := range []string{"e", "sin(pi)", "2pi", "sqrt(2)"} {
		f := Compile(src)
		first := f(samples[0])
		for _, x := range samples[1:] {
			if got := f(x); got != first {
				t.Errorf("Compile(%q) not constant: f(%v)=%v, f(%v)=%v", src, samples[0], first, x, got)
			}
		}
	}
}

func TestImplicitMultiplicationEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"2x", "2*x"},
		{"3(x+1)", "3*(x+1)"},
		{"(x+1)(x-2)", "(x+1)*(x-2)"},
		{"2sin(x)", "2*sin(x)"},
	}
	for _, p := range pairs {
		a, b := Compile(p[0]), Compile(p[1])
		for _, x := range samples {
			if a(x) != b(x) {
				t.Errorf("%q and %q differ at x=%v: %v vs %v", p[0], p[1], x, a(x), b(x))
			}
		}
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	f := Compile("sin(x) + x^2/3")
	for _, x := range samples {
		if f(x) != f(x) {
			t.Fatalf("f(%v) not deterministic", x)
		}
	}
}

func TestCompileChecked(t *testing.T) {
	if _, err := CompileChecked("invalid_function(x)"); !errors.Is(err, expr.ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
	f, err := CompileChecked("x + 1")
	if err != nil {
		t.Fatal(err)
	}
	if f(1) != 2 {
		t.Fatalf("f(1) = %v", f(1))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		src      string
		wantKind Kind
		wantVars []string
	}{
		{src: "sin(x)", wantKind: KindExplicit, wantVars: []string{"x"}},
		{src: "x^2 + y^2 = 4", wantKind: KindImplicit, wantVars: []string{"x", "y"}},
		{src: "y = 2x + 1", wantKind: KindExplicit, wantVars: []string{"x"}},
		{src: "y = y^2 + x", wantKind: KindImplicit, wantVars: []string{"x", "y"}},
		{src: "x = 3", wantKind: KindImplicit, wantVars: []string{"x"}},
		{src: "xy = 1", wantKind: KindImplicit, wantVars: []string{"xy"}},
		{src: "5", wantKind: KindExplicit, wantVars: []string{}},
	}

	for _, tt := range tests {
		if tt.src == "xy = 1" {
			// Juxtaposed letters form a single identifier, which is not a supported variable.
			if _, err := Classify(tt.src); !errors.Is(err, ErrUnsupportedVariable) {
				t.Errorf("Classify(%q): expected ErrUnsupportedVariable, got %v", tt.src, err)
			}
			continue
		}
		// Run twice: classification must not depend on prior calls.
		for i := 0; i < 2; i++ {
			eq, err := Classify(tt.src)
			if err != nil {
				t.Fatalf("Classify(%q): %v", tt.src, err)
			}
			if eq.Kind != tt.wantKind {
				t.Errorf("Classify(%q).Kind = %s, want %s", tt.src, eq.Kind, tt.wantKind)
			}
			if len(eq.Vars) != len(tt.wantVars) {
				t.Errorf("Classify(%q).Vars = %v, want %v", tt.src, eq.Vars, tt.wantVars)
				continue
			}
			for j := range eq.Vars {
				if eq.Vars[j] != tt.wantVars[j] {
					t.Errorf("Classify(%q).Vars = %v, want %v", tt.src, eq.Vars, tt.wantVars)
				}
			}
		}
	}
}

func TestClassifyErrors(t *testing.T) {
	if _, err := Classify("x = y = 1"); !errors.Is(err, expr.ErrParse) {
		t.Errorf("double '=': got %v", err)
	}
	if _, err := Classify("x^2 + y^2"); !errors.Is(err, ErrUnsupportedVariable) {
		t.Errorf("y without '=': got %v", err)
	}
	if _, err := Classify("sin(t)"); !errors.Is(err, ErrUnsupportedVariable) {
		t.Errorf("free t: got %v", err)
	}
}

func TestIsImplicit(t *testing.T) {
	for i := 0; i < 3; i++ {
		if !IsImplicit("x^2 + y^2 = 4") {
			t.Fatal("circle should be implicit")
		}
		if IsImplicit("sin(x)") {
			t.Fatal("sin(x) should be explicit")
		}
	}
}

func TestCompileImplicit(t *testing.T) {
	f := CompileImplicit("x^2 + y^2 = 4")
	if got := f(2, 0); got != 0 {
		t.Fatalf("f(2,0) = %v, want 0", got)
	}
	if got := f(0, 0); got != -4 {
		t.Fatalf("f(0,0) = %v, want -4", got)
	}
	if got := f(3, 1); got != 6 {
		t.Fatalf("f(3,1) = %v, want 6", got)
	}

	g := CompileImplicit("1/x + y = 1")
	if !math.IsNaN(g(0, 1)) {
		t.Fatalf("singular sample should be NaN, got %v", g(0, 1))
	}
	if got := g(1, 0); got != 0 {
		t.Fatalf("g(1,0) = %v, want 0", got)
	}

	bad := CompileImplicit("invalid_function(x) = y")
	if !math.IsNaN(bad(1, 1)) {
		t.Fatal("expected NaN for unknown function")
	}
}

func TestDifferenceOverflowIsNaN(t *testing.T) {
	f := CompileImplicit("x = -x")
	if got := f(1e308, 0); !math.IsNaN(got) {
		t.Fatalf("f(1e308,0) = %v, want NaN", got)
	}
	if got := f(1, 0); got != 2 {
		t.Fatalf("f(1,0) = %v, want 2", got)
	}

	eq, err := Classify("y = x")
	if err != nil {
		t.Fatal(err)
	}
	if got := eq.Difference()(-1e308, 1e308); !math.IsNaN(got) {
		t.Fatalf("explicit difference = %v, want NaN", got)
	}
}

func TestEquationDifferenceForExplicit(t *testing.T) {
	eq, err := Classify("y = x^2")
	if err != nil {
		t.Fatal(err)
	}
	d := eq.Difference()
	if got := d(3, 9); got != 0 {
		t.Fatalf("d(3,9) = %v", got)
	}
	if got := eq.Func()(4); got != 16 {
		t.Fatalf("Func()(4) = %v", got)
	}
}
