package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dohr-michael/mathfarm/internal/expr"
)

var ErrUnsupportedVariable = errors.New("unsupported variable")

// Kind tells how an input should be plotted.
type Kind string

const (
	KindExplicit Kind = "explicit" // y = f(x)
	KindImplicit Kind = "implicit" // f(x, y) = g(x, y)
)

// Equation is a classified input.
type Equation struct {
	Source string   `json:"source"`
	Kind   Kind     `json:"kind"`
	Left   string   `json:"left,omitempty"`
	Right  string   `json:"right"`
	Vars   []string `json:"vars"`

	left, right expr.Node
}

// Classify parses both sides of src and decides, from the variables that
// actually occur, whether it is an explicit function of x or an implicit
// relation in x and y.
func Classify(src string) (Equation, error) {
	eq := Equation{Source: src}

	lhs, rhs, hasEq := strings.Cut(src, "=")
	if !hasEq {
		n, err := Parse(src)
		if err != nil {
			return eq, err
		}
		eq.Kind = KindExplicit
		eq.Right = strings.TrimSpace(src)
		eq.right = n
		eq.Vars = expr.FreeVars(n)
		if err := checkVars(eq.Vars, "x"); err != nil {
			return eq, err
		}
		return eq, nil
	}
	if strings.Contains(rhs, "=") {
		return eq, fmt.Errorf("%w: more than one '='", expr.ErrParse)
	}

	left, err := Parse(lhs)
	if err != nil {
		return eq, err
	}
	right, err := Parse(rhs)
	if err != nil {
		return eq, err
	}
	eq.Left = strings.TrimSpace(lhs)
	eq.Right = strings.TrimSpace(rhs)
	eq.left, eq.right = left, right
	eq.Vars = mergeVars(expr.FreeVars(left), expr.FreeVars(right))
	if err := checkVars(eq.Vars, "x", "y"); err != nil {
		return eq, err
	}

	if v, ok := left.(expr.Var); ok && v.Name == "y" && !slices.Contains(expr.FreeVars(right), "y") {
		eq.Kind = KindExplicit
		eq.Left = ""
		eq.left = nil
		eq.Vars = expr.FreeVars(right)
		return eq, nil
	}
	eq.Kind = KindImplicit
	return eq, nil
}

// IsImplicit reports whether src classifies as an implicit relation.
func IsImplicit(src string) bool {
	eq, err := Classify(src)
	return err == nil && eq.Kind == KindImplicit
}

// Func returns the explicit evaluator. For implicit equations it returns NaN everywhere.
func (eq Equation) Func() Func {
	if eq.Kind != KindExplicit || eq.right == nil {
		return nanFunc
	}
	n := eq.right
	return func(x float64) float64 {
		return evalNode(n, expr.Env{"x": x})
	}
}

// Difference returns left(x,y) - right(x,y), whose zero set is the curve.
// For explicit equations it is y - f(x). A difference that overflows is NaN.
func (eq Equation) Difference() Func2 {
	if eq.right == nil {
		return nanFunc2
	}
	right := compileNode2(eq.right)
	if eq.Kind == KindExplicit {
		return func(x, y float64) float64 {
			return finite(y - right(x, y))
		}
	}
	left := compileNode2(eq.left)
	return func(x, y float64) float64 {
		return finite(left(x, y) - right(x, y))
	}
}

// CompileImplicit compiles both sides of src independently and composes
// left - right. Inputs that do not classify yield NaN everywhere.
func CompileImplicit(src string) Func2 {
	eq, err := Classify(src)
	if err != nil {
		return nanFunc2
	}
	return eq.Difference()
}

func checkVars(vars []string, allowed ...string) error {
	for _, v := range vars {
		if !slices.Contains(allowed, v) {
			return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedVariable, v, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func mergeVars(a, b []string) []string {
	out := append([]string{}, a...)
	for _, v := range b {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
