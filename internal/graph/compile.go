// Package graph turns user-typed expressions into numeric functions for plotting.
//
// Compiled functions never fail: any parse or evaluation problem, and any
// non-finite result, yields NaN so a single bad sample leaves a gap in the
// curve instead of aborting the render.
package graph

import (
	"fmt"
	"math"

	"github.com/dohr-michael/mathfarm/internal/expr"
	"github.com/dohr-michael/mathfarm/internal/rewrite"
)

// Func is a compiled single-variable evaluator.
type Func func(x float64) float64

// Func2 is a compiled two-variable evaluator.
type Func2 func(x, y float64) float64

// Parse runs the rewrite pipeline on src and parses the result.
func Parse(src string) (expr.Node, error) {
	normalized := rewrite.Normalize(src)
	n, err := expr.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	return n, nil
}

// Compile returns the evaluator of src in x. Parse failures yield a function
// that returns NaN for every input.
func Compile(src string) Func {
	f, err := CompileChecked(src)
	if err != nil {
		return nanFunc
	}
	return f
}

// CompileChecked is Compile but reports parse errors for inline display.
func CompileChecked(src string) (Func, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return func(x float64) float64 {
		return evalNode(n, expr.Env{"x": x})
	}, nil
}

// Compile2 returns the evaluator of src in x and y.
func Compile2(src string) Func2 {
	f, err := Compile2Checked(src)
	if err != nil {
		return nanFunc2
	}
	return f
}

// Compile2Checked is Compile2 but reports parse errors.
func Compile2Checked(src string) (Func2, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return compileNode2(n), nil
}

func compileNode2(n expr.Node) Func2 {
	return func(x, y float64) float64 {
		return evalNode(n, expr.Env{"x": x, "y": y})
	}
}

// evalNode is the NaN policy: errors, panics and non-finite values become NaN.
func evalNode(n expr.Node, env expr.Env) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			v = math.NaN()
		}
	}()
	v, err := n.Eval(env)
	if err != nil {
		return math.NaN()
	}
	return finite(v)
}

// finite maps ±Inf to NaN. NaN passes through.
func finite(v float64) float64 {
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func nanFunc(float64) float64 { return math.NaN() }

func nanFunc2(float64, float64) float64 { return math.NaN() }
