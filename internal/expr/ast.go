package expr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Env binds variable names to values for one evaluation.
type Env map[string]float64

// Node is a parsed expression.
type Node interface {
	Eval(env Env) (float64, error)
	String() string
	// Vars adds the free variables of the node to set.
	Vars(set map[string]struct{})
}

// Number is a numeric literal.
type Number struct{ Value float64 }

func (n Number) Eval(Env) (float64, error) { return n.Value, nil }
func (n Number) String() string            { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n Number) Vars(map[string]struct{})  {}

// Const is a named constant such as pi.
type Const struct {
	Name  string
	Value float64
}

func (c Const) Eval(Env) (float64, error) { return c.Value, nil }
func (c Const) String() string            { return c.Name }
func (c Const) Vars(map[string]struct{})  {}

// Var is a free variable resolved from the Env.
type Var struct{ Name string }

func (v Var) Eval(env Env) (float64, error) {
	x, ok := env[v.Name]
	if !ok {
		return math.NaN(), fmt.Errorf("%w: %s", ErrUnknownVariable, v.Name)
	}
	return x, nil
}

func (v Var) String() string               { return v.Name }
func (v Var) Vars(set map[string]struct{}) { set[v.Name] = struct{}{} }

// Neg is unary minus.
type Neg struct{ X Node }

func (n Neg) Eval(env Env) (float64, error) {
	x, err := n.X.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	return -x, nil
}

func (n Neg) String() string               { return "(-" + n.X.String() + ")" }
func (n Neg) Vars(set map[string]struct{}) { n.X.Vars(set) }

// Binary is an infix operation. Op is one of + - * / ^.
type Binary struct {
	Op          byte
	Left, Right Node
}

func (b Binary) Eval(env Env) (float64, error) {
	l, err := b.Left.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	r, err := b.Right.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	switch b.Op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		return l / r, nil
	case '^':
		return math.Pow(l, r), nil
	}
	return math.NaN(), fmt.Errorf("unknown operator %q", b.Op)
}

func (b Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

func (b Binary) Vars(set map[string]struct{}) {
	b.Left.Vars(set)
	b.Right.Vars(set)
}

// Call applies a builtin function to a single argument.
type Call struct {
	Name string
	Arg  Node
	fn   func(float64) float64
}

func (c Call) Eval(env Env) (float64, error) {
	x, err := c.Arg.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	fn := c.fn
	if fn == nil {
		var ok bool
		if fn, ok = lookupFunc(c.Name); !ok {
			return math.NaN(), fmt.Errorf("%w: %s", ErrUnknownFunction, c.Name)
		}
	}
	return fn(x), nil
}

func (c Call) String() string               { return c.Name + "(" + c.Arg.String() + ")" }
func (c Call) Vars(set map[string]struct{}) { c.Arg.Vars(set) }

// FreeVars returns the sorted names of the free variables in n.
func FreeVars(n Node) []string {
	set := make(map[string]struct{})
	n.Vars(set)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
