package expr

import (
	"math"
	"sort"
)

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var funcs = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"ln":    math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"sqrt":  math.Sqrt,
	"cbrt":  math.Cbrt,
	"abs":   math.Abs,
	"exp":   math.Exp,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.Round,
	"sign":  sign,
}

func sign(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func lookupFunc(name string) (func(float64) float64, bool) {
	fn, ok := funcs[name]
	return fn, ok
}

// IsFunction reports whether name is a builtin function.
func IsFunction(name string) bool {
	_, ok := funcs[name]
	return ok
}

// IsConstant reports whether name is a named constant.
func IsConstant(name string) bool {
	_, ok := constants[name]
	return ok
}

// Functions returns the sorted builtin function names.
func Functions() []string {
	out := make([]string, 0, len(funcs))
	for name := range funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
