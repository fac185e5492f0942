// Package calculator implements the calculator demo on top of govaluate.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/Knetic/govaluate"

	"github.com/dohr-michael/mathfarm/internal/rewrite"
)

var ErrInvalidExpression = errors.New("invalid expression")

// AngleUnit selects how trigonometric functions read and return angles.
type AngleUnit string

const (
	Radians AngleUnit = "rad"
	Degrees AngleUnit = "deg"
)

// ParseAngleUnit accepts rad/radians and deg/degrees. Empty means radians.
func ParseAngleUnit(s string) (AngleUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rad", "radian", "radians":
		return Radians, nil
	case "deg", "degree", "degrees":
		return Degrees, nil
	}
	return "", fmt.Errorf("unknown angle unit %q", s)
}

// powerOp is govaluate's exponent operator; its ^ is bitwise xor.
const powerOp = "**"

// Result is one evaluated expression.
type Result struct {
	Expression string    `json:"expression"`
	Normalized string    `json:"normalized"`
	Value      float64   `json:"value"`
	Unit       AngleUnit `json:"unit"`
}

// Calculator evaluates full expressions. It is safe for concurrent use.
type Calculator struct {
	unit    AngleUnit
	funcs   map[string]govaluate.ExpressionFunction
	history *History
}

// New creates a calculator using unit for trigonometry and keeping the last
// historySize results.
func New(unit AngleUnit, historySize int) *Calculator {
	if unit == "" {
		unit = Radians
	}
	return &Calculator{
		unit:    unit,
		funcs:   functions(unit),
		history: NewHistory(historySize),
	}
}

// Unit returns the configured angle unit.
func (c *Calculator) Unit() AngleUnit { return c.unit }

// WithUnit returns a calculator using unit that shares c's history.
func (c *Calculator) WithUnit(unit AngleUnit) *Calculator {
	if unit == "" || unit == c.unit {
		return c
	}
	return &Calculator{unit: unit, funcs: functions(unit), history: c.history}
}

// History returns the calculator history.
func (c *Calculator) History() *History { return c.history }

// Evaluate normalizes and evaluates expression.
func (c *Calculator) Evaluate(expression string) (Result, error) {
	res := Result{Expression: expression, Unit: c.unit}
	if strings.TrimSpace(expression) == "" {
		return res, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	res.Normalized = rewrite.Pipeline(powerOp).Apply(expression)

	ev, err := govaluate.NewEvaluableExpressionWithFunctions(res.Normalized, c.funcs)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}
	if vars := ev.Vars(); len(vars) > 0 {
		return res, fmt.Errorf("%w: unknown name %q", ErrInvalidExpression, vars[0])
	}
	out, err := ev.Evaluate(nil)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}
	v, ok := out.(float64)
	if !ok {
		return res, fmt.Errorf("%w: result is not a number", ErrInvalidExpression)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return res, fmt.Errorf("%w: result is undefined", ErrInvalidExpression)
	}
	res.Value = v
	c.history.Add(res)
	return res, nil
}

// Display returns the text the calculator shows for expression: the value,
// or an inline "Error: ..." message.
func (c *Calculator) Display(expression string) string {
	res, err := c.Evaluate(expression)
	if err != nil {
		return ErrorText(err)
	}
	return FormatValue(res.Value)
}

// ErrorText is the inline message shown for a failed evaluation.
func ErrorText(err error) string {
	return "Error: " + strings.TrimPrefix(err.Error(), ErrInvalidExpression.Error()+": ")
}

// FormatValue prints v with at most 12 significant digits, trimming noise such
// as 0.30000000000000004.
func FormatValue(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}

func functions(unit AngleUnit) map[string]govaluate.ExpressionFunction {
	toRad := func(x float64) float64 { return x }
	fromRad := func(x float64) float64 { return x }
	if unit == Degrees {
		toRad = func(x float64) float64 { return x * math.Pi / 180 }
		fromRad = func(x float64) float64 { return x * 180 / math.Pi }
	}

	unary := func(name string, fn func(float64) float64) govaluate.ExpressionFunction {
		return func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
			}
			x, ok := args[0].(float64)
			if !ok {
				return nil, fmt.Errorf("%s expects a number", name)
			}
			return fn(x), nil
		}
	}

	return map[string]govaluate.ExpressionFunction{
		"sin":   unary("sin", func(x float64) float64 { return math.Sin(toRad(x)) }),
		"cos":   unary("cos", func(x float64) float64 { return math.Cos(toRad(x)) }),
		"tan":   unary("tan", func(x float64) float64 { return math.Tan(toRad(x)) }),
		"asin":  unary("asin", func(x float64) float64 { return fromRad(math.Asin(x)) }),
		"acos":  unary("acos", func(x float64) float64 { return fromRad(math.Acos(x)) }),
		"atan":  unary("atan", func(x float64) float64 { return fromRad(math.Atan(x)) }),
		"ln":    unary("ln", math.Log),
		"log10": unary("log", math.Log10),
		"sqrt":  unary("sqrt", math.Sqrt),
		"abs":   unary("abs", math.Abs),
		"exp":   unary("exp", math.Exp),
	}
}

// History keeps the most recent results, oldest first.
type History struct {
	mu    sync.Mutex
	items []Result
	size  int
}

// NewHistory creates a history holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 10
	}
	return &History{size: size}
}

// Add appends r, dropping the oldest entry when full.
func (h *History) Add(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, r)
	if len(h.items) > h.size {
		h.items = h.items[len(h.items)-h.size:]
	}
}

// Items returns a copy of the history.
func (h *History) Items() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Result, len(h.items))
	copy(out, h.items)
	return out
}

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}
