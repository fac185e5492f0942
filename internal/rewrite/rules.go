// Package rewrite normalizes hand-typed math notation into the syntax the
// evaluators accept. Each rule is a pure string substitution; rules are applied
// in a fixed order because later rules depend on the output of earlier ones.
package rewrite

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rule is a single named substitution.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Rules is an ordered rule list.
type Rules []Rule

// Apply runs every rule in order.
func (rs Rules) Apply(s string) string {
	for _, r := range rs {
		s = r.Apply(s)
	}
	return s
}

// Names returns the rule names in application order.
func (rs Rules) Names() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

// GraphPower is the power operator of the graph evaluator.
const GraphPower = "^"

var (
	numThenWordRe  = regexp.MustCompile(`(^|[^a-z0-9_.])([0-9.]+)([a-z(√π])`)
	closeThenRe    = regexp.MustCompile(`\)([a-z0-9(√π.])`)
	doubleStarRe   = regexp.MustCompile(`\*\*`)
	funcCallRe     = regexp.MustCompile(`([a-z]+|√)\s*\(`)
	piRe           = regexp.MustCompile(`\bpi\b|π`)
	bareERe        = regexp.MustCompile(`\be\b`)
	identRe        = regexp.MustCompile(`[a-z_][a-z0-9_]*`)
	leadingIdentRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*`)
	sciLiteralRe   = regexp.MustCompile(`(^|[^a-z0-9_.])([0-9]+(?:\.[0-9]*)?|\.[0-9]+)e([0-9]+)`)
)

// Lowercase trims and lower-cases the input.
var Lowercase = Rule{
	Name: "lowercase",
	Apply: func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	},
}

// ScientificLiterals expands literals with an unsigned exponent into plain
// decimals: 1e5 → 100000, 2.5e3 → 2500. A signed exponent is not a literal:
// 2e-1 is left for ImplicitMultiplication and reads as 2*e-1.
var ScientificLiterals = Rule{
	Name: "scientific-literals",
	Apply: func(s string) string {
		return sciLiteralRe.ReplaceAllStringFunc(s, func(m string) string {
			g := sciLiteralRe.FindStringSubmatch(m)
			v, err := strconv.ParseFloat(g[2]+"e"+g[3], 64)
			if err != nil {
				return m
			}
			return g[1] + strconv.FormatFloat(v, 'f', -1, 64)
		})
	},
}

// ImplicitMultiplication makes juxtaposition explicit: 2x → 2*x, 3(x+1) → 3*(x+1),
// (x+1)(x-1) → (x+1)*(x-1), (x)2 → (x)*2, 2e → 2*e. Digits inside identifiers
// (log10) are kept.
var ImplicitMultiplication = Rule{
	Name: "implicit-multiplication",
	Apply: func(s string) string {
		s = replaceFixpoint(numThenWordRe, s, "$1$2*$3")
		return replaceFixpoint(closeThenRe, s, ")*$1")
	},
}

// PowerGlyph replaces the exponent glyphs ^, **, ² and ³ with op.
func PowerGlyph(op string) Rule {
	return Rule{
		Name: "power-glyph",
		Apply: func(s string) string {
			s = strings.NewReplacer("²", "^2", "³", "^3").Replace(s)
			// Normalize ** first so it cannot be split by the ^ replacement.
			s = doubleStarRe.ReplaceAllString(s, "^")
			if op == "^" {
				return s
			}
			return strings.ReplaceAll(s, "^", op)
		},
	}
}

// functionNames maps the names users type to the evaluator's builtin names.
var functionNames = map[string]string{
	"sin":    "sin",
	"cos":    "cos",
	"tan":    "tan",
	"log":    "log10",
	"ln":     "ln",
	"sqrt":   "sqrt",
	"√":      "sqrt",
	"abs":    "abs",
	"exp":    "exp",
	"arcsin": "asin",
	"arccos": "acos",
	"arctan": "atan",
	"asin":   "asin",
	"acos":   "acos",
	"atan":   "atan",
}

// FunctionNames maps user-facing function names to their canonical builtin
// names. Only names directly followed by an opening parenthesis are touched,
// except √ which also applies to a bare operand: √x → sqrt(x).
var FunctionNames = Rule{
	Name: "function-names",
	Apply: func(s string) string {
		s = funcCallRe.ReplaceAllStringFunc(s, func(m string) string {
			name := strings.TrimSpace(strings.TrimSuffix(m, "("))
			if canon, ok := functionNames[name]; ok {
				return canon + "("
			}
			return m
		})
		return wrapRoots(s)
	},
}

const rootGlyph = "√"

// wrapRoots rewrites √ followed by a number, a constant, a name, a call or
// another root into a sqrt call. A √ with no operand is left for the parser
// to reject.
func wrapRoots(s string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, rootGlyph)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		rest := strings.TrimLeft(s[i+len(rootGlyph):], " ")
		n := operandLen(rest)
		if n == 0 {
			b.WriteString(rootGlyph)
			s = s[i+len(rootGlyph):]
			continue
		}
		if prev := strings.TrimRight(b.String(), " "); prev != "" && endsOperand(prev) {
			b.WriteByte('*')
		}
		b.WriteString("sqrt(" + wrapRoots(rest[:n]) + ")")
		s = rest[n:]
	}
}

// operandLen returns the length of the operand at the start of s, 0 if none.
func operandLen(s string) int {
	switch {
	case s == "":
		return 0
	case strings.HasPrefix(s, rootGlyph):
		k := len(rootGlyph)
		k += len(s[k:]) - len(strings.TrimLeft(s[k:], " "))
		if m := operandLen(s[k:]); m > 0 {
			return k + m
		}
		return 0
	case strings.HasPrefix(s, "π"):
		return len("π")
	case s[0] == '(':
		return groupLen(s)
	case s[0] == '.' || (s[0] >= '0' && s[0] <= '9'):
		n := 0
		for n < len(s) && (s[n] == '.' || (s[n] >= '0' && s[n] <= '9')) {
			n++
		}
		return n
	}
	n := len(leadingIdentRe.FindString(s))
	if n > 0 && n < len(s) && s[n] == '(' {
		return n + groupLen(s[n:])
	}
	return n
}

// groupLen returns the length of the parenthesized group opening s, or all of
// s when it is never closed.
func groupLen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

func endsOperand(s string) bool {
	if strings.HasSuffix(s, "π") {
		return true
	}
	c := s[len(s)-1]
	return c == ')' || c == '.' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')
}

// KnownFunctions returns the user-facing names FunctionNames understands.
func KnownFunctions() []string {
	out := make([]string, 0, len(functionNames))
	for name := range functionNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Constants replaces pi and a standalone e with their decimal values. An e that
// is part of a longer word (exp, sec) or a numeric literal (1e5) is left alone.
var Constants = Rule{
	Name: "constants",
	Apply: func(s string) string {
		s = piRe.ReplaceAllString(s, formatValue(math.Pi))
		return bareERe.ReplaceAllStringFunc(s, func(string) string { return formatValue(math.E) })
	},
}

// SubstituteVars replaces each standalone variable token with its parenthesized value.
func SubstituteVars(vals map[string]float64) Rule {
	return Rule{
		Name: "substitute-vars",
		Apply: func(s string) string {
			return identRe.ReplaceAllStringFunc(s, func(tok string) string {
				if v, ok := vals[tok]; ok {
					return "(" + formatValue(v) + ")"
				}
				return tok
			})
		},
	}
}

// Pipeline returns rules 1-5 targeting the given power operator. Scientific
// literals are expanded before implicit multiplication can split them.
func Pipeline(powerOp string) Rules {
	return Rules{
		Lowercase,
		ScientificLiterals,
		ImplicitMultiplication,
		PowerGlyph(powerOp),
		FunctionNames,
		Constants,
	}
}

// Normalize runs the graph pipeline (rules 1-5).
func Normalize(s string) string {
	return Pipeline(GraphPower).Apply(s)
}

// Expand normalizes s and then substitutes the sampled variable values.
func Expand(s string, vals map[string]float64) string {
	rs := append(Pipeline(GraphPower), SubstituteVars(vals))
	return rs.Apply(s)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// replaceFixpoint applies re until the string stops changing, so overlapping
// matches such as 2x3y are all rewritten.
func replaceFixpoint(re *regexp.Regexp, s, repl string) string {
	for {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return s
		}
		s = next
	}
}
