package content

import (
	"math"

	"github.com/dohr-michael/mathfarm/internal/graph"
)

// DefaultTolerance is the relative tolerance used when a problem sets none.
const DefaultTolerance = 1e-9

// checkPoints are the x values at which answers in x are compared.
var checkPoints = []float64{-3, -1.5, -0.5, 0.25, 1, 2.5}

// Verdict is the outcome of checking a submitted answer.
type Verdict struct {
	ProblemID string `json:"problem_id"`
	Correct   bool   `json:"correct"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
}

// Check compares a submission against the reference answer of p.
// Both are compiled as functions of x and compared at fixed sample points;
// constant answers compare at every point trivially. A malformed submission
// is an incorrect verdict, not an error.
func Check(p Problem, submitted string) (Verdict, error) {
	v := Verdict{ProblemID: p.ID}

	want, err := reference(p)
	if err != nil {
		return v, err
	}

	eq, err := graph.Classify(submitted)
	if err != nil {
		v.Message = "Could not read the answer: " + err.Error()
		v.Hint = p.Hint
		return v, nil
	}
	if eq.Kind != graph.KindExplicit {
		v.Message = "Enter a single expression, not an equation."
		v.Hint = p.Hint
		return v, nil
	}
	got := eq.Func()

	tol := p.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	compared := 0
	for _, x := range checkPoints {
		w := want(x)
		if math.IsNaN(w) {
			continue
		}
		compared++
		if !within(w, got(x), tol) {
			v.Message = "Not quite."
			v.Hint = p.Hint
			return v, nil
		}
	}
	if compared == 0 {
		v.Message = "This problem has no answer that can be checked."
		return v, nil
	}

	v.Correct = true
	v.Message = "Correct!"
	return v, nil
}

func within(a, b, tol float64) bool {
	if math.IsNaN(b) {
		return false
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}
