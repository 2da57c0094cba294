package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/Lando-L/bojax"
)

// Identity returns a solver that does not search at all: every restart is
// returned unchanged together with its acquisition score. It is useful to
// turn an optimizer into a pure sample-and-select procedure.
func Identity() bojax.Solver {
	return func(acq bojax.Acquisition, bounds bojax.Bounds, initial []*mat.Dense) ([]bojax.Solution, error) {
		if err := check(bounds, initial); err != nil {
			return nil, err
		}

		scores := acq(initial)
		if len(scores) != len(initial) {
			return nil, fmt.Errorf("%w: acquisition returned %d scores for %d candidates", bojax.ErrShape, len(scores), len(initial))
		}

		solutions := make([]bojax.Solution, len(initial))
		for i, x := range initial {
			solutions[i] = bojax.Solution{Candidate: mat.DenseCopyOf(x), Score: scores[i]}
		}

		return solutions, nil
	}
}
