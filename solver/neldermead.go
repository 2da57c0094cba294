package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/Lando-L/bojax"
)

// simplexFraction is the initial simplex size relative to the mean width of
// the bounds.
const simplexFraction = 0.05

// NelderMead returns a solver that refines every restart with the gonum
// Nelder-Mead simplex method. The (q, d) candidate set is flattened into one
// vector; points leaving the bounds are projected back before the
// acquisition is evaluated.
//
// Options:
// - WithIterations: major iteration budget per restart (default 200)
// - WithEvaluations: acquisition evaluations per restart (default 1000)
// - WithConcurrency: restarts refined at the same time
//
// A restart whose search returns an error is reported with
// bojax.ErrNotConverged. A refined candidate never scores below its start.
func NelderMead(opts ...Option) bojax.Solver {
	o := newOptions(options{iterations: 200, evaluations: 1000}, opts)

	refine := func(acq bojax.Acquisition, bounds bojax.Bounds, start *mat.Dense) bojax.Solution {
		q, d := start.Dims()
		startScore := score(acq, start)

		problem := optimize.Problem{
			Func: func(v []float64) float64 {
				return loss(score(acq, project(bounds, q, d, v)))
			},
		}

		settings := &optimize.Settings{
			MajorIterations: o.iterations,
			FuncEvaluations: o.evaluations,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Iterations: 20,
			},
		}

		method := &optimize.NelderMead{
			SimplexSize: simplexFraction * meanWidth(bounds),
		}

		result, err := optimize.Minimize(problem, mat.DenseCopyOf(start).RawMatrix().Data, settings, method)
		if err != nil {
			return bojax.Solution{
				Candidate: mat.DenseCopyOf(start),
				Score:     startScore,
				Err:       fmt.Errorf("%w: %v", bojax.ErrNotConverged, err),
			}
		}

		refined := project(bounds, q, d, result.X)

		return keepBetter(start, startScore, refined, score(acq, refined))
	}

	return func(acq bojax.Acquisition, bounds bojax.Bounds, initial []*mat.Dense) ([]bojax.Solution, error) {
		return run(acq, bounds, initial, o.concurrency, refine)
	}
}

// project copies v into a (q, d) candidate set clipped to bounds.
func project(bounds bojax.Bounds, q, d int, v []float64) *mat.Dense {
	x := mat.NewDense(q, d, append([]float64(nil), v...))
	bounds.Clip(x)

	return x
}

func meanWidth(bounds bojax.Bounds) float64 {
	var sum float64
	for _, r := range bounds {
		sum += r.High - r.Low
	}

	if sum == 0 {
		return 1
	}

	return sum / float64(len(bounds))
}
