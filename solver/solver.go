// Package solver provides local search collaborators for the bojax
// optimizers. Every constructor returns a bojax.Solver that refines each
// restart independently; restarts run concurrently on a bounded goroutine
// pool and results keep the order of the restarts.
package solver

import (
	"fmt"
	"math"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/mat"

	"github.com/Lando-L/bojax"
)

// Option configures a solver.
type Option func(*options)

type options struct {
	concurrency int
	iterations  int
	evaluations int
	population  int
	radius      float64
}

// WithConcurrency sets how many restarts are refined at the same time.
// Defaults to GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithIterations sets the iteration budget of one local search.
func WithIterations(n int) Option {
	return func(o *options) {
		o.iterations = n
	}
}

// WithEvaluations sets the acquisition evaluation budget of one Nelder-Mead
// search.
func WithEvaluations(n int) Option {
	return func(o *options) {
		o.evaluations = n
	}
}

// WithPopulation sets the mayfly population size.
func WithPopulation(n int) Option {
	return func(o *options) {
		o.population = n
	}
}

// WithRadius sets the half width of the mayfly search box around a restart,
// as a fraction of each dimension's range.
func WithRadius(r float64) Option {
	return func(o *options) {
		o.radius = r
	}
}

func newOptions(defaults options, opts []Option) options {
	o := defaults
	o.concurrency = runtime.GOMAXPROCS(0)

	for _, opt := range opts {
		opt(&o)
	}

	if o.concurrency < 1 {
		o.concurrency = 1
	}

	return o
}

// refineFunc refines one restart.
type refineFunc func(acq bojax.Acquisition, bounds bojax.Bounds, start *mat.Dense) bojax.Solution

// run validates the restarts and refines each of them on a goroutine pool.
func run(acq bojax.Acquisition, bounds bojax.Bounds, initial []*mat.Dense, concurrency int, refine refineFunc) ([]bojax.Solution, error) {
	if err := check(bounds, initial); err != nil {
		return nil, err
	}

	solutions := make([]bojax.Solution, len(initial))

	p := pool.New().WithMaxGoroutines(concurrency)
	for i, start := range initial {
		p.Go(func() {
			solutions[i] = refine(acq, bounds, start)
		})
	}
	p.Wait()

	return solutions, nil
}

func check(bounds bojax.Bounds, initial []*mat.Dense) error {
	if err := bounds.Validate(); err != nil {
		return err
	}

	if len(initial) == 0 {
		return fmt.Errorf("%w: no initial candidates", bojax.ErrInvalidArgument)
	}

	if initial[0] == nil {
		return fmt.Errorf("%w: initial candidate 0 is nil", bojax.ErrShape)
	}

	q, _ := initial[0].Dims()
	for i, x := range initial {
		if x == nil {
			return fmt.Errorf("%w: initial candidate %d is nil", bojax.ErrShape, i)
		}

		if r, c := x.Dims(); r != q || c != bounds.Dim() {
			return fmt.Errorf("%w: initial candidate %d has shape (%d, %d), want (%d, %d)",
				bojax.ErrShape, i, r, c, q, bounds.Dim())
		}
	}

	return nil
}

// score evaluates the acquisition on a single candidate set.
func score(acq bojax.Acquisition, x *mat.Dense) float64 {
	return acq([]*mat.Dense{x})[0]
}

// loss turns an acquisition score into a finite minimization objective.
func loss(s float64) float64 {
	if math.IsInf(s, -1) {
		return math.MaxFloat64
	}

	return -s
}

// keepBetter returns the refined candidate unless it scores below the start.
func keepBetter(start *mat.Dense, startScore float64, refined *mat.Dense, refinedScore float64) bojax.Solution {
	if math.IsNaN(refinedScore) {
		return bojax.Solution{
			Candidate: mat.DenseCopyOf(start),
			Score:     startScore,
			Err:       fmt.Errorf("%w: refined candidate scored NaN", bojax.ErrNotConverged),
		}
	}

	if refinedScore < startScore {
		return bojax.Solution{Candidate: mat.DenseCopyOf(start), Score: startScore}
	}

	return bojax.Solution{Candidate: refined, Score: refinedScore}
}
