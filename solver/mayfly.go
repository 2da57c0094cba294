package solver

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
	"gonum.org/v1/gonum/mat"

	"github.com/Lando-L/bojax"
)

// Mayfly returns a solver that refines every restart with the mayfly
// metaheuristic, searching a box around the restart.
//
// How it works:
// - The box spans radius * (High - Low) on each side of the restart,
// intersected with the bounds
// - The box is mapped onto the unit cube, since mayfly takes one scalar
// lower and upper bound for all dimensions
// - The random seed is derived from the restart's coordinates, so equal
// restarts are refined identically
//
// Options:
// - WithIterations: mayfly iterations per restart (default 50)
// - WithPopulation: population size (default 20)
// - WithRadius: relative box half width (default 0.1)
// - WithConcurrency: restarts refined at the same time
func Mayfly(opts ...Option) bojax.Solver {
	o := newOptions(options{iterations: 50, population: 20, radius: 0.1}, opts)

	refine := func(acq bojax.Acquisition, bounds bojax.Bounds, start *mat.Dense) bojax.Solution {
		q, d := start.Dims()
		startScore := score(acq, start)
		lower, upper := box(bounds, start, o.radius)

		toCandidate := func(u []float64) *mat.Dense {
			v := make([]float64, len(u))
			for i := range u {
				t := math.Min(math.Max(u[i], 0), 1)
				v[i] = lower[i] + t*(upper[i]-lower[i])
			}

			return project(bounds, q, d, v)
		}

		config := mayfly.NewDefaultConfig()
		config.ObjectiveFunc = func(u []float64) float64 {
			return loss(score(acq, toCandidate(u)))
		}
		config.ProblemSize = q * d
		config.MaxIterations = o.iterations
		config.NPop = o.population
		config.LowerBound = 0
		config.UpperBound = 1
		config.Rand = rand.New(rand.NewSource(seedOf(start)))

		result, err := mayfly.Optimize(config)
		if err != nil {
			return bojax.Solution{
				Candidate: mat.DenseCopyOf(start),
				Score:     startScore,
				Err:       fmt.Errorf("%w: %v", bojax.ErrNotConverged, err),
			}
		}

		refined := toCandidate(result.GlobalBest.Position)

		return keepBetter(start, startScore, refined, score(acq, refined))
	}

	return func(acq bojax.Acquisition, bounds bojax.Bounds, initial []*mat.Dense) ([]bojax.Solution, error) {
		return run(acq, bounds, initial, o.concurrency, refine)
	}
}

// box returns the flattened lower and upper corners of the search box around
// start.
func box(bounds bojax.Bounds, start *mat.Dense, radius float64) (lower, upper []float64) {
	q, d := start.Dims()

	lower = make([]float64, q*d)
	upper = make([]float64, q*d)

	for i := 0; i < q; i++ {
		for j, r := range bounds {
			half := radius * (r.High - r.Low)
			x := start.At(i, j)

			lower[i*d+j] = math.Max(r.Low, x-half)
			upper[i*d+j] = math.Min(r.High, x+half)
		}
	}

	return lower, upper
}

// seedOf hashes the coordinates of x into a seed.
func seedOf(x *mat.Dense) int64 {
	h := fnv.New64a()
	q, d := x.Dims()

	var buf [8]byte
	for i := 0; i < q; i++ {
		for j := 0; j < d; j++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x.At(i, j)))
			h.Write(buf[:])
		}
	}

	return int64(h.Sum64() >> 1)
}
