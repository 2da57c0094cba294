package bojax

import (
	"fmt"
	"math"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Const, vars, types.
//////

const (
	// parallelThreshold is the batch size from which acquisitions fan out
	// over a goroutine pool. Smaller batches are evaluated inline.
	parallelThreshold = 256

	// erfcxSwitch is the argument above which erfcx switches from
	// exp(x^2)*erfc(x) to its continued fraction.
	erfcxSwitch = 8.0

	// erfcxTerms is the depth of the erfcx continued fraction.
	erfcxTerms = 64
)

var (
	logSqrtPiDiv2 = 0.5 * math.Log(math.Pi/2)
	invSqrtPi     = 1 / math.Sqrt(math.Pi)
)

//////
// Helper functions.
//////

// normalCDF returns the standard normal cumulative distribution function.
// It is written in terms of erfc so that the lower tail keeps full relative
// precision.
func normalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normalLogPDF returns the logarithm of the standard normal density.
func normalLogPDF(x float64) float64 {
	return distuv.UnitNormal.LogProb(x)
}

// logNormalCDF returns log(Φ(x)) without underflow in the lower tail and
// without cancellation in the upper tail.
//
// Returns:
// - 0 for x = +Inf
// - -Inf for x = -Inf
func logNormalCDF(x float64) float64 {
	switch {
	case x < -5:
		// Φ(x) = erfcx(-x/√2) * exp(-x²/2) / 2
		return math.Log(erfcx(-x/math.Sqrt2)/2) - x*x/2
	case x > 5:
		return math.Log1p(-0.5 * math.Erfc(x/math.Sqrt2))
	default:
		return math.Log(normalCDF(x))
	}
}

// erfcx returns the scaled complementary error function exp(x²)·erfc(x).
//
// For moderate arguments the product is exact to working precision. For large
// arguments exp(x²) overflows, so the Laplace continued fraction
//
//	erfc(x) = exp(-x²)/√π · 1/(x + (1/2)/(x + 1/(x + (3/2)/(x + ...))))
//
// is evaluated bottom-up instead.
func erfcx(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x < 0:
		if x < -26 {
			return math.Inf(1)
		}

		return 2*math.Exp(x*x) - erfcx(-x)
	case x < erfcxSwitch:
		return math.Exp(x*x) * math.Erfc(x)
	case math.IsInf(x, 1):
		return 0
	}

	f := x
	for n := erfcxTerms; n >= 1; n-- {
		f = x + float64(n)/2/f
	}

	return invSqrtPi / f
}

// log1mexp returns log(1 - exp(-x)) for x > 0. The split at log(2) picks
// whichever of log(-expm1(-x)) and log1p(-exp(-x)) is free of cancellation.
func log1mexp(x float64) float64 {
	if x <= math.Ln2 {
		return math.Log(-math.Expm1(-x))
	}

	return math.Log1p(-math.Exp(-x))
}

// clip restricts v to [lo, hi].
func clip[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// argmax returns the index of the largest value among the indices for which
// keep returns true, or -1 when none is kept. Ties resolve to the lowest
// index.
func argmax[T constraints.Ordered](values []T, keep func(i int) bool) int {
	best := -1
	for i, v := range values {
		if !keep(i) {
			continue
		}

		if best < 0 || v > values[best] {
			best = i
		}
	}

	return best
}

// posterior evaluates process on one candidate set and returns the mean and
// standard deviation of every point. Negative variances produced by round-off
// are treated as zero.
//
// Important notes:
// - Panics if the process output does not match the candidate set shape
func posterior(process Process, candidates *mat.Dense) (loc, scale []float64) {
	q, _ := candidates.Dims()

	mean, cov := process(candidates)
	if mean == nil || cov == nil {
		panic("bojax: process returned nil belief")
	}

	if mean.Len() != q || cov.SymmetricDim() != q {
		panic(fmt.Sprintf("bojax: process returned mean of length %d and covariance of size %d for %d candidates",
			mean.Len(), cov.SymmetricDim(), q))
	}

	loc = make([]float64, q)
	scale = make([]float64, q)

	for i := 0; i < q; i++ {
		loc[i] = mean.AtVec(i)
		scale[i] = math.Sqrt(math.Max(cov.At(i, i), 0))
	}

	return loc, scale
}

// mapBatch applies fn to every candidate set. Large batches are spread over
// a bounded goroutine pool; every result is written to its own index, so the
// output does not depend on scheduling.
func mapBatch(candidates []*mat.Dense, fn func(*mat.Dense) float64) []float64 {
	scores := make([]float64, len(candidates))

	if len(candidates) < parallelThreshold {
		for i, c := range candidates {
			scores[i] = fn(c)
		}

		return scores
	}

	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i, c := range candidates {
		p.Go(func() {
			scores[i] = fn(c)
		})
	}
	p.Wait()

	return scores
}

// checkCandidates verifies that every candidate set has shape (q, d).
func checkCandidates(candidates []*mat.Dense, q, d int) error {
	for i, c := range candidates {
		if c == nil {
			return fmt.Errorf("%w: candidate %d is nil", ErrShape, i)
		}

		if r, k := c.Dims(); r != q || k != d {
			return fmt.Errorf("%w: candidate %d has shape (%d, %d), want (%d, %d)", ErrShape, i, r, k, q, d)
		}
	}

	return nil
}

// checkScores verifies that there is one non-NaN score per candidate.
func checkScores(scores []float64, n int) error {
	if len(scores) != n {
		return fmt.Errorf("%w: got %d scores for %d candidates", ErrShape, len(scores), n)
	}

	for i, s := range scores {
		if math.IsNaN(s) {
			return fmt.Errorf("%w: score %d", ErrNaNScore, i)
		}
	}

	return nil
}
