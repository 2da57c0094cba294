package bojax

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Range defines the feasible interval of one search dimension.
//
// Fields:
// - Low: The minimum (inclusive) value of the dimension
// - High: The maximum (inclusive) value of the dimension
//
// Validation:
// - Low must be less than or equal to High
// - Both values must be finite
type Range struct {
	// Low is the inclusive lower edge of the interval.
	Low float64 `yaml:"low"`

	// High is the inclusive upper edge of the interval.
	High float64 `yaml:"high"`
}

// Bounds is the feasible hyper-rectangle of the search space, one Range per
// dimension. The number of ranges is the dimension d of every candidate.
//
// Usage:
//
//	bounds := Bounds{
//	    {Low: -1, High: 1},  // x
//	    {Low: 0, High: 10},  // y
//	}
type Bounds []Range

// Dim returns the dimension d of the search space.
func (b Bounds) Dim() int {
	return len(b)
}

// Validate reports whether the bounds describe a non-empty, finite box.
func (b Bounds) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("%w: bounds must have at least one dimension", ErrShape)
	}

	for i, r := range b {
		if math.IsNaN(r.Low) || math.IsNaN(r.High) || math.IsInf(r.Low, 0) || math.IsInf(r.High, 0) {
			return fmt.Errorf("%w: bounds[%d] = [%v, %v] is not finite", ErrInvalidArgument, i, r.Low, r.High)
		}

		if r.Low > r.High {
			return fmt.Errorf("%w: bounds[%d] low %v exceeds high %v", ErrInvalidArgument, i, r.Low, r.High)
		}
	}

	return nil
}

// Clip projects every row of x onto the bounds in place. x must have d
// columns.
func (b Bounds) Clip(x *mat.Dense) {
	rows, cols := x.Dims()
	if cols != len(b) {
		panic(mat.ErrShape)
	}

	for i := 0; i < rows; i++ {
		for j, r := range b {
			x.Set(i, j, clip(x.At(i, j), r.Low, r.High))
		}
	}
}

// Contains reports whether every row of x lies inside the bounds.
func (b Bounds) Contains(x *mat.Dense) bool {
	rows, cols := x.Dims()
	if cols != len(b) {
		return false
	}

	for i := 0; i < rows; i++ {
		for j, r := range b {
			if v := x.At(i, j); v < r.Low || v > r.High {
				return false
			}
		}
	}

	return true
}

// Process is the posterior belief over the unknown objective. Given a
// candidate set of shape (q, d) it returns the mean vector of length q and the
// (q, q) covariance of a multivariate normal belief at those points.
//
// Implementation notes for custom processes:
// - Must be safe for concurrent use, acquisitions evaluate batches in parallel
// - Must be deterministic for a fixed internal state
// - Must return exactly q means and a q by q covariance
type Process func(candidates *mat.Dense) (loc *mat.VecDense, cov *mat.SymDense)

// Acquisition maps a batch of candidate sets, each of shape (q, d), to one
// utility score per set. Higher scores indicate more promising candidates.
//
// Built-in acquisition functions:
// - LogProbabilityOfImprovement
// - LogExpectedImprovement
// - UpperConfidenceBound
//
// An Acquisition is pure: it never mutates its input and may be called from
// multiple goroutines. It panics when the underlying Process returns a result
// whose shape does not match the candidate set.
type Acquisition func(candidates []*mat.Dense) []float64

// Initializer selects num restarts starting points for local search out of a
// scored pool of candidate sets. Rows are drawn with replacement and returned
// as copies, so the caller may modify them freely.
//
// Parameters:
// - key: Random key every draw is derived from
// - pool: Candidate sets of shape (q, d)
// - scores: Acquisition score of each pool row, len(scores) == len(pool)
// - numRestarts: Number of starting points to return (>= 1)
type Initializer func(key Key, pool []*mat.Dense, scores []float64, numRestarts int) ([]*mat.Dense, error)

// Solution is the outcome of one local search started from one restart.
type Solution struct {
	// Candidate is the refined candidate set, shape (q, d).
	Candidate *mat.Dense

	// Score is the acquisition value of Candidate.
	Score float64

	// Err is non-nil when the local search failed to converge. Failed
	// solutions are discarded by the optimizers.
	Err error
}

// Solver refines every initial candidate set into a local optimum of the
// acquisition. It returns exactly one Solution per initial candidate, in the
// same order. A non-nil error signals a structural failure of the whole call;
// per-restart failures are reported through Solution.Err.
type Solver func(acq Acquisition, bounds Bounds, initial []*mat.Dense) ([]Solution, error)

// Sampler draws n candidate sets of shape (q, d) inside bounds.
type Sampler func(key Key, bounds Bounds, q, n int) ([]*mat.Dense, error)

// Optimizer proposes the next candidate set by maximizing an acquisition.
//
// Parameters:
// - key: Random key for sampling and initialization
// - acq: Acquisition to maximize
// - bounds: Feasible box, defines d
// - q: Number of points to propose jointly
// - numSamples: Size of the raw candidate pool
// - numRestarts: Number of local searches
type Optimizer func(key Key, acq Acquisition, bounds Bounds, q, numSamples, numRestarts int) (Result, error)

// Result is the best candidate set found by an Optimizer.
type Result struct {
	// Candidate is the proposed candidate set, shape (q, d).
	Candidate *mat.Dense

	// Score is the acquisition value of Candidate. It is set by the batch
	// optimizer, which reports a single scalar score.
	Score float64

	// Scores holds one acquisition value per proposed point. It is set by the
	// sequential optimizer, which chooses the q points one at a time.
	Scores []float64
}

// ScoreShape returns the shape of the score reported by the optimizer that
// produced r: an empty shape for a scalar score and (q) for per-point scores.
func (r Result) ScoreShape() []int {
	if r.Scores == nil {
		return []int{}
	}

	return []int{len(r.Scores)}
}
