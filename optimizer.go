package bojax

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// Option configures the optimizers built by Batch and Sequential.
type Option func(*options)

type options struct {
	sampler Sampler
	logger  *slog.Logger
}

// WithSampler replaces the default UniformSampler used to draw the raw
// candidate pool.
func WithSampler(s Sampler) Option {
	return func(o *options) {
		o.sampler = s
	}
}

// WithLogger sets the logger round summaries are written to. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		sampler: UniformSampler(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

//////
// Exported functionalities.
//////

// Batch builds an optimizer that treats the q points as one joint (q, d)
// decision.
//
// How it works:
//  1. Samples numSamples candidate sets of shape (q, d) inside bounds
//  2. Scores them with the acquisition
//  3. Lets the initializer pick numRestarts starting sets
//  4. Refines every start with the solver
//  5. Returns the refined set with the highest score
//
// The Result carries a scalar Score; its ScoreShape is empty.
//
// Restarts whose solution reports an error are ignored. The optimizer fails
// with ErrNoFeasibleCandidate only when every restart failed.
//
// Usage example:
//
//	optimize := Batch(QBatch(1.0), solver.NelderMead())
//	result, err := optimize(NewKey(0), acq, bounds, 3, 100, 10)
func Batch(initializer Initializer, solver Solver, opts ...Option) Optimizer {
	o := newOptions(opts)

	return func(key Key, acq Acquisition, bounds Bounds, q, numSamples, numRestarts int) (Result, error) {
		if err := validateRequest(bounds, q, numSamples, numRestarts); err != nil {
			return Result{}, err
		}

		candidate, score, err := o.round(key, acq, bounds, q, numSamples, numRestarts, initializer, solver)
		if err != nil {
			return Result{}, err
		}

		return Result{Candidate: candidate, Score: score}, nil
	}
}

// Sequential builds a greedy optimizer that chooses the q points one at a
// time.
//
// How it works:
// - Step i runs the batch procedure with a single point per candidate set
// - The acquisition of step i is evaluated on the points chosen in steps
// 0..i-1 stacked on top of the new point, so it sees a set of shape (i+1, d)
// - A new point scores the gain it adds, acq(chosen + x) - acq(chosen). How
// earlier points condition that gain is up to the acquisition
// - If the chosen points alone score ±Inf the gain is undefined and the new
// point is scored on its own
//
// The built-in acquisitions sum their point scores, so the gain of a new
// point is its own score. The Result carries one score per chosen point in
// Scores; its ScoreShape is (q). Step i draws its randomness from the i-th
// child of key.
func Sequential(initializer Initializer, solver Solver, opts ...Option) Optimizer {
	o := newOptions(opts)

	return func(key Key, acq Acquisition, bounds Bounds, q, numSamples, numRestarts int) (Result, error) {
		if err := validateRequest(bounds, q, numSamples, numRestarts); err != nil {
			return Result{}, err
		}

		d := bounds.Dim()
		keys := key.Split(q)

		chosen := mat.NewDense(q, d, nil)
		scores := make([]float64, q)

		for i := 0; i < q; i++ {
			step := acq
			if i > 0 {
				var err error

				step, err = o.withFixed(acq, mat.DenseCopyOf(chosen.Slice(0, i, 0, d)))
				if err != nil {
					return Result{}, fmt.Errorf("sequential step %d of %d: %w", i+1, q, err)
				}
			}

			candidate, score, err := o.round(keys[i], step, bounds, 1, numSamples, numRestarts, initializer, solver)
			if err != nil {
				return Result{}, fmt.Errorf("sequential step %d of %d: %w", i+1, q, err)
			}

			chosen.SetRow(i, candidate.RawRowView(0))
			scores[i] = score

			o.logger.Debug("sequential step complete", "step", i+1, "of", q, "score", score)
		}

		return Result{Candidate: chosen, Scores: scores}, nil
	}
}

//////
// Helper functions.
//////

// round runs one sample, initialize, solve and select pass and returns a
// copy of the best refined candidate set.
func (o *options) round(
	key Key,
	acq Acquisition,
	bounds Bounds,
	q, numSamples, numRestarts int,
	initializer Initializer,
	solver Solver,
) (*mat.Dense, float64, error) {
	d := bounds.Dim()
	sampleKey, initKey := key.Split2()

	pool, err := o.sampler(sampleKey, bounds, q, numSamples)
	if err != nil {
		return nil, 0, fmt.Errorf("sampling candidates: %w", err)
	}

	if len(pool) != numSamples {
		return nil, 0, fmt.Errorf("%w: sampler returned %d candidates, want %d", ErrShape, len(pool), numSamples)
	}

	if err := checkCandidates(pool, q, d); err != nil {
		return nil, 0, fmt.Errorf("sampling candidates: %w", err)
	}

	scores := acq(pool)
	if err := checkScores(scores, len(pool)); err != nil {
		return nil, 0, fmt.Errorf("scoring candidates: %w", err)
	}

	restarts, err := initializer(initKey, pool, scores, numRestarts)
	if err != nil {
		return nil, 0, fmt.Errorf("initializing restarts: %w", err)
	}

	if len(restarts) != numRestarts {
		return nil, 0, fmt.Errorf("%w: initializer returned %d restarts, want %d", ErrShape, len(restarts), numRestarts)
	}

	if err := checkCandidates(restarts, q, d); err != nil {
		return nil, 0, fmt.Errorf("initializing restarts: %w", err)
	}

	solutions, err := solver(acq, bounds, restarts)
	if err != nil {
		return nil, 0, fmt.Errorf("solving restarts: %w", err)
	}

	if len(solutions) != len(restarts) {
		return nil, 0, fmt.Errorf("%w: solver returned %d solutions for %d restarts", ErrShape, len(solutions), len(restarts))
	}

	var failures []error

	values := make([]float64, len(solutions))
	for i, s := range solutions {
		values[i] = s.Score

		switch {
		case s.Err != nil:
			failures = append(failures, fmt.Errorf("restart %d: %w", i, s.Err))
		case math.IsNaN(s.Score):
			failures = append(failures, fmt.Errorf("restart %d: %w", i, ErrNaNScore))
		case s.Candidate == nil:
			return nil, 0, fmt.Errorf("%w: solver returned no candidate for restart %d", ErrShape, i)
		default:
			if r, k := s.Candidate.Dims(); r != q || k != d {
				return nil, 0, fmt.Errorf("%w: solution %d has shape (%d, %d), want (%d, %d)", ErrShape, i, r, k, q, d)
			}
		}
	}

	best := argmax(values, func(i int) bool {
		return solutions[i].Err == nil && !math.IsNaN(solutions[i].Score)
	})

	if best < 0 {
		o.logger.Warn("every restart failed", "restarts", len(solutions))

		return nil, 0, fmt.Errorf("%w: all %d restarts failed: %w", ErrNoFeasibleCandidate, len(solutions), errors.Join(failures...))
	}

	if len(failures) > 0 {
		o.logger.Warn("discarded failed restarts", "failed", len(failures), "restarts", len(solutions))
	}

	o.logger.Debug("optimization round complete",
		"q", q,
		"samples", numSamples,
		"restarts", numRestarts,
		"failed", len(failures),
		"best_score", values[best],
	)

	return mat.DenseCopyOf(solutions[best].Candidate), values[best], nil
}

// withFixed returns an acquisition scoring the gain of adding a candidate set
// to the fixed points: acq of the fixed points stacked on top of the
// candidate minus acq of the fixed points alone.
func (o *options) withFixed(acq Acquisition, fixed *mat.Dense) (Acquisition, error) {
	base := acq([]*mat.Dense{fixed})
	if err := checkScores(base, 1); err != nil {
		return nil, fmt.Errorf("scoring chosen points: %w", err)
	}

	if math.IsInf(base[0], 0) {
		o.logger.Warn("chosen points score is not finite, scoring new points alone", "score", base[0])

		return acq, nil
	}

	return func(candidates []*mat.Dense) []float64 {
		joint := make([]*mat.Dense, len(candidates))
		for i, c := range candidates {
			var j mat.Dense
			j.Stack(fixed, c)
			joint[i] = &j
		}

		scores := acq(joint)
		for i := range scores {
			scores[i] -= base[0]
		}

		return scores
	}, nil
}

func validateRequest(bounds Bounds, q, numSamples, numRestarts int) error {
	if err := bounds.Validate(); err != nil {
		return err
	}

	if q < 1 {
		return fmt.Errorf("%w: q must be at least 1, got %d", ErrInvalidArgument, q)
	}

	if numSamples < 1 {
		return fmt.Errorf("%w: numSamples must be at least 1, got %d", ErrInvalidArgument, numSamples)
	}

	if numRestarts < 1 {
		return fmt.Errorf("%w: numRestarts must be at least 1, got %d", ErrInvalidArgument, numRestarts)
	}

	return nil
}
