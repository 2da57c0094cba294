package bojax

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/sampleuv"
)

//////
// Const, vars, types.
//////

const (
	// DefaultAlpha is the initial relative threshold of QBatchNonnegative.
	DefaultAlpha = 1e-4

	// MaxAlphaShrinks caps how many times QBatchNonnegative divides alpha by
	// ten before it falls back to every row with a non-negative score.
	MaxAlphaShrinks = 16

	// standardizeEpsilon is added to the variance when z-scoring scores, so
	// a pool of identical scores standardizes to zeros.
	standardizeEpsilon = 1e-5
)

//////
// Exported functionalities.
//////

// QBatch builds an initializer that resamples the pool with Boltzmann
// weights on the standardized scores:
//
//	w_i = exp(eta * (s_i - mean(s)) / std(s))
//
// How it works:
// - eta = 0 samples every row uniformly
// - Larger eta concentrates the draws on high scoring rows
// - Rows scoring -Inf are never drawn; if any row scores +Inf only those
// rows are drawn
//
// Important notes:
// - Panics if eta is NaN or infinite
//
// Example:
//
//	init := QBatch(2.0)
//	restarts, err := init(key, pool, scores, 10)
func QBatch(eta float64) Initializer {
	mustBeFinite("eta", eta)

	return func(key Key, pool []*mat.Dense, scores []float64, numRestarts int) ([]*mat.Dense, error) {
		if err := checkInitializerArgs(pool, scores, numRestarts); err != nil {
			return nil, err
		}

		return choice(key, pool, standardizedWeights(eta, scores), numRestarts)
	}
}

// QBatchNonnegative builds an initializer for acquisitions whose values are
// non-negative, such as expected improvement.
//
// How it works:
//  1. Keeps the rows with score >= alpha * max(scores)
//  2. While fewer than numRestarts rows are kept, divides alpha by ten and
//     filters again, at most MaxAlphaShrinks times
//  3. If the cap is reached, keeps every row with a non-negative score
//  4. Draws numRestarts rows from the kept ones with weights
//     exp(eta * (s_i / max(scores) - 1))
//
// Returns ErrInsufficientCandidates when fewer than numRestarts rows have a
// non-negative score, since no threshold can ever keep enough rows.
//
// Important notes:
// - Panics if eta is not finite or alpha is not positive
func QBatchNonnegative(eta, alpha float64) Initializer {
	mustBeFinite("eta", eta)

	if !(alpha > 0) || math.IsInf(alpha, 1) {
		panic(fmt.Sprintf("bojax: alpha must be positive and finite, got %v", alpha))
	}

	return func(key Key, pool []*mat.Dense, scores []float64, numRestarts int) ([]*mat.Dense, error) {
		if err := checkInitializerArgs(pool, scores, numRestarts); err != nil {
			return nil, err
		}

		kept, _, err := nonnegativeFilter(scores, alpha, numRestarts)
		if err != nil {
			return nil, err
		}

		rows := make([]*mat.Dense, len(kept))
		keptScores := make([]float64, len(kept))

		for i, idx := range kept {
			rows[i] = pool[idx]
			keptScores[i] = scores[idx]
		}

		return choice(key, rows, relativeWeights(eta, keptScores, floats.Max(scores)), numRestarts)
	}
}

//////
// Helper functions.
//////

// nonnegativeFilter returns the indices of the rows kept by the shrinking
// alpha filter and the threshold they satisfy. alpha strictly decreases on
// every iteration and the loop runs at most MaxAlphaShrinks times.
func nonnegativeFilter(scores []float64, alpha float64, numRestarts int) (kept []int, threshold float64, err error) {
	nonnegative := 0
	for _, s := range scores {
		if s >= 0 {
			nonnegative++
		}
	}

	if nonnegative < numRestarts {
		return nil, 0, fmt.Errorf("%w: %d of %d rows are non-negative, %d restarts requested",
			ErrInsufficientCandidates, nonnegative, len(scores), numRestarts)
	}

	maxScore := floats.Max(scores)

	threshold = alpha * maxScore
	kept = filterAtLeast(scores, threshold)

	for shrinks := 0; len(kept) < numRestarts; shrinks++ {
		if shrinks == MaxAlphaShrinks {
			return filterAtLeast(scores, 0), 0, nil
		}

		alpha /= 10
		threshold = alpha * maxScore
		kept = filterAtLeast(scores, threshold)
	}

	return kept, threshold, nil
}

func filterAtLeast(scores []float64, threshold float64) []int {
	var kept []int

	for i, s := range scores {
		if s >= threshold {
			kept = append(kept, i)
		}
	}

	return kept
}

// standardizedWeights returns exp(eta * standardize(scores)) shifted so the
// largest weight is one.
func standardizedWeights(eta float64, scores []float64) []float64 {
	weights := make([]float64, len(scores))

	if dominant := fillInfinite(weights, scores); dominant {
		return weights
	}

	finite := make([]float64, 0, len(scores))
	for _, s := range scores {
		if !math.IsInf(s, 0) {
			finite = append(finite, s)
		}
	}

	if len(finite) == 0 {
		return uniform(weights)
	}

	// Scores near ±MaxFloat64 overflow the moments. z-scores do not depend on
	// the unit, so those are standardized in units of the largest score.
	unit := 1.0

	mean, variance := stat.PopMeanVariance(finite, nil)
	if !isFinite(mean) || !isFinite(variance) {
		unit = floats.Norm(finite, math.Inf(1))
		for i := range finite {
			finite[i] /= unit
		}

		mean, variance = stat.PopMeanVariance(finite, nil)
	}

	std := math.Sqrt(variance + standardizeEpsilon/(unit*unit))
	if std == 0 {
		return uniform(weights)
	}

	exponents := make([]float64, len(scores))
	for i, s := range scores {
		if math.IsInf(s, -1) {
			exponents[i] = math.Inf(-1)

			continue
		}

		exponents[i] = eta * (s/unit - mean) / std
	}

	return boltzmann(weights, exponents)
}

// relativeWeights returns exp(eta * (s / maxScore - 1)) for the kept scores.
func relativeWeights(eta float64, scores []float64, maxScore float64) []float64 {
	weights := make([]float64, len(scores))

	if dominant := fillInfinite(weights, scores); dominant {
		return weights
	}

	if maxScore == 0 {
		return uniform(weights)
	}

	exponents := make([]float64, len(scores))
	for i, s := range scores {
		exponents[i] = eta * (s/maxScore - 1)
	}

	return boltzmann(weights, exponents)
}

// fillInfinite sets a unit weight on every +Inf score and reports whether
// there was any.
func fillInfinite(weights, scores []float64) bool {
	dominant := false

	for i, s := range scores {
		if math.IsInf(s, 1) {
			weights[i] = 1
			dominant = true
		}
	}

	return dominant
}

// boltzmann returns exp(e - max(exponents)) for every exponent. An exponent
// that overflowed to +Inf is taken as MaxFloat64, so it dominates without
// turning the shift into Inf - Inf.
func boltzmann(weights, exponents []float64) []float64 {
	for i, e := range exponents {
		if math.IsInf(e, 1) {
			exponents[i] = math.MaxFloat64
		}
	}

	top := floats.Max(exponents)

	for i, e := range exponents {
		weights[i] = math.Exp(e - top)
	}

	return weights
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func uniform(weights []float64) []float64 {
	for i := range weights {
		weights[i] = 1
	}

	return weights
}

// choice draws n rows of pool with replacement, proportionally to weights,
// and returns copies of them.
func choice(key Key, pool []*mat.Dense, weights []float64, n int) ([]*mat.Dense, error) {
	sampler := sampleuv.NewWeighted(weights, key.Source())

	out := make([]*mat.Dense, n)
	for i := range out {
		idx, ok := sampler.Take()
		if !ok {
			return nil, fmt.Errorf("%w: every sampling weight is zero", ErrInvalidArgument)
		}

		// Take removes the row from the population, put it back.
		sampler.Reweight(idx, weights[idx])

		out[i] = mat.DenseCopyOf(pool[idx])
	}

	return out, nil
}

func checkInitializerArgs(pool []*mat.Dense, scores []float64, numRestarts int) error {
	if numRestarts < 1 {
		return fmt.Errorf("%w: numRestarts must be at least 1, got %d", ErrInvalidArgument, numRestarts)
	}

	if len(pool) == 0 {
		return fmt.Errorf("%w: empty candidate pool", ErrInvalidArgument)
	}

	if len(pool) != len(scores) {
		return fmt.Errorf("%w: %d candidates but %d scores", ErrShape, len(pool), len(scores))
	}

	if pool[0] == nil {
		return fmt.Errorf("%w: candidate 0 is nil", ErrShape)
	}

	q, d := pool[0].Dims()
	if err := checkCandidates(pool, q, d); err != nil {
		return err
	}

	return checkScores(scores, len(pool))
}

func mustBeFinite(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		panic(fmt.Sprintf("bojax: %s must be finite, got %v", name, v))
	}
}
