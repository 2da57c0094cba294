package bojax

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Available acquisition functions for Bayesian optimization.
// Each builder closes over its parameters and a posterior Process and returns
// an Acquisition scoring batches of candidate sets. Higher is better.
//////

const (
	// logEIBound separates the direct log-EI formula from the stabilized
	// expansion.
	logEIBound = -1.0

	// logEITail is the z below which log-EI uses its asymptotic tail.
	logEITail = -1e6
)

// LogProbabilityOfImprovement builds the log probability of improvement
// acquisition.
//
// How it works:
// - For every point computes z = (loc - best) / scale
// - Returns log Φ(z), evaluated in log space so deep negative z stays finite
// - A candidate set with several points scores the sum of its point scores,
// the log probability that every point improves if they are independent
//
// Parameters:
// - best: Best objective value observed so far
// - process: Posterior belief over the objective
//
// Degenerate points with zero variance score 0 when loc >= best and -Inf
// otherwise, the limits of log Φ(z) for z → ±∞.
//
// Example:
//
//	acq := LogProbabilityOfImprovement(0.5, process)
//	scores := acq(candidates)
func LogProbabilityOfImprovement(best float64, process Process) Acquisition {
	return func(candidates []*mat.Dense) []float64 {
		return mapBatch(candidates, func(x *mat.Dense) float64 {
			return reducePoints(process, x, func(loc, scale float64) float64 {
				diff := loc - best
				if !(scale > 0) {
					if diff >= 0 {
						return 0
					}

					return math.Inf(-1)
				}

				return logNormalCDF(diff / scale)
			})
		})
	}
}

// LogExpectedImprovement builds the log expected improvement acquisition,
// log E[max(y - best, 0)] for y drawn from the posterior.
//
// How it works:
// - E[max(y - best, 0)] = scale * h(z) with h(z) = φ(z) + zΦ(z)
// - log h(z) is evaluated in three regimes so it never cancels or underflows:
// direct above z = -1, an erfcx based expansion down to z = -1e6 and the
// asymptotic tail log φ(z) - 2 log|z| below
// - A candidate set with several points scores the sum of its point scores
//
// Parameters:
// - best: Best objective value observed so far
// - process: Posterior belief over the objective
//
// When to use:
// - Default choice, balances how likely and how large an improvement is
// - Safe far away from the incumbent where plain EI underflows to zero
//
// Degenerate points with zero variance score log(loc - best) when loc > best
// and -Inf otherwise.
func LogExpectedImprovement(best float64, process Process) Acquisition {
	return func(candidates []*mat.Dense) []float64 {
		return mapBatch(candidates, func(x *mat.Dense) float64 {
			return reducePoints(process, x, func(loc, scale float64) float64 {
				diff := loc - best
				z := diff / scale

				if !(scale > 0) || math.IsInf(z, 0) {
					if diff > 0 {
						return math.Log(diff)
					}

					return math.Inf(-1)
				}

				return logH(z) + math.Log(scale)
			})
		})
	}
}

// UpperConfidenceBound builds the upper confidence bound acquisition
// loc + sqrt(beta) * scale. A candidate set with several points scores the
// sum of its point bounds.
//
// Parameters:
// - beta: Exploration weight, higher values favour uncertain points
// - process: Posterior belief over the objective
//
// Important notes:
// - Panics if beta is negative or NaN
func UpperConfidenceBound(beta float64, process Process) Acquisition {
	if !(beta >= 0) {
		panic(fmt.Sprintf("bojax: upper confidence bound needs beta >= 0, got %v", beta))
	}

	weight := math.Sqrt(beta)

	return func(candidates []*mat.Dense) []float64 {
		return mapBatch(candidates, func(x *mat.Dense) float64 {
			return reducePoints(process, x, func(loc, scale float64) float64 {
				return loc + weight*scale
			})
		})
	}
}

// reducePoints scores every point of one candidate set with fn and returns
// their sum. The sum is strictly increasing in every point's own score, so
// points held fixed can not mask the others. For the log acquisitions it is
// the log of the product of the point values.
func reducePoints(process Process, x *mat.Dense, fn func(loc, scale float64) float64) float64 {
	loc, scale := posterior(process, x)

	var total float64
	for i := range loc {
		total += fn(loc[i], scale[i])
	}

	return total
}

// logH returns log(φ(z) + zΦ(z)), the log expected improvement of a unit
// normal over zero at standardized distance z.
func logH(z float64) float64 {
	switch {
	case z > logEIBound:
		return logHUpper(z)
	case z > logEITail:
		if v, ok := logHMiddle(z); ok {
			return v
		}

		return logHTail(z)
	default:
		return logHTail(z)
	}
}

func logHUpper(z float64) float64 {
	return math.Log(math.Exp(normalLogPDF(z)) + z*normalCDF(z))
}

// logHMiddle factors φ(z) out of h(z):
//
//	h(z) = φ(z) * (1 - |z| Φ(z)/φ(z)) = φ(z) * (1 - exp(g(z)))
//
// with g(z) = log(erfcx(-z/√2)·|z|) + log(√(π/2)) < 0 for z < 0. ok is false
// when round-off pushed g to zero, which only happens deep in the tail.
func logHMiddle(z float64) (v float64, ok bool) {
	g := math.Log(erfcx(-z/math.Sqrt2)*math.Abs(z)) + logSqrtPiDiv2
	if !(g < 0) {
		return 0, false
	}

	return normalLogPDF(z) + log1mexp(-g), true
}

func logHTail(z float64) float64 {
	return normalLogPDF(z) - 2*math.Log(math.Abs(z))
}
