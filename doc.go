// Package bojax provides the candidate-proposal core of Bayesian
// optimization: acquisition functions that score candidates under a posterior
// belief, initializers that pick diverse and promising local-search starts,
// and multi-restart optimizers that propose the next batch of points.
//
// # Features
//
// The package includes the following key features:
//
//   - Numerically stable acquisitions: log probability of improvement and log
//     expected improvement stay finite and accurate across the whole real
//     line, including points with zero posterior variance
//   - Boltzmann restart initializers: QBatch and the threshold-filtered
//     QBatchNonnegative
//   - Batch and sequential (greedy) multi-point optimizers
//   - Explicit, splittable random keys: identical keys and inputs give
//     bit-identical proposals
//   - Pure function values: every component is a closure over its parameters
//     and is safe for concurrent use
//
// # Installation
//
// To install the package, use:
//
//	go get github.com/Lando-L/bojax
//
// # Acquisition Functions
//
// Each builder takes its parameters and a Process, the posterior belief,
// and returns an Acquisition. Higher scores are better.
//
// 1. Log Probability of Improvement:
//
//	acq := LogProbabilityOfImprovement(best, process)
//
// 2. Log Expected Improvement, the recommended default:
//
//	acq := LogExpectedImprovement(best, process)
//
// 3. Upper Confidence Bound:
//
//	acq := UpperConfidenceBound(2.0, process)
//
// # Optimizers
//
// An optimizer combines an Initializer and a Solver. Solvers live in the
// solver subpackage:
//
//	optimize := Batch(QBatch(1.0), solver.NelderMead())
//	result, err := optimize(NewKey(0), acq, bounds, q, 512, 10)
//
// The batch optimizer returns a (q, d) candidate set with a single score.
// The sequential optimizer returns the same candidate shape with one score
// per point, see Result.ScoreShape.
//
// # Randomness
//
// Nothing in this package reads global random state. Every stochastic call
// takes a Key and derives child keys with Key.Split.
package bojax
