package bojax

import "errors"

var (
	// ErrShape is returned when candidates, scores or bounds disagree on
	// their dimensions.
	ErrShape = errors.New("shape mismatch")

	// ErrInvalidArgument is returned for out-of-range parameters such as a
	// non-positive number of restarts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNaNScore is returned when an acquisition produced a NaN score.
	ErrNaNScore = errors.New("acquisition produced NaN score")

	// ErrInsufficientCandidates is returned by the non-negative initializer
	// when fewer pool rows than requested restarts have a non-negative score.
	ErrInsufficientCandidates = errors.New("not enough candidates with non-negative score")

	// ErrNoFeasibleCandidate is returned when every restart of an
	// optimization round failed.
	ErrNoFeasibleCandidate = errors.New("no feasible candidate")

	// ErrNotConverged marks a restart whose local search did not converge.
	ErrNotConverged = errors.New("local search did not converge")
)
