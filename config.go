package bojax

import (
	"fmt"
	"math"
)

// Names accepted by Config.
const (
	AcquisitionLogEI = "logei"
	AcquisitionLogPI = "logpi"
	AcquisitionUCB   = "ucb"

	InitializerQBatch      = "qbatch"
	InitializerNonnegative = "nonnegative"

	StrategyBatch      = "batch"
	StrategySequential = "sequential"
)

// Config holds every knob of one proposal round. It is meant to be loaded
// from a YAML file or command line flags and turned into components with
// BuildAcquisition, BuildInitializer and BuildOptimizer.
//
// Usage example:
//
//	config := DefaultConfig()
//	config.Q = 4
//	config.Strategy = StrategySequential
//
//	acq, err := config.BuildAcquisition(best, process)
//	optimize, err := config.BuildOptimizer(solver.NelderMead())
//	result, err := optimize(NewKey(config.Seed), acq,
//	    bounds, config.Q, config.NumSamples, config.NumRestarts)
//
// Recommended settings:
// - NumSamples: 100-2000 (more = better starting points, slower scoring)
// - NumRestarts: 5-20 (more = better coverage of local optima)
type Config struct {
	// Acquisition names the acquisition function: "logei", "logpi" or "ucb".
	Acquisition string `yaml:"acquisition"`

	// Beta is the exploration weight of "ucb". Ignored otherwise.
	Beta float64 `yaml:"beta"`

	// Initializer names the restart initializer: "qbatch" or "nonnegative".
	// "nonnegative" expects non-negative acquisition values, which the log
	// acquisitions do not produce.
	Initializer string `yaml:"initializer"`

	// Eta is the Boltzmann temperature of the initializer.
	Eta float64 `yaml:"eta"`

	// Alpha is the initial threshold of the "nonnegative" initializer.
	Alpha float64 `yaml:"alpha"`

	// Strategy names the optimizer: "batch" or "sequential".
	Strategy string `yaml:"strategy"`

	// Q is the number of points proposed per round.
	Q int `yaml:"q"`

	// NumSamples is the size of the raw candidate pool.
	NumSamples int `yaml:"num_samples"`

	// NumRestarts is the number of local searches.
	NumRestarts int `yaml:"num_restarts"`

	// Seed is the seed of the root random key.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Acquisition: AcquisitionLogEI,
		Beta:        2.0,
		Initializer: InitializerQBatch,
		Eta:         1.0,
		Alpha:       DefaultAlpha,
		Strategy:    StrategyBatch,
		Q:           1,
		NumSamples:  512,
		NumRestarts: 10,
		Seed:        0,
	}
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	switch c.Acquisition {
	case AcquisitionLogEI, AcquisitionLogPI:
	case AcquisitionUCB:
		if !(c.Beta >= 0) {
			return fmt.Errorf("%w: beta must be non-negative, got %v", ErrInvalidArgument, c.Beta)
		}
	default:
		return fmt.Errorf("%w: unknown acquisition %q", ErrInvalidArgument, c.Acquisition)
	}

	switch c.Initializer {
	case InitializerQBatch:
	case InitializerNonnegative:
		if !(c.Alpha > 0) || math.IsInf(c.Alpha, 1) {
			return fmt.Errorf("%w: alpha must be positive, got %v", ErrInvalidArgument, c.Alpha)
		}
	default:
		return fmt.Errorf("%w: unknown initializer %q", ErrInvalidArgument, c.Initializer)
	}

	if math.IsNaN(c.Eta) || math.IsInf(c.Eta, 0) {
		return fmt.Errorf("%w: eta must be finite, got %v", ErrInvalidArgument, c.Eta)
	}

	switch c.Strategy {
	case StrategyBatch, StrategySequential:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidArgument, c.Strategy)
	}

	if c.Q < 1 || c.NumSamples < 1 || c.NumRestarts < 1 {
		return fmt.Errorf("%w: q, num_samples and num_restarts must be positive, got %d, %d, %d",
			ErrInvalidArgument, c.Q, c.NumSamples, c.NumRestarts)
	}

	return nil
}

// BuildAcquisition returns the configured acquisition over process. best is
// the best objective value observed so far.
func (c Config) BuildAcquisition(best float64, process Process) (Acquisition, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Acquisition {
	case AcquisitionLogPI:
		return LogProbabilityOfImprovement(best, process), nil
	case AcquisitionUCB:
		return UpperConfidenceBound(c.Beta, process), nil
	default:
		return LogExpectedImprovement(best, process), nil
	}
}

// BuildInitializer returns the configured initializer.
func (c Config) BuildInitializer() (Initializer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.Initializer == InitializerNonnegative {
		return QBatchNonnegative(c.Eta, c.Alpha), nil
	}

	return QBatch(c.Eta), nil
}

// BuildOptimizer returns the configured optimizer around solver.
func (c Config) BuildOptimizer(solver Solver, opts ...Option) (Optimizer, error) {
	initializer, err := c.BuildInitializer()
	if err != nil {
		return nil, err
	}

	if c.Strategy == StrategySequential {
		return Sequential(initializer, solver, opts...), nil
	}

	return Batch(initializer, solver, opts...), nil
}
