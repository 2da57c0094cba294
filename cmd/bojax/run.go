package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/Lando-L/bojax"
	"github.com/Lando-L/bojax/surrogate"
)

var (
	functionName string
	iterations   int
	dim          int
	initialSize  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a closed optimization loop on a test function",
	Long: `Minimizes a built-in test function with a Bayesian optimization loop:
every iteration refits the surrogate, proposes a candidate set, evaluates it
and adds the results to the history. Prints the best point found as YAML.`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().StringVar(&functionName, "function", "sphere", "Test function: ackley, rosenbrock, sphere")
	runCmd.Flags().IntVar(&iterations, "iterations", 20, "Number of proposal rounds")
	runCmd.Flags().IntVar(&dim, "dim", 2, "Dimension of the test function")
	runCmd.Flags().IntVar(&initialSize, "initial", 5, "Number of random evaluations before the first proposal")
	runCmd.Flags().StringVar(&configPath, "config", "", "Optimizer configuration YAML")
	runCmd.Flags().StringVar(&solverName, "solver", solverNelderMead, "Local search: identity, neldermead, mayfly")
	runCmd.Flags().Float64Var(&sigma, "sigma", 1.0, "Surrogate kernel width")

	rootCmd.AddCommand(runCmd)
}

// summary is the YAML document printed by run.
type summary struct {
	RunID       string    `yaml:"run_id"`
	Function    string    `yaml:"function"`
	Evaluations int       `yaml:"evaluations"`
	BestPoint   []float64 `yaml:"best_point"`
	BestValue   float64   `yaml:"best_value"`
}

func runLoop(cmd *cobra.Command, args []string) error {
	runID := uuid.NewString()
	log := currentLogger().With("run_id", runID)

	f, bounds, err := lookupFunction(functionName, dim)
	if err != nil {
		return err
	}

	if iterations < 0 || initialSize < 1 {
		return fmt.Errorf("%w: need iterations >= 0 and initial >= 1, got %d and %d", bojax.ErrInvalidArgument, iterations, initialSize)
	}

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	local, err := buildSolver(solverName)
	if err != nil {
		return err
	}

	optimize, err := config.BuildOptimizer(local, bojax.WithLogger(log))
	if err != nil {
		return err
	}

	keys := bojax.NewKey(config.Seed).Split(iterations + 1)
	gp := surrogate.New(sigma)

	// The loop maximizes, so the history stores the negated objective.
	observe := func(x *mat.Dense) {
		for _, row := range rows(x) {
			gp.Update(row, -f.eval(row))
		}
	}

	initial, err := bojax.UniformSampler()(keys[0], bounds, 1, initialSize)
	if err != nil {
		return err
	}

	for _, x := range initial {
		observe(x)
	}

	log.Info("Starting optimization loop",
		"function", functionName,
		"dim", dim,
		"iterations", iterations,
		"initial", initialSize,
		"solver", solverName,
	)

	start := time.Now()

	for i := 0; i < iterations; i++ {
		_, best, _ := gp.Best()

		acq, err := config.BuildAcquisition(best, gp.Process())
		if err != nil {
			return err
		}

		result, err := optimize(keys[i+1], acq, bounds, config.Q, config.NumSamples, config.NumRestarts)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", i+1, err)
		}

		observe(result.Candidate)

		_, best, _ = gp.Best()
		log.Info("Iteration complete", "iteration", i+1, "best", -best, "evaluations", gp.Len())
	}

	x, y, _ := gp.Best()

	log.Info("Optimization complete", "elapsed", time.Since(start).String(), "best", -y)

	return writeYAML(cmd.OutOrStdout(), summary{
		RunID:       runID,
		Function:    functionName,
		Evaluations: gp.Len(),
		BestPoint:   x,
		BestValue:   -y,
	})
}
