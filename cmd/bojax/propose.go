package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Lando-L/bojax"
	"github.com/Lando-L/bojax/surrogate"
)

var (
	observationsPath string
	configPath       string
	solverName       string
	sigma            float64
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose the next candidate set",
	Long: `Fits the kernel smoothing surrogate to the observations file, maximizes
the configured acquisition and prints the proposed candidate set as YAML.`,
	RunE: runPropose,
}

func init() {
	proposeCmd.Flags().StringVar(&observationsPath, "observations", "", "Observations YAML with bounds, points and values (required)")
	proposeCmd.Flags().StringVar(&configPath, "config", "", "Optimizer configuration YAML")
	proposeCmd.Flags().StringVar(&solverName, "solver", solverNelderMead, "Local search: identity, neldermead, mayfly")
	proposeCmd.Flags().Float64Var(&sigma, "sigma", 1.0, "Surrogate kernel width")

	proposeCmd.MarkFlagRequired("observations")
	rootCmd.AddCommand(proposeCmd)
}

func runPropose(cmd *cobra.Command, args []string) error {
	runID := uuid.NewString()
	log := currentLogger().With("run_id", runID)

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	var obs observations
	if err := loadYAML(observationsPath, &obs); err != nil {
		return err
	}

	if err := obs.validate(); err != nil {
		return fmt.Errorf("invalid observations: %w", err)
	}

	gp := surrogate.New(sigma)
	for i, p := range obs.Points {
		gp.Update(p, obs.Values[i])
	}

	_, best, _ := gp.Best()

	acq, err := config.BuildAcquisition(best, gp.Process())
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

	log.Info("Starting proposal",
		"acquisition", config.Acquisition,
		"strategy", config.Strategy,
		"solver", solverName,
		"observations", gp.Len(),
		"best", best,
	)

	start := time.Now()

	result, err := optimize(bojax.NewKey(config.Seed), acq, obs.Bounds, config.Q, config.NumSamples, config.NumRestarts)
	if err != nil {
		return fmt.Errorf("proposal failed: %w", err)
	}

	log.Info("Proposal complete", "elapsed", time.Since(start).String())

	return writeYAML(cmd.OutOrStdout(), newProposal(runID, result))
}
