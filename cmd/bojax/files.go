package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/Lando-L/bojax"
	"github.com/Lando-L/bojax/solver"
)

// Solver names accepted by --solver.
const (
	solverIdentity   = "identity"
	solverNelderMead = "neldermead"
	solverMayfly     = "mayfly"
)

// observations is the on-disk history of evaluated points.
type observations struct {
	Bounds bojax.Bounds `yaml:"bounds"`
	Points [][]float64  `yaml:"points"`
	Values []float64    `yaml:"values"`
}

func (o observations) validate() error {
	if err := o.Bounds.Validate(); err != nil {
		return err
	}

	if len(o.Points) != len(o.Values) {
		return fmt.Errorf("%w: %d points but %d values", bojax.ErrShape, len(o.Points), len(o.Values))
	}

	if len(o.Points) == 0 {
		return fmt.Errorf("%w: at least one observation is required", bojax.ErrInvalidArgument)
	}

	for i, p := range o.Points {
		if len(p) != o.Bounds.Dim() {
			return fmt.Errorf("%w: point %d has dimension %d, want %d", bojax.ErrShape, i, len(p), o.Bounds.Dim())
		}

		if math.IsNaN(o.Values[i]) {
			return fmt.Errorf("%w: value %d is NaN", bojax.ErrInvalidArgument, i)
		}
	}

	return nil
}

// proposal is the YAML document printed by propose and run.
type proposal struct {
	RunID     string      `yaml:"run_id"`
	Candidate [][]float64 `yaml:"candidate"`
	Score     *float64    `yaml:"score,omitempty"`
	Scores    []float64   `yaml:"scores,omitempty"`
}

func newProposal(runID string, result bojax.Result) proposal {
	p := proposal{
		RunID:     runID,
		Candidate: rows(result.Candidate),
		Scores:    result.Scores,
	}

	if len(result.ScoreShape()) == 0 {
		score := result.Score
		p.Score = &score
	}

	return p
}

func rows(x *mat.Dense) [][]float64 {
	r, _ := x.Dims()

	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, x)
	}

	return out
}

// loadYAML decodes path into out. Fields missing from the file keep the
// value out already holds.
func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

// loadConfig returns the default configuration overlaid with path, if set.
func loadConfig(path string) (bojax.Config, error) {
	config := bojax.DefaultConfig()

	if path != "" {
		if err := loadYAML(path, &config); err != nil {
			return bojax.Config{}, err
		}
	}

	if err := config.Validate(); err != nil {
		return bojax.Config{}, err
	}

	return config, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	return enc.Close()
}

func buildSolver(name string) (bojax.Solver, error) {
	switch name {
	case solverIdentity:
		return solver.Identity(), nil
	case solverNelderMead:
		return solver.NelderMead(), nil
	case solverMayfly:
		return solver.Mayfly(), nil
	default:
		return nil, fmt.Errorf("%w: unknown solver %q", bojax.ErrInvalidArgument, name)
	}
}
