package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Lando-L/bojax"
)

var bounds = bojax.Bounds{{Low: -1, High: 1}}

// bowl scores a candidate set by -Σ(x - 0.3)², peaking at 0.3.
func bowl(candidates []*mat.Dense) []float64 {
	scores := make([]float64, len(candidates))
	for k, x := range candidates {
		r, c := x.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				diff := x.At(i, j) - 0.3
				scores[k] -= diff * diff
			}
		}
	}

	return scores
}

func starts(values ...float64) []*mat.Dense {
	out := make([]*mat.Dense, len(values))
	for i, v := range values {
		out[i] = mat.NewDense(1, 1, []float64{v})
	}

	return out
}

func TestIdentity(t *testing.T) {
	initial := starts(-0.5, 0.3, 1)

	solutions, err := Identity()(bowl, bounds, initial)
	require.NoError(t, err)
	require.Len(t, solutions, 3)

	for i, s := range solutions {
		assert.NoError(t, s.Err)
		assert.True(t, mat.Equal(initial[i], s.Candidate))
		assert.Equal(t, bowl(initial[i:i+1])[0], s.Score)
	}

	// Solutions are copies.
	solutions[0].Candidate.Set(0, 0, 0)
	assert.Equal(t, -0.5, initial[0].At(0, 0))
}

func TestNelderMeadFindsPeak(t *testing.T) {
	initial := starts(-0.8, 0.9)

	solutions, err := NelderMead(WithConcurrency(2))(bowl, bounds, initial)
	require.NoError(t, err)
	require.Len(t, solutions, 2)

	for i, s := range solutions {
		require.NoError(t, s.Err)
		assert.InDelta(t, 0.3, s.Candidate.At(0, 0), 1e-3, "restart %d", i)
		assert.GreaterOrEqual(t, s.Score, bowl(initial[i:i+1])[0])
	}
}

func TestNelderMeadStaysInBounds(t *testing.T) {
	// The peak lies outside the box, the best feasible point is its edge.
	narrow := bojax.Bounds{{Low: -1, High: 0}}

	solutions, err := NelderMead()(bowl, narrow, starts(-0.9))
	require.NoError(t, err)

	s := solutions[0]
	require.NoError(t, s.Err)
	assert.True(t, narrow.Contains(s.Candidate))
	assert.InDelta(t, 0, s.Candidate.At(0, 0), 1e-3)
}

func TestMayflyNeverWorsens(t *testing.T) {
	initial := starts(-0.8, 0.25, 0.9)

	solutions, err := Mayfly(WithIterations(10), WithPopulation(20), WithRadius(0.2))(bowl, bounds, initial)
	require.NoError(t, err)
	require.Len(t, solutions, 3)

	for i, s := range solutions {
		assert.True(t, bounds.Contains(s.Candidate), "restart %d", i)
		assert.GreaterOrEqual(t, s.Score, bowl(initial[i:i+1])[0], "restart %d", i)

		// Search stays inside the box around the start.
		assert.InDelta(t, initial[i].At(0, 0), s.Candidate.At(0, 0), 0.2*2+1e-12, "restart %d", i)
	}
}

func TestMayflyDeterministic(t *testing.T) {
	solve := Mayfly(WithIterations(5))
	initial := starts(-0.4, 0.6)

	a, err := solve(bowl, bounds, initial)
	require.NoError(t, err)

	b, err := solve(bowl, bounds, initial)
	require.NoError(t, err)

	for i := range a {
		assert.True(t, mat.Equal(a[i].Candidate, b[i].Candidate), "restart %d", i)
		assert.Equal(t, a[i].Score, b[i].Score, "restart %d", i)
	}
}

func TestSolversValidateInput(t *testing.T) {
	for name, solve := range map[string]bojax.Solver{
		"identity":   Identity(),
		"neldermead": NelderMead(),
		"mayfly":     Mayfly(),
	} {
		_, err := solve(bowl, bounds, nil)
		assert.ErrorIs(t, err, bojax.ErrInvalidArgument, name)

		_, err = solve(bowl, bounds, []*mat.Dense{nil})
		assert.ErrorIs(t, err, bojax.ErrShape, name)

		_, err = solve(bowl, bounds, []*mat.Dense{mat.NewDense(1, 2, nil)})
		assert.ErrorIs(t, err, bojax.ErrShape, name)

		_, err = solve(bowl, bojax.Bounds{}, starts(0))
		assert.ErrorIs(t, err, bojax.ErrShape, name)
	}
}

func TestKeepBetter(t *testing.T) {
	start := mat.NewDense(1, 1, []float64{0})
	refined := mat.NewDense(1, 1, []float64{1})

	s := keepBetter(start, 1, refined, 2)
	assert.Same(t, refined, s.Candidate)
	assert.Equal(t, 2.0, s.Score)

	s = keepBetter(start, 1, refined, 0.5)
	assert.True(t, mat.Equal(start, s.Candidate))
	assert.Equal(t, 1.0, s.Score)

	s = keepBetter(start, 1, refined, math.NaN())
	assert.ErrorIs(t, s.Err, bojax.ErrNotConverged)
}

func TestLoss(t *testing.T) {
	assert.Equal(t, math.MaxFloat64, loss(math.Inf(-1)))
	assert.Equal(t, -2.0, loss(2))
}

func TestSeedOf(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{0.1, 0.2})
	b := mat.NewDense(1, 2, []float64{0.2, 0.1})

	assert.Equal(t, seedOf(a), seedOf(mat.DenseCopyOf(a)))
	assert.NotEqual(t, seedOf(a), seedOf(b))
	assert.GreaterOrEqual(t, seedOf(a), int64(0))
}
