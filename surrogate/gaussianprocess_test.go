package surrogate

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGaussianProcessUpdate(t *testing.T) {
	gp := New(0.5)

	_, _, ok := gp.Best()
	assert.False(t, ok)

	x := []float64{1, 2}
	gp.Update(x, 3)
	gp.Update([]float64{0, 0}, 5)
	gp.Update([]float64{4, 4}, -1)

	// The input is copied.
	x[0] = 100

	assert.Equal(t, 3, gp.Len())

	best, y, ok := gp.Best()
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0}, best)
	assert.Equal(t, 5.0, y)

	assert.Panics(t, func() { gp.Update([]float64{1}, 0) })
}

func TestGaussianProcessPrior(t *testing.T) {
	mean, cov := New(1).Process()(mat.NewDense(2, 1, []float64{0, 1}))

	assert.Equal(t, 0.0, mean.AtVec(0))
	assert.Equal(t, 1.0, cov.At(0, 0))
	assert.InDelta(t, math.Exp(-0.5), cov.At(0, 1), 1e-15)
}

func TestGaussianProcessPosterior(t *testing.T) {
	gp := New(1)
	gp.Update([]float64{0}, 2)

	mean, cov := gp.Process()(mat.NewDense(1, 1, []float64{0}))

	// An observed point has its value as mean and no variance left.
	assert.InDelta(t, 2, mean.AtVec(0), 1e-15)
	assert.InDelta(t, 0, cov.At(0, 0), 1e-15)
}

func TestGaussianProcessCovariance(t *testing.T) {
	gp := New(0.7)
	for i := 0; i < 5; i++ {
		v := float64(i) / 4
		gp.Update([]float64{v, 1 - v}, math.Sin(v))
	}

	x := mat.NewDense(4, 2, []float64{0, 0, 0.5, 0.5, 1, 0, 0.2, 0.9})
	mean, cov := gp.Process()(x)

	require.Equal(t, 4, mean.Len())
	require.Equal(t, 4, cov.SymmetricDim())

	for i := 0; i < 4; i++ {
		assert.GreaterOrEqual(t, cov.At(i, i), 0.0)

		for j := 0; j < 4; j++ {
			assert.Equal(t, cov.At(i, j), cov.At(j, i))
		}
	}
}

func TestGaussianProcessSnapshot(t *testing.T) {
	gp := New(1)
	gp.Update([]float64{0}, 1)

	process := gp.Process()
	gp.Update([]float64{0}, 100)
	gp.SetSigma(5)

	mean, _ := process(mat.NewDense(1, 1, []float64{0}))
	assert.InDelta(t, 1, mean.AtVec(0), 1e-15)
	assert.Equal(t, 5.0, gp.Sigma())
}

func TestGaussianProcessConcurrent(t *testing.T) {
	gp := New(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gp.Update([]float64{float64(i)}, float64(i))
			gp.Process()(mat.NewDense(1, 1, []float64{0}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, gp.Len())
}

func TestNewDefaultsSigma(t *testing.T) {
	assert.Equal(t, 1.0, New(0).Sigma())
	assert.Equal(t, 1.0, New(-2).Sigma())
	assert.Equal(t, 1.0, New(math.NaN()).Sigma())
	assert.Equal(t, 0.25, New(0.25).Sigma())
}

func TestRBF(t *testing.T) {
	assert.Equal(t, 1.0, rbf([]float64{1, 2}, []float64{1, 2}, 1))
	assert.InDelta(t, math.Exp(-1), rbf([]float64{0}, []float64{2}, math.Sqrt2), 1e-15)
	assert.Panics(t, func() { rbf([]float64{0}, []float64{0, 1}, 1) })
}
