// Package surrogate provides a small kernel-smoothing belief model that can
// stand in for a real posterior when driving the bojax optimizers from the
// command line or from tests. It is not a regression model: it never fits
// hyperparameters or inverts a kernel matrix.
package surrogate

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/Lando-L/bojax"
)

//////
// Const, vars, types.
//////

// GaussianProcess is a thread-safe RBF kernel smoother over observed points.
//
// Fields:
// - mu: RWMutex for thread-safe access to all fields
// - x: Observed input points, each of length dim
// - y: Observed values at each input point
// - sigma: Kernel width controlling the smoothness of interpolation
//
// Thread safety:
// - All fields are protected by the RWMutex
// - Process snapshots the observations, so a Process obtained earlier is
// not affected by later updates
type GaussianProcess struct {
	mu sync.RWMutex

	x [][]float64
	y []float64

	sigma float64
}

//////
// Methods.
//////

// Update adds a new observation. The input slice is copied.
//
// Important notes:
// - Panics if x does not have the dimension of earlier observations
func (gp *GaussianProcess) Update(x []float64, y float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if len(gp.x) > 0 && len(gp.x[0]) != len(x) {
		panic(fmt.Sprintf("surrogate: observation has dimension %d, want %d", len(x), len(gp.x[0])))
	}

	newX := make([]float64, len(x))
	copy(newX, x)

	gp.x = append(gp.x, newX)
	gp.y = append(gp.y, y)
}

// SetSigma updates the kernel width. It affects processes obtained after the
// call only.
func (gp *GaussianProcess) SetSigma(sigma float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.sigma = sigma
}

// Sigma returns the current kernel width.
func (gp *GaussianProcess) Sigma() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return gp.sigma
}

// Len returns the number of observations.
func (gp *GaussianProcess) Len() int {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return len(gp.y)
}

// Best returns the observation with the largest value. ok is false when
// nothing has been observed yet.
func (gp *GaussianProcess) Best() (x []float64, y float64, ok bool) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if len(gp.y) == 0 {
		return nil, 0, false
	}

	best := 0
	for i, v := range gp.y {
		if v > gp.y[best] {
			best = i
		}
	}

	x = make([]float64, len(gp.x[best]))
	copy(x, gp.x[best])

	return x, gp.y[best], true
}

// Process returns the current belief as a bojax.Process.
//
// Mathematical details, with k the RBF kernel, x_1..x_n the observations and
// m(a) = Σ_i k(a, x_i) / n:
//
//	mean(a)   = Σ_i k(a, x_i) y_i / n
//	cov(a, b) = k(a, b) - m(a) m(b)
//
// With no observations the belief is the prior: zero mean and unit kernel
// covariance.
func (gp *GaussianProcess) Process() bojax.Process {
	gp.mu.RLock()
	observed := make([][]float64, len(gp.x))
	for i, x := range gp.x {
		observed[i] = append([]float64(nil), x...)
	}
	values := append([]float64(nil), gp.y...)
	sigma := gp.sigma
	gp.mu.RUnlock()

	n := float64(len(values))

	return func(candidates *mat.Dense) (*mat.VecDense, *mat.SymDense) {
		q, _ := candidates.Dims()

		loc := mat.NewVecDense(q, nil)
		similarity := make([]float64, q)

		for a := 0; a < q; a++ {
			row := candidates.RawRowView(a)

			var sum, weighted float64
			for i, x := range observed {
				k := rbf(row, x, sigma)
				sum += k
				weighted += k * values[i]
			}

			if n > 0 {
				loc.SetVec(a, weighted/n)
				similarity[a] = sum / n
			}
		}

		cov := mat.NewSymDense(q, nil)
		for a := 0; a < q; a++ {
			for b := a; b < q; b++ {
				k := rbf(candidates.RawRowView(a), candidates.RawRowView(b), sigma)
				cov.SetSym(a, b, k-similarity[a]*similarity[b])
			}
		}

		return loc, cov
	}
}

//////
// Helper functions.
//////

// rbf is the radial basis function kernel exp(-|x1 - x2|² / (2 sigma²)).
//
// Important notes:
// - Panics if the vectors have different lengths
func rbf(x1, x2 []float64, sigma float64) float64 {
	if len(x1) != len(x2) {
		panic("surrogate: input vectors must have the same length")
	}

	var sum float64
	for i := range x1 {
		diff := x1[i] - x2[i]
		sum += diff * diff
	}

	return math.Exp(-sum / (2 * sigma * sigma))
}

//////
// Factory.
//////

// New creates an empty model with kernel width sigma. A non-positive sigma
// falls back to 1, which suits inputs normalized to the unit cube.
func New(sigma float64) *GaussianProcess {
	if !(sigma > 0) {
		sigma = 1.0
	}

	return &GaussianProcess{
		sigma: sigma,
	}
}
