package bojax

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// indexPool returns n (1, 1) candidate sets holding their own index.
func indexPool(n int) []*mat.Dense {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}

	return points(values...)
}

// counts tallies how often every pool index was drawn.
func counts(t *testing.T, drawn []*mat.Dense, n int) []int {
	t.Helper()

	out := make([]int, n)
	for _, x := range drawn {
		idx := int(x.At(0, 0))
		require.True(t, idx >= 0 && idx < n, "drawn value %v outside the pool", x.At(0, 0))

		out[idx]++
	}

	return out
}

func TestQBatchUniformAtZeroEta(t *testing.T) {
	const draws = 20000

	pool := indexPool(4)

	restarts, err := QBatch(0)(NewKey(1), pool, []float64{0, 1, 2, 3}, draws)
	require.NoError(t, err)
	require.Len(t, restarts, draws)

	for i, c := range counts(t, restarts, 4) {
		assert.InDelta(t, draws/4, c, 400, "row %d", i)
	}
}

func TestQBatchConcentratesWithEta(t *testing.T) {
	const draws = 20000

	pool := indexPool(4)
	scores := []float64{0, 1, 2, 3}

	top := func(eta float64) int {
		restarts, err := QBatch(eta)(NewKey(2), pool, scores, draws)
		require.NoError(t, err)

		return counts(t, restarts, 4)[3]
	}

	low, mid, high := top(0.5), top(1), top(2)

	assert.Less(t, low, mid)
	assert.Less(t, mid, high)
}

func TestQBatchSkipsNegativeInfinity(t *testing.T) {
	restarts, err := QBatch(1)(NewKey(3), indexPool(3), []float64{math.Inf(-1), 0, 1}, 500)
	require.NoError(t, err)

	assert.Zero(t, counts(t, restarts, 3)[0])
}

func TestQBatchPositiveInfinityDominates(t *testing.T) {
	scores := []float64{0, math.Inf(1), 1, math.Inf(1)}

	restarts, err := QBatch(1)(NewKey(4), indexPool(4), scores, 500)
	require.NoError(t, err)

	c := counts(t, restarts, 4)
	assert.Zero(t, c[0])
	assert.Zero(t, c[2])
	assert.Positive(t, c[1])
	assert.Positive(t, c[3])
}

func TestQBatchAllNegativeInfinity(t *testing.T) {
	inf := math.Inf(-1)

	restarts, err := QBatch(1)(NewKey(5), indexPool(3), []float64{inf, inf, inf}, 10)
	require.NoError(t, err)
	assert.Len(t, restarts, 10)
}

func TestQBatchExtremeScores(t *testing.T) {
	const draws = 2000

	scores := []float64{-math.MaxFloat64, math.MaxFloat64, 0}

	weights := standardizedWeights(1, scores)
	for i, w := range weights {
		assert.False(t, math.IsNaN(w), "weight %d", i)
	}

	restarts, err := QBatch(1)(NewKey(14), indexPool(3), scores, draws)
	require.NoError(t, err)

	c := counts(t, restarts, 3)
	assert.Greater(t, c[1], c[2])
	assert.Greater(t, c[2], c[0])
}

func TestQBatchOverflowingExponent(t *testing.T) {
	// eta * z overflows to ±Inf for every score but the middle one.
	restarts, err := QBatch(math.MaxFloat64)(NewKey(15), indexPool(3), []float64{0, 1, 2}, 50)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 50}, counts(t, restarts, 3))
}

func TestQBatchIdenticalExtremeScores(t *testing.T) {
	scores := []float64{math.MaxFloat64, math.MaxFloat64}

	assert.Equal(t, []float64{1, 1}, standardizedWeights(1, scores))
}

func TestQBatchDeterministic(t *testing.T) {
	pool := indexPool(100)
	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = math.Sin(float64(i))
	}

	initialize := QBatch(1)

	a, err := initialize(NewKey(6), pool, scores, 10)
	require.NoError(t, err)

	b, err := initialize(NewKey(6), pool, scores, 10)
	require.NoError(t, err)

	c, err := initialize(NewKey(7), pool, scores, 10)
	require.NoError(t, err)

	same := true
	for i := range a {
		assert.True(t, mat.Equal(a[i], b[i]), "restart %d", i)
		same = same && mat.Equal(a[i], c[i])
	}

	assert.False(t, same, "different keys drew identical restarts")
}

func TestQBatchReturnsCopies(t *testing.T) {
	pool := indexPool(2)

	restarts, err := QBatch(0)(NewKey(8), pool, []float64{0, 0}, 4)
	require.NoError(t, err)

	for _, r := range restarts {
		r.Set(0, 0, 42)
	}

	assert.Equal(t, 0.0, pool[0].At(0, 0))
	assert.Equal(t, 1.0, pool[1].At(0, 0))
}

func TestQBatchErrors(t *testing.T) {
	initialize := QBatch(1)
	key := NewKey(9)

	_, err := initialize(key, indexPool(3), []float64{0, 1, 2}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = initialize(key, nil, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = initialize(key, indexPool(3), []float64{0, 1}, 1)
	assert.ErrorIs(t, err, ErrShape)

	_, err = initialize(key, indexPool(2), []float64{0, math.NaN()}, 1)
	assert.ErrorIs(t, err, ErrNaNScore)

	mixed := []*mat.Dense{mat.NewDense(1, 1, nil), mat.NewDense(2, 1, nil)}
	_, err = initialize(key, mixed, []float64{0, 1}, 1)
	assert.ErrorIs(t, err, ErrShape)

	assert.Panics(t, func() { QBatch(math.NaN()) })
	assert.Panics(t, func() { QBatch(math.Inf(1)) })
}

func TestNonnegativeFilterThreshold(t *testing.T) {
	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = float64(i)
	}

	kept, threshold, err := nonnegativeFilter(scores, 0.5, 10)
	require.NoError(t, err)

	assert.Equal(t, 49.5, threshold)
	assert.Len(t, kept, 50)

	for _, idx := range kept {
		assert.GreaterOrEqual(t, scores[idx], threshold)
	}
}

func TestNonnegativeFilterShrinksAlpha(t *testing.T) {
	scores := []float64{1, 0.05, 0.04, 0.03, 0.02, 0.01, 0, 0}

	kept, threshold, err := nonnegativeFilter(scores, 0.5, 4)
	require.NoError(t, err)

	assert.InDelta(t, 0.005, threshold, 1e-12)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, kept)
}

func TestNonnegativeFilterFallback(t *testing.T) {
	// No positive threshold keeps the zeros, so after MaxAlphaShrinks every
	// non-negative row is kept.
	kept, threshold, err := nonnegativeFilter([]float64{1, 0, 0, 0, -1}, 0.5, 3)
	require.NoError(t, err)

	assert.Zero(t, threshold)
	assert.Equal(t, []int{0, 1, 2, 3}, kept)
}

func TestNonnegativeFilterInsufficient(t *testing.T) {
	_, _, err := nonnegativeFilter([]float64{1, -1, -2}, 0.5, 2)

	assert.ErrorIs(t, err, ErrInsufficientCandidates)
}

func TestQBatchNonnegativeDrawsAboveThreshold(t *testing.T) {
	const n = 100

	pool := indexPool(n)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = float64(i)
	}

	restarts, err := QBatchNonnegative(1, 0.5)(NewKey(10), pool, scores, 10)
	require.NoError(t, err)
	require.Len(t, restarts, 10)

	for _, r := range restarts {
		assert.GreaterOrEqual(t, r.At(0, 0), 49.5)
	}
}

func TestQBatchNonnegativeZeroMaximum(t *testing.T) {
	restarts, err := QBatchNonnegative(1, DefaultAlpha)(NewKey(11), indexPool(3), []float64{0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, restarts, 2)
}

func TestQBatchNonnegativeDeterministic(t *testing.T) {
	pool := indexPool(50)
	scores := make([]float64, 50)
	for i := range scores {
		scores[i] = float64(i % 7)
	}

	initialize := QBatchNonnegative(2, 0.1)

	a, err := initialize(NewKey(12), pool, scores, 8)
	require.NoError(t, err)

	b, err := initialize(NewKey(12), pool, scores, 8)
	require.NoError(t, err)

	for i := range a {
		assert.True(t, mat.Equal(a[i], b[i]), "restart %d", i)
	}
}

func TestQBatchNonnegativeErrors(t *testing.T) {
	_, err := QBatchNonnegative(1, 0.5)(NewKey(13), indexPool(3), []float64{1, -1, -1}, 2)
	assert.ErrorIs(t, err, ErrInsufficientCandidates)

	assert.Panics(t, func() { QBatchNonnegative(1, 0) })
	assert.Panics(t, func() { QBatchNonnegative(1, -1) })
	assert.Panics(t, func() { QBatchNonnegative(math.NaN(), 0.5) })
}
