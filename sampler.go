package bojax

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// UniformSampler returns a Sampler that draws every coordinate independently
// and uniformly from its Range. It is the default sampler of the optimizers.
//
// Usage example:
//
//	sample := UniformSampler()
//	pool, err := sample(NewKey(0), Bounds{{Low: -1, High: 1}}, 3, 100)
func UniformSampler() Sampler {
	return func(key Key, bounds Bounds, q, n int) ([]*mat.Dense, error) {
		if err := bounds.Validate(); err != nil {
			return nil, err
		}

		if q < 1 || n < 1 {
			return nil, fmt.Errorf("%w: sampler needs q >= 1 and n >= 1, got q=%d n=%d", ErrInvalidArgument, q, n)
		}

		rng := key.Rand()
		d := bounds.Dim()

		out := make([]*mat.Dense, n)
		for k := range out {
			data := make([]float64, q*d)
			for i := 0; i < q; i++ {
				for j, r := range bounds {
					data[i*d+j] = r.Low + rng.Float64()*(r.High-r.Low)
				}
			}

			out[k] = mat.NewDense(q, d, data)
		}

		return out, nil
	}
}
