package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/Lando-L/bojax"
)

// testFunction is a benchmark objective to be minimized, together with its
// conventional search box.
type testFunction struct {
	eval func(x []float64) float64
	low  float64
	high float64
}

var testFunctions = map[string]testFunction{
	"sphere":     {eval: sphere, low: -5.12, high: 5.12},
	"rosenbrock": {eval: rosenbrock, low: -2.048, high: 2.048},
	"ackley":     {eval: ackley, low: -5, high: 5},
}

func functionNames() []string {
	names := make([]string, 0, len(testFunctions))
	for name := range testFunctions {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func lookupFunction(name string, dim int) (testFunction, bojax.Bounds, error) {
	f, ok := testFunctions[name]
	if !ok {
		return testFunction{}, nil, fmt.Errorf("%w: unknown function %q, want one of %v", bojax.ErrInvalidArgument, name, functionNames())
	}

	if dim < 1 {
		return testFunction{}, nil, fmt.Errorf("%w: dimension must be positive, got %d", bojax.ErrInvalidArgument, dim)
	}

	bounds := make(bojax.Bounds, dim)
	for i := range bounds {
		bounds[i] = bojax.Range{Low: f.low, High: f.high}
	}

	return f, bounds, nil
}

func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}

	return sum
}

func rosenbrock(x []float64) float64 {
	if len(x) == 1 {
		return (1 - x[0]) * (1 - x[0])
	}

	var sum float64
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}

	return sum
}

func ackley(x []float64) float64 {
	n := float64(len(x))

	var squares, cosines float64
	for _, v := range x {
		squares += v * v
		cosines += math.Cos(2 * math.Pi * v)
	}

	return -20*math.Exp(-0.2*math.Sqrt(squares/n)) - math.Exp(cosines/n) + 20 + math.E
}
