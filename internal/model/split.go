package model

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Split shuffles the row indices 0..n-1 with a seeded generator and returns
// the train and test partitions. The test share is rounded up.
func Split(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %g", testSize)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test size %g", n, testSize)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

func take(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, r := range idx {
		out[i] = X[r]
	}
	return out
}

func takeVec(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}
