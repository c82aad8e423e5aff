package model

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// KMeans partitions rows into K clusters (Lloyd iterations, k-means++ seeding).
type KMeans struct {
	K          int         `json:"k"`
	MaxIter    int         `json:"max_iter"`
	Seed       uint64      `json:"seed"`
	Centroids  [][]float64 `json:"centroids"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
}

func (m *KMeans) Fit(X [][]float64) error {
	p, err := checkXY(X, nil)
	if err != nil {
		return err
	}
	if m.K <= 0 {
		m.K = 3
	}
	if m.MaxIter <= 0 {
		m.MaxIter = 300
	}
	if len(X) < m.K {
		return fmt.Errorf("kmeans: %d rows for %d clusters", len(X), m.K)
	}
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed^0x9e3779b97f4a7c15))
	m.Centroids = seedPlusPlus(X, m.K, rng)

	labels := make([]int, len(X))
	for i := range labels {
		labels[i] = -1
	}
	for m.Iterations = 0; m.Iterations < m.MaxIter; m.Iterations++ {
		changed := false
		for i, row := range X {
			c, _ := nearest(m.Centroids, row)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, m.K)
		counts := make([]int, m.K)
		for k := range sums {
			sums[k] = make([]float64, p)
		}
		for i, row := range X {
			counts[labels[i]]++
			for j, v := range row {
				sums[labels[i]][j] += v
			}
		}
		for k := range sums {
			// An emptied cluster keeps its previous centroid.
			if counts[k] == 0 {
				continue
			}
			for j := range sums[k] {
				sums[k][j] /= float64(counts[k])
			}
			m.Centroids[k] = sums[k]
		}
	}
	m.Inertia = Inertia(X, labels, m.Centroids)
	return nil
}

func (m *KMeans) Predict(X [][]float64) ([]int, error) {
	if m.Centroids == nil {
		return nil, ErrNotFitted
	}
	out := make([]int, len(X))
	for i, row := range X {
		if len(row) != len(m.Centroids[0]) {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), len(m.Centroids[0]))
		}
		out[i], _ = nearest(m.Centroids, row)
	}
	return out, nil
}

// seedPlusPlus picks initial centroids with probability proportional to the
// squared distance from the closest centroid chosen so far.
func seedPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	cents := make([][]float64, 0, k)
	cents = append(cents, append([]float64(nil), X[rng.IntN(len(X))]...))
	d2 := make([]float64, len(X))
	for len(cents) < k {
		total := 0.0
		for i, row := range X {
			_, d2[i] = nearest(cents, row)
			total += d2[i]
		}
		next := 0
		if total > 0 {
			next = len(X) - 1
			r := rng.Float64() * total
			for i, d := range d2 {
				r -= d
				if d > 0 && r <= 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.IntN(len(X))
		}
		cents = append(cents, append([]float64(nil), X[next]...))
	}
	return cents
}

func nearest(cents [][]float64, x []float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for k, c := range cents {
		if d := sqDist(x, c); d < bestD {
			best, bestD = k, d
		}
	}
	return best, bestD
}
