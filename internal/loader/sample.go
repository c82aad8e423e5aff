package loader

import (
	"math/rand/v2"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

const (
	DefaultSampleRows = 1000
	DefaultSampleSeed = 42
)

// Sample generates a reproducible demo dataset: feature1 ~ N(0,1),
// feature2 ~ N(5,2), feature3 an integer in [0,10) and a 0/1 target.
func Sample(n int, seed uint64) *dataset.Dataset {
	if n <= 0 {
		n = DefaultSampleRows
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	f1 := make([]float64, n)
	f2 := make([]float64, n)
	f3 := make([]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		f1[i] = r.NormFloat64()
		f2[i] = 5 + 2*r.NormFloat64()
		f3[i] = float64(r.IntN(10))
		target[i] = float64(r.IntN(2))
	}
	return &dataset.Dataset{
		Name: "sample",
		Columns: []*dataset.Column{
			dataset.NewNumeric("feature1", f1),
			dataset.NewNumeric("feature2", f2),
			dataset.NewNumeric("feature3", f3),
			dataset.NewNumeric("target", target),
		},
	}
}
