package insight

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCAResult is a projection onto the leading principal components.
type PCAResult struct {
	Components int         `json:"components"`
	Explained  []float64   `json:"explained_variance_ratio"`
	Loadings   [][]float64 `json:"loadings"`
	Features   []string    `json:"features"`
	Projection [][]float64 `json:"projection"`
}

// PCA projects X onto its first n principal components (default 2).
func PCA(X [][]float64, names []string, n int) (*PCAResult, error) {
	if n <= 0 {
		n = 2
	}
	if len(X) < 2 || len(X[0]) == 0 {
		return nil, fmt.Errorf("pca needs at least 2 complete rows and 1 numeric column")
	}
	rows, cols := len(X), len(X[0])
	if n > cols {
		n = cols
	}
	a := mat.NewDense(rows, cols, nil)
	for i, r := range X {
		a.SetRow(i, r)
	}
	var pc stat.PC
	if !pc.PrincipalComponents(a, nil) {
		return nil, errors.New("pca: decomposition failed")
	}
	vars := pc.VarsTo(nil)
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	if n > len(vars) {
		n = len(vars)
	}

	total := 0.0
	for _, v := range vars {
		total += v
	}
	res := &PCAResult{Components: n, Features: names}
	for k := 0; k < n; k++ {
		ratio := 0.0
		if total > 0 {
			ratio = vars[k] / total
		}
		res.Explained = append(res.Explained, ratio)
	}
	for j := 0; j < cols; j++ {
		res.Loadings = append(res.Loadings, mat.Row(nil, j, vecs.Slice(0, cols, 0, n)))
	}

	// Center before projecting; PrincipalComponents does not modify a.
	means := make([]float64, cols)
	for j := 0; j < cols; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, a), nil)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a.Set(i, j, a.At(i, j)-means[j])
		}
	}
	var proj mat.Dense
	proj.Mul(a, vecs.Slice(0, cols, 0, n))
	res.Projection = make([][]float64, rows)
	for i := range res.Projection {
		res.Projection[i] = mat.Row(nil, i, &proj)
	}
	return res, nil
}
