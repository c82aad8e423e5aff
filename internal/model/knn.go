package model

import (
	"fmt"
	"strconv"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/knn"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

// KNN is a k-nearest-neighbours classifier (golearn, Euclidean distance,
// majority vote). The training rows are part of the saved model so a loaded
// model can predict without refitting from the source data.
type KNN struct {
	K int         `json:"k"`
	X [][]float64 `json:"x"`
	Y []float64   `json:"y"`

	grid *dataset.Grid
	cls  *knn.KNNClassifier
}

// Fit stores the training data and fits the golearn classifier on it.
func (m *KNN) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	if m.K <= 0 {
		m.K = 5
	}
	m.X, m.Y = X, y
	return m.build()
}

// build fits the golearn classifier from X and Y.
func (m *KNN) build() error {
	names := make([]string, len(m.X[0]))
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j)
	}
	g := dataset.NewGrid(names, "class")
	labels := make([]string, len(m.Y))
	for i, v := range m.Y {
		labels[i] = classKey(v)
	}
	train, err := g.Instances(m.X, labels)
	if err != nil {
		return err
	}
	k := m.K
	if k > len(m.X) {
		k = len(m.X)
	}
	cls := knn.NewKnnClassifier("euclidean", "linear", k)
	cls.AllowOptimisations = false
	if err := cls.Fit(train); err != nil {
		return fmt.Errorf("knn: %w", err)
	}
	m.grid, m.cls = g, cls
	return nil
}

func (m *KNN) Predict(X [][]float64) ([]float64, error) {
	if len(m.X) == 0 {
		return nil, ErrNotFitted
	}
	if m.cls == nil {
		if err := m.build(); err != nil {
			return nil, err
		}
	}
	p := len(m.X[0])
	for i, row := range X {
		if len(row) != p {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), p)
		}
	}
	if len(X) == 0 {
		return []float64{}, nil
	}
	// the class cells of the query grid are placeholders
	placeholder := make([]string, len(X))
	for i := range placeholder {
		placeholder[i] = classKey(m.Y[0])
	}
	query, err := m.grid.Instances(X, placeholder)
	if err != nil {
		return nil, err
	}
	pred, err := m.cls.Predict(query)
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}
	out := make([]float64, len(X))
	for i := range out {
		v, err := strconv.ParseFloat(base.GetClass(pred, i), 64)
		if err != nil {
			return nil, fmt.Errorf("knn: class %q: %w", base.GetClass(pred, i), err)
		}
		out[i] = v
	}
	return out, nil
}

// classKey renders an encoded class as a golearn category.
func classKey(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
