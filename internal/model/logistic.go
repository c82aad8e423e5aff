package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// LogisticRegression is a sigmoid classifier trained by full-batch gradient
// descent. More than two classes are handled one-vs-rest.
type LogisticRegression struct {
	LearningRate float64     `json:"learning_rate"`
	Epochs       int         `json:"epochs"`
	Classes      []float64   `json:"classes"`
	Weights      [][]float64 `json:"weights"`
	Bias         []float64   `json:"bias"`
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// classesOf returns the sorted distinct values of y.
func classesOf(y []float64) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func (m *LogisticRegression) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if m.LearningRate <= 0 {
		m.LearningRate = 0.1
	}
	if m.Epochs <= 0 {
		m.Epochs = 500
	}
	m.Classes = classesOf(y)
	if len(m.Classes) < 2 {
		return fmt.Errorf("logistic regression needs at least two classes, got %d", len(m.Classes))
	}
	targets := m.Classes[1:]
	if len(m.Classes) > 2 {
		targets = m.Classes
	}
	m.Weights = make([][]float64, len(targets))
	m.Bias = make([]float64, len(targets))
	for k, cls := range targets {
		m.Weights[k], m.Bias[k] = fitBinary(X, y, cls, p, m.LearningRate, m.Epochs)
	}
	return nil
}

func fitBinary(X [][]float64, y []float64, positive float64, p int, lr float64, epochs int) ([]float64, float64) {
	w := make([]float64, p)
	b := 0.0
	grad := make([]float64, p)
	n := float64(len(X))
	for ep := 0; ep < epochs; ep++ {
		for j := range grad {
			grad[j] = 0
		}
		gb := 0.0
		for i, row := range X {
			t := 0.0
			if y[i] == positive {
				t = 1
			}
			d := sigmoid(floats.Dot(w, row)+b) - t
			floats.AddScaled(grad, d, row)
			gb += d
		}
		floats.AddScaled(w, -lr/n, grad)
		b -= lr * gb / n
	}
	return w, b
}

// PredictProba returns one probability per class for each row.
func (m *LogisticRegression) PredictProba(X [][]float64) ([][]float64, error) {
	if m.Weights == nil {
		return nil, ErrNotFitted
	}
	p := len(m.Weights[0])
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != p {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), p)
		}
		if len(m.Classes) == 2 {
			p1 := sigmoid(floats.Dot(m.Weights[0], row) + m.Bias[0])
			out[i] = []float64{1 - p1, p1}
			continue
		}
		probs := make([]float64, len(m.Classes))
		for k := range m.Weights {
			probs[k] = sigmoid(floats.Dot(m.Weights[k], row) + m.Bias[k])
		}
		if s := floats.Sum(probs); s > 0 {
			floats.Scale(1/s, probs)
		}
		out[i] = probs
	}
	return out, nil
}

func (m *LogisticRegression) Predict(X [][]float64) ([]float64, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(proba))
	for i, pr := range proba {
		out[i] = m.Classes[floats.MaxIdx(pr)]
	}
	return out, nil
}
