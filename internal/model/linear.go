package model

import (
	"fmt"

	"github.com/YuminosukeSato/scigo/linear"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an intercept. Fitting is
// done by scigo; the coefficients are kept so a saved model predicts alone.
type LinearRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	n := len(X)
	if n < p+1 {
		return fmt.Errorf("%w: %d rows cannot fit %d coefficients", ErrShape, n, p+1)
	}
	reg := linear.NewLinearRegression()
	if err := reg.Fit(denseOf(X), mat.NewDense(n, 1, append([]float64(nil), y...))); err != nil {
		return fmt.Errorf("least squares: %w", err)
	}

	// f(0) is the intercept and f(e_j) - f(0) the j-th coefficient.
	basis := mat.NewDense(p+1, p, nil)
	for j := 0; j < p; j++ {
		basis.Set(j+1, j, 1)
	}
	out, err := reg.Predict(basis)
	if err != nil {
		return fmt.Errorf("least squares: %w", err)
	}
	m.Intercept = out.At(0, 0)
	m.Coef = make([]float64, p)
	for j := range m.Coef {
		m.Coef[j] = out.At(j+1, 0) - m.Intercept
	}
	return nil
}

func (m *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if m.Coef == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(m.Coef) {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), len(m.Coef))
		}
		s := m.Intercept
		for j, v := range row {
			s += m.Coef[j] * v
		}
		out[i] = s
	}
	return out, nil
}

// denseOf copies a row-major matrix into a gonum Dense.
func denseOf(X [][]float64) *mat.Dense {
	d := mat.NewDense(len(X), len(X[0]), nil)
	for i, row := range X {
		d.SetRow(i, row)
	}
	return d
}
