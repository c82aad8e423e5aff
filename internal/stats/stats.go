// Package stats holds the column statistics used by preprocessing and
// analysis. Every function is pure: statistics are computed from the values
// passed in and nothing is retained between calls.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrEmpty is returned when a statistic needs at least one value.
var ErrEmpty = errors.New("no values")

// Mean returns the arithmetic mean of the non-NaN values in x.
func Mean(x []float64) (float64, error) {
	vals := dropNaN(x)
	if len(vals) == 0 {
		return 0, ErrEmpty
	}
	return stat.Mean(vals, nil), nil
}

// MeanStd returns the mean and population standard deviation (ddof=0) of x.
func MeanStd(x []float64) (mean, std float64, err error) {
	if len(x) == 0 {
		return 0, 0, ErrEmpty
	}
	m, v := stat.PopMeanVariance(x, nil)
	return m, math.Sqrt(v), nil
}

// SampleStd returns the sample standard deviation (ddof=1), or 0 for fewer
// than two values.
func SampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// MeanCI returns the two-sided Student's t confidence interval for the mean
// of x at the given level (0..1). It needs at least two values.
func MeanCI(x []float64, level float64) (lo, hi float64, err error) {
	if len(x) < 2 {
		return 0, 0, ErrEmpty
	}
	if level <= 0 || level >= 1 {
		return 0, 0, fmt.Errorf("confidence level %v outside (0,1)", level)
	}
	m, sd := stat.MeanStdDev(x, nil)
	n := float64(len(x))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile((1 + level) / 2)
	half := t * sd / math.Sqrt(n)
	return m - half, m + half, nil
}

// MinMax returns the smallest and largest values of x.
func MinMax(x []float64) (lo, hi float64, err error) {
	if len(x) == 0 {
		return 0, 0, ErrEmpty
	}
	return floats.Min(x), floats.Max(x), nil
}

// Quantile returns the q-th quantile (0..1) of x using linear interpolation
// between closest ranks at position q*(n-1). x is not modified.
func Quantile(x []float64, q float64) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmpty
	}
	cp := append([]float64(nil), x...)
	sort.Float64s(cp)
	return quantileSorted(cp, q), nil
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Quartiles holds Q1, median and Q3 of a column.
type Quartiles struct {
	Q1, Median, Q3 float64
}

// IQR returns Q3 - Q1.
func (q Quartiles) IQR() float64 { return q.Q3 - q.Q1 }

// Bounds returns the clipping interval [Q1 - k*IQR, Q3 + k*IQR].
func (q Quartiles) Bounds(k float64) (lower, upper float64) {
	iqr := q.IQR()
	return q.Q1 - k*iqr, q.Q3 + k*iqr
}

// ComputeQuartiles sorts a copy of x once and reads off the quartiles.
func ComputeQuartiles(x []float64) (Quartiles, error) {
	if len(x) == 0 {
		return Quartiles{}, ErrEmpty
	}
	cp := append([]float64(nil), x...)
	sort.Float64s(cp)
	return Quartiles{
		Q1:     quantileSorted(cp, 0.25),
		Median: quantileSorted(cp, 0.5),
		Q3:     quantileSorted(cp, 0.75),
	}, nil
}

// Clamp limits every value of x to [lo, hi] in place and returns how many
// values changed.
func Clamp(x []float64, lo, hi float64) int {
	n := 0
	for i, v := range x {
		switch {
		case v < lo:
			x[i] = lo
			n++
		case v > hi:
			x[i] = hi
			n++
		}
	}
	return n
}

// MedianMAD returns the median and the median absolute deviation of x.
func MedianMAD(x []float64) (median, mad float64) {
	if len(x) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), x...)
	sort.Float64s(cp)
	median = quantileSorted(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantileSorted(dev, 0.5)
	return median, mad
}

// RobustZ returns 0.6745*(x-median)/MAD for every value. All scores are zero
// when the MAD is zero.
func RobustZ(x []float64) []float64 {
	median, mad := MedianMAD(x)
	out := make([]float64, len(x))
	if mad == 0 {
		return out
	}
	for i, v := range x {
		out[i] = 0.6745 * (v - median) / mad
	}
	return out
}

// Pearson returns the correlation of x and y clamped to [-1, 1]. It returns 0
// when either input is constant or the lengths differ.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// Slope returns the least-squares slope and intercept of y against x.
func Slope(x, y []float64) (alpha, beta float64) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 0
	}
	alpha, beta = stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(beta) {
		return 0, 0
	}
	return alpha, beta
}

func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
