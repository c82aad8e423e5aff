package model

import (
	"math"

	"github.com/sjwhitworth/golearn/evaluation"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MSE is the mean squared error.
func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue))
}

// R2 is the coefficient of determination. It is 0 when yTrue is constant.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) < 2 || stat.Variance(yTrue, nil) == 0 {
		return 0
	}
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

// Confusion tabulates true classes against predicted classes in the golearn
// layout: reference class, then predicted class, then count.
func Confusion(yTrue, yPred []float64) evaluation.ConfusionMatrix {
	cm := evaluation.ConfusionMatrix{}
	for i := range yTrue {
		t, p := classKey(yTrue[i]), classKey(yPred[i])
		if cm[t] == nil {
			cm[t] = map[string]int{}
		}
		cm[t][p]++
	}
	return cm
}

// Accuracy is the share of exact matches.
func Accuracy(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	return defined(evaluation.GetAccuracy(Confusion(yTrue, yPred)))
}

// WeightedPRF returns precision, recall and F1 averaged over the classes of
// yTrue weighted by their support. Undefined per-class ratios count as 0.
func WeightedPRF(yTrue, yPred []float64) (prec, rec, f1 float64) {
	if len(yTrue) == 0 {
		return 0, 0, 0
	}
	cm := Confusion(yTrue, yPred)
	for class, row := range cm {
		support := 0
		for _, n := range row {
			support += n
		}
		w := float64(support) / float64(len(yTrue))
		prec += w * defined(evaluation.GetPrecision(class, cm))
		rec += w * defined(evaluation.GetRecall(class, cm))
		f1 += w * defined(evaluation.GetF1Score(class, cm))
	}
	return prec, rec, f1
}

// defined maps the NaN golearn returns for 0/0 ratios to 0.
func defined(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Inertia is the sum of squared distances from rows to their centroid.
func Inertia(X [][]float64, labels []int, centroids [][]float64) float64 {
	s := 0.0
	for i, row := range X {
		s += sqDist(row, centroids[labels[i]])
	}
	return s
}

// Silhouette is the mean silhouette coefficient over all rows. Rows in
// singleton clusters score 0; NaN is returned with fewer than two clusters.
func Silhouette(X [][]float64, labels []int) float64 {
	clusters := map[int][]int{}
	for i, l := range labels {
		clusters[l] = append(clusters[l], i)
	}
	if len(clusters) < 2 || len(clusters) >= len(X) {
		return math.NaN()
	}
	total := 0.0
	for i, row := range X {
		own := clusters[labels[i]]
		if len(own) == 1 {
			continue
		}
		a := 0.0
		for _, j := range own {
			if j != i {
				a += math.Sqrt(sqDist(row, X[j]))
			}
		}
		a /= float64(len(own) - 1)
		b := math.Inf(1)
		for l, members := range clusters {
			if l == labels[i] {
				continue
			}
			d := 0.0
			for _, j := range members {
				d += math.Sqrt(sqDist(row, X[j]))
			}
			b = math.Min(b, d/float64(len(members)))
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(len(X))
}
