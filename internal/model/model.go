// Package model trains small regression, classification and clustering
// estimators on numeric feature matrices and reports evaluation metrics.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind groups estimators by learning task.
type Kind string

const (
	Regression     Kind = "regression"
	Classification Kind = "classification"
	Clustering     Kind = "clustering"
)

// ParseKind accepts the task names used on the command line.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Regression:
		return Regression, nil
	case Classification:
		return Classification, nil
	case Clustering:
		return Clustering, nil
	}
	return "", fmt.Errorf("unknown model type %q (want regression, classification or clustering)", s)
}

var (
	// ErrUnknownModel is returned when a kind/name pair has no constructor.
	ErrUnknownModel = errors.New("unknown model")
	// ErrNotFitted is returned when predicting before Fit.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrShape reports mismatched matrix dimensions.
	ErrShape = errors.New("dimension mismatch")
)

// Supervised is a regressor or classifier.
type Supervised interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Clusterer assigns rows to clusters without labels.
type Clusterer interface {
	Fit(X [][]float64) error
	Predict(X [][]float64) ([]int, error)
}

// Params carries the hyperparameters the constructors read.
type Params struct {
	Neighbors    int
	Clusters     int
	MaxIter      int
	LearningRate float64
	Epochs       int
	Seed         uint64
}

// DefaultParams mirrors the defaults of the configuration layer.
func DefaultParams() Params {
	return Params{Neighbors: 5, Clusters: 3, MaxIter: 300, LearningRate: 0.1, Epochs: 500, Seed: 42}
}

var supervised = map[Kind]map[string]func(Params) Supervised{
	Regression: {
		"linear_regression": func(Params) Supervised { return &LinearRegression{} },
	},
	Classification: {
		"logistic_regression": func(p Params) Supervised {
			return &LogisticRegression{LearningRate: p.LearningRate, Epochs: p.Epochs}
		},
		"knn": func(p Params) Supervised { return &KNN{K: p.Neighbors} },
	},
}

var clusterers = map[string]func(Params) Clusterer{
	"kmeans": func(p Params) Clusterer { return &KMeans{K: p.Clusters, MaxIter: p.MaxIter, Seed: p.Seed} },
}

// NewSupervised looks up a regression or classification estimator.
func NewSupervised(kind Kind, name string, p Params) (Supervised, error) {
	ctor, ok := supervised[kind][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s (available: %s)", ErrUnknownModel, kind, name, strings.Join(Names(kind), ", "))
	}
	return ctor(p), nil
}

// NewClusterer looks up a clustering estimator.
func NewClusterer(name string, p Params) (Clusterer, error) {
	ctor, ok := clusterers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s (available: %s)", ErrUnknownModel, Clustering, name, strings.Join(Names(Clustering), ", "))
	}
	return ctor(p), nil
}

// Names lists the estimators registered for kind, sorted.
func Names(kind Kind) []string {
	var out []string
	if kind == Clustering {
		for n := range clusterers {
			out = append(out, n)
		}
	} else {
		for n := range supervised[kind] {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultName returns the estimator used when none is named.
func DefaultName(kind Kind) string {
	switch kind {
	case Regression:
		return "linear_regression"
	case Classification:
		return "logistic_regression"
	default:
		return "kmeans"
	}
}

func checkXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: no rows", ErrShape)
	}
	if y != nil && len(y) != len(X) {
		return 0, fmt.Errorf("%w: %d rows but %d targets", ErrShape, len(X), len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), p)
		}
	}
	return p, nil
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
