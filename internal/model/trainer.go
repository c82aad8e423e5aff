package model

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

// Options selects the estimator and the evaluation protocol.
type Options struct {
	Kind     Kind
	Name     string
	Target   string
	TestSize float64
	Params   Params
}

// Scaler is the per-feature standardization fitted on the training rows.
type Scaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Result is a trained model with its evaluation. It serializes to JSON.
type Result struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"kind"`
	Name        string             `json:"name"`
	Target      string             `json:"target,omitempty"`
	Features    []string           `json:"features"`
	Classes     []string           `json:"classes,omitempty"`
	TrainRows   int                `json:"train_rows"`
	TestRows    int                `json:"test_rows,omitempty"`
	DroppedRows int                `json:"dropped_rows,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
	Scalers     []Scaler           `json:"scalers"`
	Clusters    []int              `json:"cluster_sizes,omitempty"`
	Model       any                `json:"model"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Train fits the named estimator on the numeric columns of ds. Supervised
// kinds hold out TestSize of the rows for evaluation; clustering is scored
// on all rows. Rows with a missing feature or target are dropped.
func Train(ds *dataset.Dataset, opt Options) (*Result, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if opt.Name == "" {
		opt.Name = DefaultName(opt.Kind)
	}
	if opt.TestSize == 0 {
		opt.TestSize = 0.2
	}
	res := &Result{
		ID:        uuid.NewString(),
		Kind:      opt.Kind,
		Name:      opt.Name,
		Metrics:   map[string]float64{},
		CreatedAt: time.Now().UTC(),
	}

	var target *dataset.Column
	if opt.Target != "" {
		target = ds.Column(opt.Target)
	}
	if opt.Kind != Clustering {
		if target == nil {
			return nil, fmt.Errorf("target column %q not found", opt.Target)
		}
		res.Target = target.Name
	}
	for _, c := range ds.OfKind(dataset.Numeric) {
		if c != target {
			res.Features = append(res.Features, c.Name)
		}
	}
	if len(res.Features) == 0 {
		return nil, fmt.Errorf("no numeric feature columns")
	}

	X, y, classes, dropped, err := design(ds, res.Features, target, opt.Kind)
	if err != nil {
		return nil, err
	}
	res.Classes, res.DroppedRows = classes, dropped

	log := logging.With().Str("model_id", res.ID).Str("model", string(opt.Kind)+"/"+opt.Name).Logger()
	log.Debug().Int("rows", len(X)).Int("features", len(res.Features)).Int("dropped", dropped).Msg("training")

	if opt.Kind == Clustering {
		if err := res.cluster(X, opt); err != nil {
			return nil, err
		}
		return res, nil
	}

	est, err := NewSupervised(opt.Kind, opt.Name, opt.Params)
	if err != nil {
		return nil, err
	}
	trainIdx, testIdx, err := Split(len(X), opt.TestSize, opt.Params.Seed)
	if err != nil {
		return nil, err
	}
	xTrain, xTest := take(X, trainIdx), take(X, testIdx)
	yTrain, yTest := takeVec(y, trainIdx), takeVec(y, testIdx)
	res.Scalers = fitScalers(xTrain)
	xTrain, xTest = applyScalers(xTrain, res.Scalers), applyScalers(xTest, res.Scalers)

	if err := est.Fit(xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("fit %s: %w", opt.Name, err)
	}
	pred, err := est.Predict(xTest)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", opt.Name, err)
	}
	res.TrainRows, res.TestRows = len(xTrain), len(xTest)
	res.Model = est
	switch opt.Kind {
	case Regression:
		res.Metrics["mse"] = MSE(yTest, pred)
		res.Metrics["r2"] = R2(yTest, pred)
	case Classification:
		p, r, f := WeightedPRF(yTest, pred)
		res.Metrics["accuracy"] = Accuracy(yTest, pred)
		res.Metrics["precision"] = p
		res.Metrics["recall"] = r
		res.Metrics["f1"] = f
	}
	log.Debug().Interface("metrics", res.Metrics).Msg("trained")
	return res, nil
}

func (res *Result) cluster(X [][]float64, opt Options) error {
	est, err := NewClusterer(opt.Name, opt.Params)
	if err != nil {
		return err
	}
	res.Scalers = fitScalers(X)
	X = applyScalers(X, res.Scalers)
	if err := est.Fit(X); err != nil {
		return fmt.Errorf("fit %s: %w", opt.Name, err)
	}
	labels, err := est.Predict(X)
	if err != nil {
		return fmt.Errorf("predict %s: %w", opt.Name, err)
	}
	res.TrainRows = len(X)
	res.Model = est
	sizes := map[int]int{}
	maxLabel := 0
	for _, l := range labels {
		sizes[l]++
		if l > maxLabel {
			maxLabel = l
		}
	}
	res.Clusters = make([]int, maxLabel+1)
	for l, n := range sizes {
		res.Clusters[l] = n
	}
	if s := Silhouette(X, labels); !math.IsNaN(s) {
		res.Metrics["silhouette"] = s
	}
	if km, ok := est.(*KMeans); ok {
		res.Metrics["inertia"] = km.Inertia
	}
	return nil
}

// design builds the feature matrix and target vector over complete rows.
// Categorical targets are encoded as class indices in first-seen order.
func design(ds *dataset.Dataset, features []string, target *dataset.Column, kind Kind) (X [][]float64, y []float64, classes []string, dropped int, err error) {
	all, err := ds.Matrix(features)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	codes := map[string]int{}
	if target != nil && kind == Regression && target.Kind != dataset.Numeric {
		return nil, nil, nil, 0, fmt.Errorf("regression target %q is %s, want numeric", target.Name, target.Kind)
	}
rows:
	for i, row := range all {
		for _, v := range row {
			if math.IsNaN(v) {
				dropped++
				continue rows
			}
		}
		if kind != Clustering {
			if target.IsMissing(i) {
				dropped++
				continue
			}
			if target.Kind == dataset.Numeric {
				y = append(y, target.Floats[i])
			} else {
				v := target.Strings[i]
				code, ok := codes[v]
				if !ok {
					code = len(classes)
					codes[v] = code
					classes = append(classes, v)
				}
				y = append(y, float64(code))
			}
		}
		X = append(X, row)
	}
	if len(X) == 0 {
		return nil, nil, nil, dropped, fmt.Errorf("no complete rows to train on")
	}
	return X, y, classes, dropped, nil
}

func fitScalers(X [][]float64) []Scaler {
	p := len(X[0])
	out := make([]Scaler, p)
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		m, s, _ := stats.MeanStd(col)
		if s == 0 {
			s = 1
		}
		out[j] = Scaler{Mean: m, Std: s}
	}
	return out
}

func applyScalers(X [][]float64, sc []Scaler) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - sc[j].Mean) / sc[j].Std
		}
		out[i] = r
	}
	return out
}

// Save writes the result to dir/<kind>_<name>.json and returns the path.
func (res *Result) Save(dir string) (string, error) {
	path := filepath.Join(utils.ExpandHome(dir), fmt.Sprintf("%s_%s.json", res.Kind, res.Name))
	if err := utils.WriteJSONFile(path, res); err != nil {
		return "", fmt.Errorf("save model: %w", err)
	}
	return path, nil
}
