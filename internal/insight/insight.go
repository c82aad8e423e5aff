// Package insight derives exploratory views of a dataset: a principal
// component projection, density clusters, anomalous rows and per-feature
// importance against a label.
package insight

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
)

// Kind names an insight.
type Kind string

const (
	KindPCA     Kind = "pca"
	KindCluster Kind = "cluster"
	KindAnomaly Kind = "anomaly"
	KindFeature Kind = "feature"
)

// AllKinds lists every insight in report order.
var AllKinds = []Kind{KindPCA, KindCluster, KindAnomaly, KindFeature}

// ParseKinds accepts a comma separated list or "all".
func ParseKinds(s string) ([]Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return AllKinds, nil
	}
	var out []Kind
	for _, part := range strings.Split(s, ",") {
		k := Kind(strings.TrimSpace(part))
		switch k {
		case KindPCA, KindCluster, KindAnomaly, KindFeature:
			out = append(out, k)
		default:
			return nil, fmt.Errorf("unknown insight type %q (want pca, cluster, anomaly, feature or all)", part)
		}
	}
	return out, nil
}

// Options tunes the insight algorithms.
type Options struct {
	Components int
	Eps        float64
	MinSamples int
	Threshold  float64
	Label      string
}

// DefaultOptions returns 2 components, DBSCAN eps 0.5 with 5 samples and a
// robust z threshold of 3.5.
func DefaultOptions() Options {
	return Options{Components: 2, Eps: 0.5, MinSamples: 5, Threshold: 3.5, Label: "target"}
}

// Insights collects the requested results. Row indices refer to ds.
type Insights struct {
	ID         string         `json:"id"`
	Dataset    string         `json:"dataset"`
	Rows       int            `json:"rows"`
	Features   []string       `json:"features"`
	UsedRows   []int          `json:"-"`
	PCA        *PCAResult     `json:"pca,omitempty"`
	Clusters   *ClusterResult `json:"clusters,omitempty"`
	Anomalies  *AnomalyResult `json:"anomalies,omitempty"`
	Importance []Importance   `json:"feature_importance,omitempty"`
	Notes      []string       `json:"notes,omitempty"`
}

// Generate computes the requested insights over the numeric columns of ds,
// excluding opt.Label. Rows with a missing feature are skipped.
func Generate(ds *dataset.Dataset, kinds []Kind, opt Options) (*Insights, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	out := &Insights{ID: uuid.NewString(), Dataset: ds.Name, Rows: ds.Rows()}
	feats, label := features(ds, opt.Label)
	for _, c := range feats {
		out.Features = append(out.Features, c.Name)
	}
	X, rows := completeRows(feats)
	out.UsedRows = rows
	if skipped := ds.Rows() - len(rows); skipped > 0 && len(feats) > 0 {
		out.Notes = append(out.Notes, fmt.Sprintf("%d rows with missing values skipped", skipped))
	}
	log := logging.With().Str("insight_id", out.ID).Logger()

	for _, k := range kinds {
		var err error
		switch k {
		case KindPCA:
			out.PCA, err = PCA(X, out.Features, opt.Components)
		case KindCluster:
			out.Clusters, err = DBSCAN(X, opt.Eps, opt.MinSamples)
		case KindAnomaly:
			out.Anomalies, err = Anomalies(X, rows, opt.Threshold)
		case KindFeature:
			if label == nil {
				out.Notes = append(out.Notes, fmt.Sprintf("feature importance skipped: label %q not found", opt.Label))
				continue
			}
			out.Importance, err = FeatureImportance(ds, feats, label)
		}
		if err != nil {
			log.Warn().Err(err).Str("kind", string(k)).Msg("insight failed")
			out.Notes = append(out.Notes, fmt.Sprintf("%s: %v", k, err))
		}
	}
	return out, nil
}

func features(ds *dataset.Dataset, label string) ([]*dataset.Column, *dataset.Column) {
	var lab *dataset.Column
	var feats []*dataset.Column
	for _, c := range ds.Columns {
		if label != "" && c.Name == label {
			lab = c
			continue
		}
		if c.Kind == dataset.Numeric {
			feats = append(feats, c)
		}
	}
	return feats, lab
}

// completeRows returns the rows without NaN as a row-major matrix plus their
// original indices.
func completeRows(cols []*dataset.Column) ([][]float64, []int) {
	if len(cols) == 0 {
		return nil, nil
	}
	var X [][]float64
	var idx []int
	for i := 0; i < cols[0].Len(); i++ {
		row := make([]float64, len(cols))
		ok := true
		for j, c := range cols {
			row[j] = c.Floats[i]
			if math.IsNaN(row[j]) {
				ok = false
				break
			}
		}
		if ok {
			X = append(X, row)
			idx = append(idx, i)
		}
	}
	return X, idx
}
