package insight

import (
	"math"
	"sort"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/preprocess"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

// maxClassLabels bounds the distinct values a numeric label may have to be
// scored as classes rather than as a continuous target.
const maxClassLabels = 20

const (
	MethodANOVA   = "anova_f"
	MethodPearson = "abs_pearson"
)

// Importance scores one feature against the label.
type Importance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
	Method  string  `json:"method"`
}

// FeatureImportance ranks feats against label, highest first. Categorical or
// low-cardinality integer labels use the ANOVA F statistic; continuous labels
// use |Pearson r|. Only rows complete in the feature and label are used.
func FeatureImportance(ds *dataset.Dataset, feats []*dataset.Column, label *dataset.Column) ([]Importance, error) {
	var out []Importance
	if isClassLabel(label) {
		sub, lab := completeSubset(ds.Name, feats, label)
		scores, err := preprocess.ScoreFeatures(sub, lab)
		if err != nil {
			return nil, err
		}
		for _, s := range scores {
			out = append(out, Importance{Feature: s.Column, Score: s.F, Method: MethodANOVA})
		}
	} else {
		for _, c := range feats {
			var x, y []float64
			for i, v := range c.Floats {
				if math.IsNaN(v) || label.IsMissing(i) {
					continue
				}
				x = append(x, v)
				y = append(y, label.Floats[i])
			}
			out = append(out, Importance{Feature: c.Name, Score: math.Abs(stats.Pearson(x, y)), Method: MethodPearson})
		}
	}
	// Undefined scores (constant features) sort last and report 0; perfect
	// separation reports MaxFloat64 since JSON has no +Inf.
	for i := range out {
		if math.IsNaN(out[i].Score) {
			out[i].Score = -1
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		if out[i].Score < 0 {
			out[i].Score = 0
		}
		if math.IsInf(out[i].Score, 1) {
			out[i].Score = math.MaxFloat64
		}
	}
	return out, nil
}

func isClassLabel(label *dataset.Column) bool {
	if label.Kind != dataset.Numeric {
		return true
	}
	seen := map[float64]bool{}
	for _, v := range label.Floats {
		if math.IsNaN(v) {
			continue
		}
		if v != math.Trunc(v) {
			return false
		}
		seen[v] = true
		if len(seen) > maxClassLabels {
			return false
		}
	}
	return true
}

// completeSubset keeps the rows where every feature and the label are present.
func completeSubset(name string, feats []*dataset.Column, label *dataset.Column) (*dataset.Dataset, *dataset.Column) {
	var keep []int
	for i := 0; i < label.Len(); i++ {
		if label.IsMissing(i) {
			continue
		}
		ok := true
		for _, c := range feats {
			if math.IsNaN(c.Floats[i]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	sub := &dataset.Dataset{Name: name}
	for _, c := range feats {
		vals := make([]float64, len(keep))
		for k, i := range keep {
			vals[k] = c.Floats[i]
		}
		sub.Columns = append(sub.Columns, dataset.NewNumeric(c.Name, vals))
	}
	lab := &dataset.Column{Name: label.Name, Kind: label.Kind}
	for _, i := range keep {
		if label.Kind == dataset.Numeric {
			lab.Floats = append(lab.Floats, label.Floats[i])
		} else {
			lab.Strings = append(lab.Strings, label.Strings[i])
		}
	}
	if lab.Kind == dataset.Numeric && lab.Floats == nil {
		lab.Floats = []float64{}
	}
	if lab.Kind != dataset.Numeric && lab.Strings == nil {
		lab.Strings = []string{}
	}
	return sub, lab
}
