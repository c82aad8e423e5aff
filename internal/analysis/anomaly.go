package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

// maxListedAnomalies caps the rows listed in a report; Total still counts all.
const maxListedAnomalies = 20

// AnomalyReport lists values whose robust z-score exceeds Threshold.
type AnomalyReport struct {
	Threshold float64        `json:"threshold"`
	Total     int            `json:"total"`
	Rows      int            `json:"rows"`
	ByColumn  map[string]int `json:"by_column,omitempty"`
	Items     []Anomaly      `json:"items,omitempty"`
}

// Anomaly is one flagged cell.
type Anomaly struct {
	Row    int     `json:"row"`
	Column string  `json:"column"`
	Value  float64 `json:"value"`
	Z      float64 `json:"z"`
}

// Rate returns the share of rows with at least one flagged value.
func (a *AnomalyReport) Rate(rows int) float64 {
	if rows == 0 {
		return 0
	}
	return float64(a.Rows) / float64(rows)
}

// DetectAnomalies flags numeric values with |robust z| > threshold.
func DetectAnomalies(ds *dataset.Dataset, threshold float64) *AnomalyReport {
	if threshold <= 0 {
		threshold = 3.5
	}
	return detectAnomalies(ds.OfKind(dataset.Numeric), threshold)
}

func detectAnomalies(numeric []*dataset.Column, thr float64) *AnomalyReport {
	rep := &AnomalyReport{Threshold: thr, ByColumn: map[string]int{}}
	flagged := map[int]bool{}
	var items []Anomaly
	for _, c := range numeric {
		var idx []int
		var vals []float64
		for i, v := range c.Floats {
			if !math.IsNaN(v) {
				idx = append(idx, i)
				vals = append(vals, v)
			}
		}
		if len(vals) < 3 {
			continue
		}
		for k, z := range stats.RobustZ(vals) {
			if math.Abs(z) <= thr {
				continue
			}
			items = append(items, Anomaly{Row: idx[k], Column: c.Name, Value: vals[k], Z: z})
			rep.ByColumn[c.Name]++
			flagged[idx[k]] = true
		}
	}
	rep.Total = len(items)
	rep.Rows = len(flagged)
	sort.SliceStable(items, func(i, j int) bool { return math.Abs(items[i].Z) > math.Abs(items[j].Z) })
	if len(items) > maxListedAnomalies {
		items = items[:maxListedAnomalies]
	}
	rep.Items = items
	return rep
}
