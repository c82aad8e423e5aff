package insight

import (
	"errors"
	"math"

	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

// AnomalyResult flags rows whose largest robust z-score exceeds Threshold.
// Scores align with the complete rows; Flagged holds dataset row indices.
type AnomalyResult struct {
	Threshold     float64   `json:"threshold"`
	Flagged       []int     `json:"flagged_rows"`
	Contamination float64   `json:"contamination"`
	Scores        []float64 `json:"scores"`
}

// Anomalies scores every row by its largest |robust z| across columns.
// rows maps the rows of X back to dataset indices.
func Anomalies(X [][]float64, rows []int, threshold float64) (*AnomalyResult, error) {
	if len(X) == 0 {
		return nil, errors.New("anomaly: no complete rows")
	}
	if threshold <= 0 {
		threshold = 3.5
	}
	n, p := len(X), len(X[0])
	scores := make([]float64, n)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		for i, z := range stats.RobustZ(col) {
			scores[i] = math.Max(scores[i], math.Abs(z))
		}
	}
	res := &AnomalyResult{Threshold: threshold, Scores: scores, Flagged: []int{}}
	for i, s := range scores {
		if s > threshold {
			res.Flagged = append(res.Flagged, rows[i])
		}
	}
	res.Contamination = float64(len(res.Flagged)) / float64(n)
	return res, nil
}
