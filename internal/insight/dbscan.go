package insight

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sjwhitworth/golearn/clustering"
	"github.com/sjwhitworth/golearn/metrics/pairwise"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

// Noise labels points that belong to no cluster.
const Noise = -1

// ClusterResult holds DBSCAN assignments for the complete rows.
type ClusterResult struct {
	Eps        float64 `json:"eps"`
	MinSamples int     `json:"min_samples"`
	Clusters   int     `json:"clusters"`
	Noise      int     `json:"noise"`
	Sizes      []int   `json:"sizes"`
	Labels     []int   `json:"labels"`
}

// DBSCAN groups points that have at least minSamples neighbours (counting
// themselves) within eps, using golearn's implementation. Cluster ids are
// renumbered from 0 in order of each cluster's first row.
func DBSCAN(X [][]float64, eps float64, minSamples int) (*ClusterResult, error) {
	if len(X) == 0 {
		return nil, errors.New("dbscan: no complete rows")
	}
	if eps <= 0 {
		eps = 0.5
	}
	if minSamples <= 0 {
		minSamples = 5
	}
	names := make([]string, len(X[0]))
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j)
	}
	g := dataset.NewGrid(names, "")
	inst, err := g.Instances(X, nil)
	if err != nil {
		return nil, fmt.Errorf("dbscan: %w", err)
	}
	cm, err := clustering.DBSCAN(inst, clustering.DBSCANParameters{
		ClusterParameters: clustering.ClusterParameters{
			Attributes: g.Attributes(),
			Metric:     pairwise.NewEuclidean(),
		},
		Eps:      eps,
		MinCount: minSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("dbscan: %w", err)
	}

	labels := make([]int, len(X))
	for i := range labels {
		labels[i] = Noise
	}
	type group struct{ first, id int }
	groups := make([]group, 0, len(cm))
	for id, rows := range cm {
		if len(rows) == 0 {
			continue
		}
		first := rows[0]
		for _, r := range rows {
			first = min(first, r)
		}
		groups = append(groups, group{first: first, id: id})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].first < groups[j].first })

	res := &ClusterResult{Eps: eps, MinSamples: minSamples, Clusters: len(groups), Sizes: make([]int, len(groups))}
	for c, gr := range groups {
		for _, r := range cm[gr.id] {
			labels[r] = c
		}
	}
	for _, l := range labels {
		if l == Noise {
			res.Noise++
		} else {
			res.Sizes[l]++
		}
	}
	res.Labels = labels
	return res, nil
}
