package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrTooFewGroups is returned when the labels do not form at least two
// groups with more samples than groups.
var ErrTooFewGroups = errors.New("need at least two label groups")

// FScore is the one-way ANOVA result for a single feature.
type FScore struct {
	F float64
	P float64
}

// Groups maps each distinct label to the row indices carrying it, keeping
// first-seen order.
type Groups struct {
	Keys    []string
	Members [][]int
}

// GroupBy partitions row indices by label value.
func GroupBy(labels []string) Groups {
	idx := map[string]int{}
	var g Groups
	for i, l := range labels {
		k, ok := idx[l]
		if !ok {
			k = len(g.Keys)
			idx[l] = k
			g.Keys = append(g.Keys, l)
			g.Members = append(g.Members, nil)
		}
		g.Members[k] = append(g.Members[k], i)
	}
	return g
}

// FOneWay computes the ANOVA F statistic of x across the label groups, the
// univariate score used for classification feature selection. F is +Inf when
// the groups are perfectly separated (zero within-group variance) and NaN when
// x is constant.
func FOneWay(x []float64, g Groups) (FScore, error) {
	k := len(g.Keys)
	n := len(x)
	if k < 2 || n <= k {
		return FScore{}, ErrTooFewGroups
	}
	grand := 0.0
	for _, v := range x {
		grand += v
	}
	grand /= float64(n)

	var ssb, ssw float64
	for _, rows := range g.Members {
		if len(rows) == 0 {
			continue
		}
		m := 0.0
		for _, r := range rows {
			m += x[r]
		}
		m /= float64(len(rows))
		d := m - grand
		ssb += float64(len(rows)) * d * d
		for _, r := range rows {
			e := x[r] - m
			ssw += e * e
		}
	}
	dfb := float64(k - 1)
	dfw := float64(n - k)
	msb := ssb / dfb
	msw := ssw / dfw

	switch {
	case msw == 0 && msb == 0:
		return FScore{F: math.NaN(), P: math.NaN()}, nil
	case msw == 0:
		return FScore{F: math.Inf(1), P: 0}, nil
	}
	f := msb / msw
	dist := distuv.F{D1: dfb, D2: dfw}
	return FScore{F: f, P: 1 - dist.CDF(f)}, nil
}
