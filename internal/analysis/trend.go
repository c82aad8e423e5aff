package analysis

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

// Trend is the least-squares direction of a numeric column over time.
// Slope is expressed per day for datetime axes and per unit for numeric axes.
type Trend struct {
	Column    string  `json:"column"`
	Points    int     `json:"points"`
	Slope     float64 `json:"slope"`
	First     float64 `json:"first"`
	Last      float64 `json:"last"`
	Direction string  `json:"direction"`
}

// Histogram holds equal-width bin counts for a numeric column.
type Histogram struct {
	Column   string    `json:"column"`
	Dividers []float64 `json:"dividers"`
	Counts   []float64 `json:"counts"`
}

func findTimeColumn(ds *dataset.Dataset, name string) *dataset.Column {
	if name != "" {
		c := findColumnFold(ds, name)
		if c == nil || c.Kind == dataset.Categorical {
			return nil
		}
		return c
	}
	for _, c := range ds.Columns {
		switch strings.ToLower(strings.TrimSpace(c.Name)) {
		case "date", "timestamp", "time":
			if c.Kind != dataset.Categorical {
				return c
			}
		}
	}
	if cols := ds.OfKind(dataset.Datetime); len(cols) > 0 {
		return cols[0]
	}
	return nil
}

// timeAxis returns (row, x) pairs in time order, skipping unparseable rows.
func timeAxis(tc *dataset.Column) (rows []int, xs []float64) {
	type point struct {
		row int
		x   float64
	}
	var pts []point
	for i := 0; i < tc.Len(); i++ {
		if tc.IsMissing(i) {
			continue
		}
		if tc.Kind == dataset.Numeric {
			pts = append(pts, point{i, tc.Floats[i]})
			continue
		}
		t, ok := dataset.ParseTime(tc.Strings[i])
		if !ok {
			continue
		}
		pts = append(pts, point{i, float64(t.Unix()) / 86400})
	}
	sort.SliceStable(pts, func(a, b int) bool { return pts[a].x < pts[b].x })
	for _, p := range pts {
		rows = append(rows, p.row)
		xs = append(xs, p.x)
	}
	return rows, xs
}

func trends(tc *dataset.Column, numeric []*dataset.Column) []Trend {
	rows, axis := timeAxis(tc)
	var out []Trend
	for _, c := range numeric {
		if c == tc {
			continue
		}
		var x, y []float64
		for k, r := range rows {
			v := c.Floats[r]
			if math.IsNaN(v) {
				continue
			}
			x = append(x, axis[k])
			y = append(y, v)
		}
		if len(y) < 2 {
			continue
		}
		_, beta := stats.Slope(x, y)
		out = append(out, Trend{
			Column:    c.Name,
			Points:    len(y),
			Slope:     beta,
			First:     y[0],
			Last:      y[len(y)-1],
			Direction: direction(beta),
		})
	}
	return out
}

func direction(slope float64) string {
	switch {
	case slope > 0:
		return "increasing"
	case slope < 0:
		return "decreasing"
	default:
		return "flat"
	}
}

func histograms(numeric []*dataset.Column, bins int) []Histogram {
	if bins <= 0 {
		bins = 10
	}
	var out []Histogram
	for _, c := range numeric {
		vals := c.Present()
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		lo, hi := vals[0], vals[len(vals)-1]
		if lo == hi {
			out = append(out, Histogram{Column: c.Name, Dividers: []float64{lo, hi}, Counts: []float64{float64(len(vals))}})
			continue
		}
		// stat.Histogram treats the last divider as exclusive.
		dividers := make([]float64, bins+1)
		floats.Span(dividers, lo, math.Nextafter(hi, math.Inf(1)))
		counts := stat.Histogram(nil, dividers, vals, nil)
		out = append(out, Histogram{Column: c.Name, Dividers: dividers, Counts: counts})
	}
	return out
}
