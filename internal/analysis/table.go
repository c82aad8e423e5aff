// Package analysis computes descriptive reports over a dataset: per-column
// statistics, correlations, group-by summaries, trends over time and robust
// outlier detection.
package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

// Options controls which sections Analyze computes.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Stats computes per-column summaries.
	Stats bool
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup computes correlations per group key.
	CorrPerGroup bool
	// Outliers counts robust z-scores (MAD) above OutlierThreshold per column
	// and lists the flagged rows.
	Outliers         bool
	OutlierThreshold float64
	// Trend fits a slope per numeric column against TimeColumn, or against the
	// first date/timestamp column when TimeColumn is empty. Without a time
	// column, histograms are computed instead.
	Trend      bool
	TimeColumn string
	Bins       int
	// ConfidenceLevel sets the level of the mean confidence interval in the
	// per-column summaries. Zero disables the interval.
	ConfidenceLevel float64
}

// DefaultOptions enables every section.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		Stats:            true,
		Correlations:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
		Trend:            true,
		Bins:             10,
		ConfidenceLevel:  0.95,
	}
}

// OptionsFor maps an analysis type (stats, corr, trend, anomaly, all) to options.
func OptionsFor(kind string) (Options, error) {
	opt := DefaultOptions()
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "all":
		return opt, nil
	case "stats", "basic":
		opt.Correlations, opt.Outliers, opt.Trend = false, false, false
	case "corr", "correlation":
		opt.Stats, opt.Outliers, opt.Trend = false, false, false
	case "trend":
		opt.Stats, opt.Correlations, opt.Outliers = false, false, false
	case "anomaly", "outliers":
		opt.Correlations, opt.Trend = false, false
	default:
		return opt, fmt.Errorf("unknown analysis type %q (want stats, corr, trend, anomaly or all)", kind)
	}
	return opt, nil
}

// Report is a markdown-friendly analysis of a tabular dataset.
type Report struct {
	Name       string          `json:"name"`
	Rows       int             `json:"rows"`
	Header     []string        `json:"header"`
	Cols       []ColumnSummary `json:"columns,omitempty"`
	Samples    [][]string      `json:"samples,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Groups     []GroupResult   `json:"groups,omitempty"`
	Corr       *CorrMatrix     `json:"correlations,omitempty"`
	Trends     []Trend         `json:"trends,omitempty"`
	TimeColumn string          `json:"time_column,omitempty"`
	Histograms []Histogram     `json:"histograms,omitempty"`
	Anomalies  *AnomalyReport  `json:"anomalies,omitempty"`
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Unit    string `json:"unit,omitempty"`
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique,omitempty"`
	// Numeric stats
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
	Q1     float64 `json:"q1,omitempty"`
	Median float64 `json:"median,omitempty"`
	Q3     float64 `json:"q3,omitempty"`
	// Mean confidence interval (Student's t)
	CILevel float64 `json:"ci_level,omitempty"`
	CILow   float64 `json:"ci_low,omitempty"`
	CIHigh  float64 `json:"ci_high,omitempty"`
	// Outliers (robust Z via MAD)
	OutliersCount    int     `json:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty"`
	// Categorical top values
	TopValues []CategoryCount `json:"top_values,omitempty"`
	// Datetime range
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key       string                `json:"key"`
	Size      int                   `json:"size"`
	Metrics   map[string]NumSummary `json:"metrics"`
	CorrPairs []PairCorr            `json:"corr_pairs,omitempty"`
}

type NumSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// TopPairs returns up to n column pairs ordered by |r|.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sortPairs(pairs)
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Analyze computes a report over ds. ds is not modified.
func Analyze(ds *dataset.Dataset, opt Options) (*Report, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	rep := &Report{Name: ds.Name, Rows: ds.Rows(), Header: ds.Names()}
	if ds.Cols() == 0 {
		return rep, nil
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < ds.Rows() && i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, ds.Row(i))
	}
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}

	numeric := ds.OfKind(dataset.Numeric)
	if opt.Stats || opt.Outliers {
		for _, c := range ds.Columns {
			rep.Cols = append(rep.Cols, summarize(c, opt.Outliers, thr, opt.ConfidenceLevel))
		}
	}
	if len(opt.GroupBy) > 0 {
		groups, warn := groupBy(ds, numeric, opt.GroupBy, opt.CorrPerGroup)
		rep.Groups = groups
		rep.Warnings = append(rep.Warnings, warn...)
	}
	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = correlate(numeric, nil)
	}
	if opt.Trend {
		tc := findTimeColumn(ds, opt.TimeColumn)
		if tc != nil {
			rep.TimeColumn = tc.Name
			rep.Trends = trends(tc, numeric)
		} else {
			if opt.TimeColumn != "" {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("time column %q not found; showing distributions", opt.TimeColumn))
			}
			rep.Histograms = histograms(numeric, opt.Bins)
		}
	}
	if opt.Outliers {
		rep.Anomalies = detectAnomalies(numeric, thr)
	}
	return rep, nil
}

func summarize(c *dataset.Column, outliers bool, thr, level float64) ColumnSummary {
	name, unit := splitUnits(c.Name)
	s := ColumnSummary{Name: name, Kind: c.Kind.String(), Unit: unit, Missing: c.MissingCount()}
	s.NonNull = c.Len() - s.Missing
	switch c.Kind {
	case dataset.Numeric:
		vals := c.Present()
		if len(vals) == 0 {
			return s
		}
		s.Min, s.Max, _ = stats.MinMax(vals)
		s.Mean, _ = stats.Mean(vals)
		s.Std = stats.SampleStd(vals)
		if q, err := stats.ComputeQuartiles(vals); err == nil {
			s.Q1, s.Median, s.Q3 = q.Q1, q.Median, q.Q3
		}
		if level > 0 {
			if lo, hi, err := stats.MeanCI(vals, level); err == nil {
				s.CILevel, s.CILow, s.CIHigh = level, lo, hi
			}
		}
		if outliers && len(vals) >= 8 {
			s.OutlierThreshold = thr
			for _, z := range stats.RobustZ(vals) {
				az := math.Abs(z)
				if az > thr {
					s.OutliersCount++
				}
				if az > s.OutliersMaxAbsZ {
					s.OutliersMaxAbsZ = az
				}
			}
		}
	case dataset.Categorical:
		counts := map[string]int{}
		for _, v := range c.Strings {
			if v != "" {
				counts[v]++
			}
		}
		tops := make([]CategoryCount, 0, len(counts))
		for k, v := range counts {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > 8 {
			tops = tops[:8]
		}
		s.TopValues = tops
		s.Unique = len(counts)
	case dataset.Datetime:
		first, last := "", ""
		var lo, hi int64
		for _, v := range c.Strings {
			t, ok := dataset.ParseTime(v)
			if !ok {
				continue
			}
			u := t.Unix()
			if first == "" || u < lo {
				first, lo = v, u
			}
			if last == "" || u > hi {
				last, hi = v, u
			}
		}
		s.First, s.Last = first, last
	}
	return s
}

// correlate builds the Pearson matrix over rows where both columns are present.
// rows restricts the computation to a subset of row indices when non-nil.
func correlate(cols []*dataset.Column, rows []int) *CorrMatrix {
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			x, y := pairwise(cols[a], cols[b], rows)
			r := stats.Pearson(x, y)
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

func pairwise(a, b *dataset.Column, rows []int) (x, y []float64) {
	visit := func(i int) {
		va, vb := a.Floats[i], b.Floats[i]
		if math.IsNaN(va) || math.IsNaN(vb) {
			return
		}
		x = append(x, va)
		y = append(y, vb)
	}
	if rows == nil {
		for i := range a.Floats {
			visit(i)
		}
		return x, y
	}
	for _, i := range rows {
		visit(i)
	}
	return x, y
}

func groupBy(ds *dataset.Dataset, numeric []*dataset.Column, keys []string, corr bool) ([]GroupResult, []string) {
	var keyCols []*dataset.Column
	var warnings []string
	for _, k := range keys {
		c := findColumnFold(ds, k)
		if c == nil {
			warnings = append(warnings, fmt.Sprintf("group-by column %q not found", k))
			continue
		}
		keyCols = append(keyCols, c)
	}
	if len(keyCols) == 0 {
		return nil, warnings
	}
	labels := make([]string, ds.Rows())
	for i := range labels {
		parts := make([]string, len(keyCols))
		for j, c := range keyCols {
			parts[j] = fmt.Sprintf("%s=%s", c.Name, safeVal(c.Value(i)))
		}
		labels[i] = strings.Join(parts, " | ")
	}
	g := stats.GroupBy(labels)
	out := make([]GroupResult, 0, len(g.Keys))
	for gi, key := range g.Keys {
		rows := g.Members[gi]
		gr := GroupResult{Key: key, Size: len(rows), Metrics: map[string]NumSummary{}}
		for _, c := range numeric {
			if containsColumn(keyCols, c) {
				continue
			}
			var ns NumSummary
			sum := 0.0
			for _, r := range rows {
				v := c.Floats[r]
				if math.IsNaN(v) {
					continue
				}
				if ns.Count == 0 || v < ns.Min {
					ns.Min = v
				}
				if ns.Count == 0 || v > ns.Max {
					ns.Max = v
				}
				sum += v
				ns.Count++
			}
			if ns.Count > 0 {
				ns.Mean = sum / float64(ns.Count)
				gr.Metrics[c.Name] = ns
			}
		}
		if corr && len(numeric) >= 2 {
			m := correlate(numeric, rows)
			pairs := m.TopPairs(10)
			kept := pairs[:0]
			for _, p := range pairs {
				if p.R != 0 {
					kept = append(kept, p)
				}
			}
			gr.CorrPairs = kept
		}
		out = append(out, gr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		warnings = append(warnings, fmt.Sprintf("showing 20 of %d groups", len(out)))
		out = out[:20]
	}
	return out, warnings
}

func findColumnFold(ds *dataset.Dataset, name string) *dataset.Column {
	name = strings.TrimSpace(name)
	for _, c := range ds.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func containsColumn(cols []*dataset.Column, c *dataset.Column) bool {
	for _, k := range cols {
		if k == c {
			return true
		}
	}
	return false
}

func sortPairs(pairs []PairCorr) {
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Alpha (%)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Mass [mg/L]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|Brix|%|ppm|ppb)$`), 2},
}

// splitUnits separates a unit suffix such as "(g/L)" or "[°C]" from a column name.
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
