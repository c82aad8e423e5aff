package preprocess

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

// Step names one stage of the pipeline.
type Step string

const (
	StepImpute Step = "impute"
	StepClip   Step = "clip"
	StepScale  Step = "scale"
	StepSelect Step = "select"
)

// Every step is a fit over the current batch followed by an apply. Nothing is
// kept between calls.

// Bounds is the clipping interval computed for one column.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Scale is the standard-score transform computed for one column.
type Scale struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FeatureScore is the ANOVA result for one candidate feature.
type FeatureScore struct {
	Column string  `json:"column"`
	F      float64 `json:"f"`
	P      float64 `json:"p"`
	Kept   bool    `json:"kept"`
}

// StepReport summarizes what a step did.
type StepReport struct {
	Step    Step               `json:"step"`
	Columns []string           `json:"columns,omitempty"`
	Changed int                `json:"changed"`
	Skipped bool               `json:"skipped,omitempty"`
	Note    string             `json:"note,omitempty"`
	Fills   map[string]float64 `json:"fills,omitempty"`
	Bounds  map[string]Bounds  `json:"bounds,omitempty"`
	Scales  map[string]Scale   `json:"scales,omitempty"`
	Scores  []FeatureScore     `json:"scores,omitempty"`
	Dropped []string           `json:"dropped,omitempty"`
}

// FitMean returns the mean of the non-missing entries of a numeric column.
func FitMean(c *dataset.Column) (float64, error) {
	for _, v := range c.Floats {
		if math.IsInf(v, 0) {
			return 0, ErrNonFinite
		}
	}
	m, err := stats.Mean(c.Floats)
	if errors.Is(err, stats.ErrEmpty) {
		return 0, ErrAllMissing
	}
	return m, err
}

// FitBounds returns [Q1 - k*IQR, Q3 + k*IQR] for a numeric column.
func FitBounds(c *dataset.Column, k float64) (Bounds, error) {
	q, err := stats.ComputeQuartiles(c.Floats)
	if err != nil {
		return Bounds{}, err
	}
	lo, hi := q.Bounds(k)
	return Bounds{Lower: lo, Upper: hi}, nil
}

// FitScale returns the mean and population standard deviation of a numeric
// column. A zero standard deviation is reported as is; ApplyScale maps such a
// column to zeros.
func FitScale(c *dataset.Column) (Scale, error) {
	m, s, err := stats.MeanStd(c.Floats)
	if err != nil {
		return Scale{}, err
	}
	if math.IsNaN(m) || math.IsNaN(s) {
		return Scale{}, ErrNonFinite
	}
	return Scale{Mean: m, Std: s}, nil
}

// ApplyScale replaces every value with (v - mean) / std in place.
func ApplyScale(c *dataset.Column, s Scale) {
	if constant(s) {
		for i := range c.Floats {
			c.Floats[i] = 0
		}
		return
	}
	for i, v := range c.Floats {
		c.Floats[i] = (v - s.Mean) / s.Std
	}
}

// constant treats a std that is only rounding noise around the mean as zero.
func constant(s Scale) bool {
	return s.Std <= 1e-12*math.Max(1, math.Abs(s.Mean))
}

func impute(d *dataset.Dataset, placeholder string) (StepReport, error) {
	rep := StepReport{Step: StepImpute, Fills: map[string]float64{}}
	for _, c := range d.Columns {
		missing := c.MissingCount()
		if c.Kind == dataset.Numeric {
			m, err := FitMean(c)
			if err != nil {
				return rep, &StepError{Step: StepImpute, Column: c.Name, Err: err}
			}
			rep.Fills[c.Name] = m
			for i, v := range c.Floats {
				if math.IsNaN(v) {
					c.Floats[i] = m
				}
			}
		} else {
			for i, v := range c.Strings {
				if v == "" {
					c.Strings[i] = placeholder
				}
			}
		}
		if missing > 0 {
			rep.Columns = append(rep.Columns, c.Name)
			rep.Changed += missing
		}
	}
	return rep, nil
}

func clip(d *dataset.Dataset, k float64) (StepReport, error) {
	rep := StepReport{Step: StepClip, Bounds: map[string]Bounds{}}
	for _, c := range d.OfKind(dataset.Numeric) {
		b, err := FitBounds(c, k)
		if err != nil {
			return rep, &StepError{Step: StepClip, Column: c.Name, Err: err}
		}
		rep.Bounds[c.Name] = b
		if n := stats.Clamp(c.Floats, b.Lower, b.Upper); n > 0 {
			rep.Columns = append(rep.Columns, c.Name)
			rep.Changed += n
		}
	}
	return rep, nil
}

func scale(d *dataset.Dataset) (StepReport, error) {
	rep := StepReport{Step: StepScale, Scales: map[string]Scale{}}
	for _, c := range d.OfKind(dataset.Numeric) {
		s, err := FitScale(c)
		if err != nil {
			return rep, &StepError{Step: StepScale, Column: c.Name, Err: err}
		}
		rep.Scales[c.Name] = s
		ApplyScale(c, s)
		rep.Columns = append(rep.Columns, c.Name)
		rep.Changed += c.Len()
		if constant(s) {
			rep.Note = "zero-variance columns mapped to 0"
		}
	}
	return rep, nil
}

// ScoreFeatures computes the ANOVA F statistic of every numeric column of d
// against the label classes.
func ScoreFeatures(d *dataset.Dataset, label *dataset.Column) ([]FeatureScore, error) {
	classes := make([]string, label.Len())
	for i := range classes {
		if label.IsMissing(i) {
			return nil, ErrLabelMissing
		}
		classes[i] = label.Value(i)
	}
	groups := stats.GroupBy(classes)
	if len(groups.Keys) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrDegenerateLabel, len(groups.Keys))
	}
	var out []FeatureScore
	for _, c := range d.OfKind(dataset.Numeric) {
		fs, err := stats.FOneWay(c.Floats, groups)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDegenerateLabel, err)
		}
		out = append(out, FeatureScore{Column: c.Name, F: fs.F, P: fs.P})
	}
	return out, nil
}

// rankTopK marks the k best scores as kept. NaN scores rank last; ties keep the
// earlier column.
func rankTopK(scores []FeatureScore, k int) {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		fa, fb := scores[order[a]].F, scores[order[b]].F
		if math.IsNaN(fb) {
			return !math.IsNaN(fa)
		}
		if math.IsNaN(fa) {
			return false
		}
		return fa > fb
	})
	if k > len(order) {
		k = len(order)
	}
	for _, i := range order[:k] {
		scores[i].Kept = true
	}
}

func selectK(d *dataset.Dataset, label *dataset.Column, k int) (*dataset.Dataset, StepReport, error) {
	rep := StepReport{Step: StepSelect}
	scores, err := ScoreFeatures(d, label)
	if err != nil {
		return nil, rep, &StepError{Step: StepSelect, Column: label.Name, Err: err}
	}
	rankTopK(scores, k)
	kept := map[string]bool{}
	for _, s := range scores {
		if s.Kept {
			kept[s.Column] = true
		}
	}
	out := &dataset.Dataset{Name: d.Name}
	for _, c := range d.Columns {
		if kept[c.Name] {
			out.Columns = append(out.Columns, c)
			rep.Columns = append(rep.Columns, c.Name)
		} else {
			rep.Dropped = append(rep.Dropped, c.Name)
		}
	}
	rep.Scores = scores
	rep.Changed = len(rep.Dropped)
	return out, rep, nil
}

// MarshalJSON writes undefined or infinite scores as null.
func (s FeatureScore) MarshalJSON() ([]byte, error) {
	type out struct {
		Column string   `json:"column"`
		F      *float64 `json:"f"`
		P      *float64 `json:"p"`
		Kept   bool     `json:"kept"`
	}
	return json.Marshal(out{Column: s.Column, F: finite(s.F), P: finite(s.P), Kept: s.Kept})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
