// Package preprocess implements the tabular preprocessing pipeline: missing
// value imputation, IQR outlier clipping, standard-score scaling and
// select-k-best feature selection by ANOVA F, run in that order.
//
// The pipeline holds only options. Every statistic is refit from the batch on
// each call, so one Pipeline may be shared across goroutines as long as each
// call gets its own dataset.
package preprocess

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
)

// Policy decides what Process returns when a step fails.
type Policy string

const (
	// PolicyAtomic returns the original input on any step failure.
	PolicyAtomic Policy = "atomic"
	// PolicyBestEffort returns the output of the last step that succeeded.
	PolicyBestEffort Policy = "best-effort"
)

// ParsePolicy accepts "atomic" and "best-effort" (or "best_effort").
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "atomic":
		return PolicyAtomic, nil
	case "best-effort", "best_effort", "besteffort":
		return PolicyBestEffort, nil
	}
	return "", fmt.Errorf("unknown failure policy %q (want atomic or best-effort)", s)
}

const (
	DefaultTopK          = 10
	DefaultIQRMultiplier = 1.5
	DefaultPlaceholder   = "Unknown"
	DefaultLabel         = "target"
)

// Options configures a Pipeline. Zero values take the defaults.
type Options struct {
	TopK          int
	IQRMultiplier float64
	Placeholder   string
	Policy        Policy
}

// DefaultOptions returns K=10, multiplier 1.5, placeholder "Unknown" and the
// atomic policy.
func DefaultOptions() Options {
	return Options{
		TopK:          DefaultTopK,
		IQRMultiplier: DefaultIQRMultiplier,
		Placeholder:   DefaultPlaceholder,
		Policy:        PolicyAtomic,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.IQRMultiplier <= 0 {
		o.IQRMultiplier = d.IQRMultiplier
	}
	if o.Placeholder == "" {
		o.Placeholder = d.Placeholder
	}
	if o.Policy == "" {
		o.Policy = d.Policy
	}
	return o
}

// Result is the outcome of one Process call.
//
// Data is always usable. When Fallback is set, a step failed, Cause names it,
// and Data is either a copy of the input (atomic) or the output of the last
// successful step (best-effort).
type Result struct {
	RunID     string           `json:"run_id"`
	Data      *dataset.Dataset `json:"-"`
	Label     string           `json:"label,omitempty"`
	LabelUsed bool             `json:"label_used"`
	Policy    Policy           `json:"policy"`
	Fallback  bool             `json:"fallback"`
	Cause     *StepError       `json:"-"`
	Steps     []StepReport     `json:"steps"`
	Notes     []string         `json:"notes,omitempty"`
}

// Step returns the report of the named step, or nil if it did not run.
func (r *Result) Step(s Step) *StepReport {
	for i := range r.Steps {
		if r.Steps[i].Step == s {
			return &r.Steps[i]
		}
	}
	return nil
}

// Pipeline runs the four preprocessing steps.
type Pipeline struct {
	opts Options
}

// New returns a pipeline with the given options.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts.normalized()}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Process runs the pipeline with default options.
func Process(ds *dataset.Dataset, label string) (*Result, error) {
	return New(DefaultOptions()).Process(ds, label)
}

type stage struct {
	step Step
	run  func(d *dataset.Dataset) (*dataset.Dataset, StepReport, error)
}

// Process transforms a copy of ds. The label column, when present, is left
// out of every step and appended unchanged as the last column. A label name
// that does not exist in ds is treated as no label.
//
// The returned error is non-nil only when ds is malformed; step failures are
// reported through Result.Fallback and Result.Cause.
func (p *Pipeline) Process(ds *dataset.Dataset, label string) (*Result, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	res := &Result{
		RunID:  uuid.NewString(),
		Label:  label,
		Policy: p.opts.Policy,
	}
	log := logging.With().Str("run_id", res.RunID).Str("dataset", ds.Name).Logger()

	if ds.IsEmpty() {
		res.Data = ds.Clone()
		res.Notes = append(res.Notes, "empty dataset passed through")
		log.Debug().Msg("empty dataset, nothing to process")
		return res, nil
	}

	feats, lab := ds.Without(label)
	res.LabelUsed = lab != nil
	if label != "" && lab == nil {
		res.Notes = append(res.Notes, fmt.Sprintf("label column %q not found, feature selection skipped", label))
		log.Info().Str("label", label).Msg("label column not found; scaling all numeric columns")
	}

	stages := []stage{
		{StepImpute, func(d *dataset.Dataset) (*dataset.Dataset, StepReport, error) {
			rep, err := impute(d, p.opts.Placeholder)
			return d, rep, err
		}},
		{StepClip, func(d *dataset.Dataset) (*dataset.Dataset, StepReport, error) {
			rep, err := clip(d, p.opts.IQRMultiplier)
			return d, rep, err
		}},
		{StepScale, func(d *dataset.Dataset) (*dataset.Dataset, StepReport, error) {
			rep, err := scale(d)
			return d, rep, err
		}},
		{StepSelect, func(d *dataset.Dataset) (*dataset.Dataset, StepReport, error) {
			if lab == nil {
				return d, StepReport{Step: StepSelect, Skipped: true, Note: "no label column"}, nil
			}
			return selectK(d, lab, p.opts.TopK)
		}},
	}

	cur := feats.Clone()
	for _, st := range stages {
		next, rep, err := st.run(cur.Clone())
		if err != nil {
			var se *StepError
			if !errors.As(err, &se) {
				se = &StepError{Step: st.step, Err: err}
			}
			res.Fallback = true
			res.Cause = se
			if p.opts.Policy == PolicyBestEffort {
				res.Data = attach(cur, lab)
			} else {
				res.Data = ds.Clone()
			}
			log.Warn().Err(se).Str("step", string(st.step)).Str("policy", string(p.opts.Policy)).
				Msg("preprocessing step failed, falling back")
			return res, nil
		}
		res.Steps = append(res.Steps, rep)
		log.Debug().Str("step", string(st.step)).Int("changed", rep.Changed).Strs("columns", rep.Columns).Msg("step done")
		cur = next
	}

	res.Data = attach(cur, lab)
	log.Info().Int("rows", res.Data.Rows()).Int("cols", res.Data.Cols()).Msg("preprocessing complete")
	return res, nil
}

// attach returns the features followed by a copy of the label column.
func attach(feats *dataset.Dataset, lab *dataset.Column) *dataset.Dataset {
	out := &dataset.Dataset{Name: feats.Name, Columns: append([]*dataset.Column(nil), feats.Columns...)}
	if lab != nil {
		out.Columns = append(out.Columns, lab.Clone())
	}
	return out
}
