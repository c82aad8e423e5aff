// Package report assembles analysis, model, insight and preprocessing results
// into a document and renders it as Markdown, HTML, PDF or CSV.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dataprep-cli/internal/analysis"
	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/insight"
	"github.com/KaramelBytes/dataprep-cli/internal/model"
	"github.com/KaramelBytes/dataprep-cli/internal/preprocess"
)

// DefaultTitle heads documents built without an explicit title.
const DefaultTitle = "Data Analysis Report"

// ColumnInfo is the schema line of the data summary.
type ColumnInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// Document is everything a report can show. Optional parts are nil when the
// corresponding command did not run.
type Document struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	CreatedAt  time.Time          `json:"created_at"`
	Dataset    string             `json:"dataset"`
	Rows       int                `json:"rows"`
	Columns    []ColumnInfo       `json:"columns"`
	Analysis   *analysis.Report   `json:"analysis,omitempty"`
	Model      *model.Result      `json:"model,omitempty"`
	Insights   *insight.Insights  `json:"insights,omitempty"`
	Preprocess *preprocess.Result `json:"preprocess,omitempty"`
	Data       *dataset.Dataset   `json:"-"`
}

// Build starts a document over ds with its data summary filled in.
func Build(ds *dataset.Dataset, title string) *Document {
	if title == "" {
		title = DefaultTitle
	}
	doc := &Document{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now(),
		Dataset:   ds.Name,
		Rows:      ds.Rows(),
		Data:      ds,
	}
	for _, c := range ds.Columns {
		doc.Columns = append(doc.Columns, ColumnInfo{Name: c.Name, Kind: c.Kind.String(), Missing: c.MissingCount()})
	}
	return doc
}

// Section is a titled block of text lines shared by every renderer.
type Section struct {
	Title string
	Lines []string
}

// Sections flattens the document into renderable blocks, in fixed order.
func (d *Document) Sections() []Section {
	var out []Section

	summary := Section{Title: "Data Summary", Lines: []string{
		fmt.Sprintf("Data Size: %d rows, %d columns", d.Rows, len(d.Columns)),
		"Column Types:",
	}}
	for _, c := range d.Columns {
		summary.Lines = append(summary.Lines, fmt.Sprintf("- %s: %s", c.Name, c.Kind))
	}
	missing := []string{}
	for _, c := range d.Columns {
		if c.Missing > 0 {
			missing = append(missing, fmt.Sprintf("- %s: %d missing values", c.Name, c.Missing))
		}
	}
	if len(missing) > 0 {
		summary.Lines = append(summary.Lines, "Missing Values:")
		summary.Lines = append(summary.Lines, missing...)
	} else {
		summary.Lines = append(summary.Lines, "Missing Values: none")
	}
	out = append(out, summary)

	if p := d.Preprocess; p != nil {
		s := Section{Title: "Preprocessing"}
		s.Lines = append(s.Lines, fmt.Sprintf("Run: %s (policy %s)", p.RunID, p.Policy))
		if p.Fallback && p.Cause != nil {
			s.Lines = append(s.Lines, fmt.Sprintf("Fell back to the input: %v", p.Cause))
		}
		for _, st := range p.Steps {
			line := fmt.Sprintf("- %s: %d columns, %d changed", st.Step, len(st.Columns), st.Changed)
			if st.Skipped {
				line = fmt.Sprintf("- %s: skipped", st.Step)
			}
			if st.Note != "" {
				line += " (" + st.Note + ")"
			}
			s.Lines = append(s.Lines, line)
		}
		if sel := p.Step(preprocess.StepSelect); sel != nil && !sel.Skipped {
			s.Lines = append(s.Lines, "Selected features: "+strings.Join(sel.Columns, ", "))
		}
		s.Lines = append(s.Lines, p.Notes...)
		out = append(out, s)
	}

	if d.Analysis != nil {
		out = append(out, Section{
			Title: "Analysis Results",
			Lines: strings.Split(strings.TrimRight(d.Analysis.Markdown(), "\n"), "\n"),
		})
	}

	if m := d.Model; m != nil {
		s := Section{Title: "Model Results"}
		s.Lines = append(s.Lines, fmt.Sprintf("Model: %s/%s", m.Kind, m.Name))
		if m.Target != "" {
			s.Lines = append(s.Lines, "Target: "+m.Target)
		}
		s.Lines = append(s.Lines, fmt.Sprintf("Rows: %d train, %d test", m.TrainRows, m.TestRows))
		s.Lines = append(s.Lines, "Model Metrics:")
		keys := make([]string, 0, len(m.Metrics))
		for k := range m.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.Lines = append(s.Lines, fmt.Sprintf("- %s: %.4f", k, m.Metrics[k]))
		}
		out = append(out, s)
	}

	if in := d.Insights; in != nil {
		s := Section{Title: "Insights"}
		if in.PCA != nil {
			parts := make([]string, len(in.PCA.Explained))
			for i, v := range in.PCA.Explained {
				parts[i] = fmt.Sprintf("PC%d %.1f%%", i+1, v*100)
			}
			s.Lines = append(s.Lines, "PCA explained variance: "+strings.Join(parts, ", "))
		}
		if c := in.Clusters; c != nil {
			s.Lines = append(s.Lines, fmt.Sprintf("DBSCAN: %d clusters, %d noise points (eps %.2f, min samples %d)", c.Clusters, c.Noise, c.Eps, c.MinSamples))
		}
		if a := in.Anomalies; a != nil {
			s.Lines = append(s.Lines, fmt.Sprintf("Anomalies: %d rows (%.1f%%, |z|>%.1f)", len(a.Flagged), a.Contamination*100, a.Threshold))
		}
		if len(in.Importance) > 0 {
			s.Lines = append(s.Lines, "Feature Importance:")
			for _, imp := range in.Importance {
				s.Lines = append(s.Lines, fmt.Sprintf("- %s: %.4f (%s)", imp.Feature, imp.Score, imp.Method))
			}
		}
		s.Lines = append(s.Lines, in.Notes...)
		out = append(out, s)
	}
	return out
}
