package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders the report as bracketed plain-text sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Header)))

	if len(r.Cols) > 0 {
		b.WriteString("\n[SCHEMA]\n")
		for _, c := range r.Cols {
			total := c.NonNull + c.Missing
			missPct := 0.0
			if total > 0 {
				missPct = float64(c.Missing) * 100.0 / float64(total)
			}
			name := safeName(c.Name)
			if c.Unit != "" {
				name = fmt.Sprintf("%s [%s]", name, c.Unit)
			}
			b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
			switch c.Kind {
			case "numeric":
				if c.NonNull > 0 {
					b.WriteString(fmt.Sprintf(": min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g, mean %.4g, std %.4g",
						c.Min, c.Q1, c.Median, c.Q3, c.Max, c.Mean, c.Std))
				}
				if c.CILevel > 0 {
					b.WriteString(fmt.Sprintf(", mean %.4g%% CI [%.4g, %.4g]", c.CILevel*100, c.CILow, c.CIHigh))
				}
				if c.OutlierThreshold > 0 {
					b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
					if c.OutliersMaxAbsZ > 0 {
						b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
					}
				}
			case "categorical":
				if len(c.TopValues) > 0 {
					b.WriteString(": top ")
					for i, kv := range c.TopValues {
						if i > 0 {
							b.WriteString(", ")
						}
						b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
					}
					if c.Unique > len(c.TopValues) {
						b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
					}
				}
			case "datetime":
				if c.First != "" {
					b.WriteString(fmt.Sprintf(": %s .. %s", c.First, c.Last))
				}
			}
			b.WriteString("\n")
		}
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for i := 0; i < len(keys) && i < 6; i++ {
				m := g.Metrics[keys[i]]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", keys[i], m.Mean, m.Min, m.Max))
			}
		}
		hasGCorr := false
		for _, g := range r.Groups {
			if len(g.CorrPairs) > 0 {
				hasGCorr = true
				break
			}
		}
		if hasGCorr {
			b.WriteString("\n[PER-GROUP CORRELATIONS]\n")
			for _, g := range r.Groups {
				if len(g.CorrPairs) == 0 {
					continue
				}
				b.WriteString(fmt.Sprintf("- %s:\n", g.Key))
				for i := 0; i < len(g.CorrPairs) && i < 8; i++ {
					p := g.CorrPairs[i]
					b.WriteString(fmt.Sprintf("  • %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
				}
			}
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Trends) > 0 {
		b.WriteString(fmt.Sprintf("\n[TREND] (over %s)\n", r.TimeColumn))
		for _, t := range r.Trends {
			b.WriteString(fmt.Sprintf("- %s: %s, slope %.4g, first %.4g, last %.4g (n=%d)\n",
				t.Column, t.Direction, t.Slope, t.First, t.Last, t.Points))
		}
	}

	if len(r.Histograms) > 0 {
		b.WriteString("\n[DISTRIBUTIONS]\n")
		for _, h := range r.Histograms {
			parts := make([]string, len(h.Counts))
			for i, c := range h.Counts {
				parts[i] = fmt.Sprintf("%.0f", c)
			}
			b.WriteString(fmt.Sprintf("- %s [%.4g, %.4g]: %s\n", h.Column, h.Dividers[0], h.Dividers[len(h.Dividers)-1], strings.Join(parts, " ")))
		}
	}

	if r.Anomalies != nil {
		a := r.Anomalies
		b.WriteString("\n[ANOMALIES]\n")
		b.WriteString(fmt.Sprintf("Flagged values: %d in %d rows (%.1f%%, |z|>%.1f)\n", a.Total, a.Rows, a.Rate(r.Rows)*100, a.Threshold))
		for _, it := range a.Items {
			b.WriteString(fmt.Sprintf("- row %d, %s = %.4g (z=%.2f)\n", it.Row+1, it.Column, it.Value, it.Z))
		}
	}

	if len(r.Samples) > 0 && len(r.Header) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, h := range r.Header {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(h))
		}
		b.WriteString(" |\n| ")
		for i := range r.Header {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Header {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}
