package dataset

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ToTextFrame converts the dataset to a gota DataFrame of String series whose
// cells are the exact text of Column.Value. Missing entries become NaN. gota
// renders Float series with a fixed six decimals, so writers use this form.
func (d *Dataset) ToTextFrame() dataframe.DataFrame {
	ss := make([]series.Series, 0, len(d.Columns))
	for _, c := range d.Columns {
		vals := make([]string, c.Len())
		for i := range vals {
			if c.IsMissing(i) {
				vals[i] = "NaN"
			} else {
				vals[i] = c.Value(i)
			}
		}
		ss = append(ss, series.New(vals, series.String, c.Name))
	}
	return dataframe.New(ss...)
}

// FromDataFrame converts a gota DataFrame into a dataset. Int and Float series
// become numeric columns; String and Bool series become categorical columns.
func FromDataFrame(name string, df dataframe.DataFrame) (*Dataset, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("dataframe: %w", df.Err)
	}
	ds := &Dataset{Name: name}
	for _, n := range df.Names() {
		s := df.Col(n)
		nas := s.IsNaN()
		switch s.Type() {
		case series.Int, series.Float:
			vals := s.Float()
			for i := range vals {
				if nas[i] {
					vals[i] = math.NaN()
				}
			}
			ds.Columns = append(ds.Columns, NewNumeric(n, vals))
		default:
			recs := s.Records()
			for i := range recs {
				if nas[i] || IsMissingToken(recs[i]) {
					recs[i] = ""
				}
			}
			ds.Columns = append(ds.Columns, NewCategorical(n, recs))
		}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// IsMissingToken reports whether a raw cell value denotes a missing entry.
func IsMissingToken(s string) bool {
	switch s {
	case "", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "<nil>":
		return true
	}
	return false
}

// formatFloat returns the shortest text that parses back to v. Exponent
// notation is only used for very small or very large magnitudes.
func formatFloat(v float64) string {
	if a := math.Abs(v); a != 0 && (a < 1e-6 || a >= 1e21) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
