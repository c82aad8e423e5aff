package loader

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

// Build turns a header and raw records into a dataset. A column is numeric
// when every non-missing value parses as a number (an all-missing column is
// numeric too), datetime when every non-missing value parses as a date, and
// categorical otherwise. Short records are padded with missing values.
func Build(name string, header []string, rows [][]string, opt Options) (*dataset.Dataset, error) {
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	names := columnNames(header)
	ds := &dataset.Dataset{Name: name}
	for j, col := range names {
		raw := make([]string, len(rows))
		for i, rec := range rows {
			if j < len(rec) {
				v := strings.TrimSpace(rec[j])
				if !dataset.IsMissingToken(v) {
					raw[i] = v
				}
			}
		}
		ds.Columns = append(ds.Columns, inferColumn(col, raw, opt))
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func inferColumn(name string, raw []string, opt Options) *dataset.Column {
	if opt.DecimalSeparator == 0 && opt.ThousandsSeparator == 0 && commaGrouped(raw) {
		opt.DecimalSeparator, opt.ThousandsSeparator = '.', ','
	}
	nums := make([]float64, len(raw))
	numeric, datetime := true, true
	for i, v := range raw {
		if v == "" {
			nums[i] = math.NaN()
			continue
		}
		if numeric {
			if x, ok := parseNumeric(v, opt); ok {
				nums[i] = x
			} else {
				numeric = false
			}
		}
		if datetime {
			if _, ok := parseTimeMaybe(v); !ok {
				datetime = false
			}
		}
		if !numeric && !datetime {
			break
		}
	}
	switch {
	case numeric:
		return dataset.NewNumeric(name, nums)
	case datetime:
		return dataset.NewDatetime(name, raw)
	default:
		return dataset.NewCategorical(name, raw)
	}
}

// columnNames trims header cells, names blank ones by position and suffixes
// duplicates so every column name is unique.
func columnNames(header []string) []string {
	seen := map[string]int{}
	out := make([]string, len(header))
	for i, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		if c := seen[n]; c > 0 {
			seen[n] = c + 1
			n = fmt.Sprintf("%s_%d", n, c+1)
		}
		seen[n]++
		out[i] = n
	}
	return out
}

func parseTimeMaybe(s string) (time.Time, bool) { return dataset.ParseTime(s) }

var groupedRe = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// commaGrouped reports whether every value containing a comma reads as
// comma-grouped thousands ("1,234", "1,234,567.5"). When it does, the column
// is parsed with ',' as the thousands separator; otherwise a lone comma stays
// a decimal separator ("3,5").
func commaGrouped(raw []string) bool {
	seen := false
	for _, v := range raw {
		v = strings.TrimSpace(strings.ReplaceAll(v, "%", ""))
		if !strings.Contains(v, ",") {
			continue
		}
		if !groupedRe.MatchString(v) {
			return false
		}
		seen = true
	}
	return seen
}

// parseNumeric accepts plain and locale-formatted numbers ("1.234,5",
// "1,234.5", "12 %"). Infinite values are rejected.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
