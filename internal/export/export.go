// Package export writes datasets to CSV, XLSX and JSON files.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

// ErrUnsupportedFormat indicates the output extension has no writer.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Formats lists the accepted output extensions.
var Formats = []string{".csv", ".xlsx", ".json"}

// WriteFile renders ds in the format implied by the extension of path and
// writes it atomically.
func WriteFile(ds *dataset.Dataset, path string) error {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = WriteCSV(&buf, ds)
	case ".xlsx":
		err = WriteXLSX(&buf, ds, "")
	case ".json":
		err = WriteJSON(&buf, ds)
	default:
		return fmt.Errorf("%w: %q (want one of %v)", ErrUnsupportedFormat, filepath.Ext(path), Formats)
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// WriteCSV writes a header row and one line per row through gota. Numbers are
// written in their shortest exact form; missing entries are written as NaN.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	if ds.Cols() == 0 {
		return nil
	}
	df := ds.ToTextFrame()
	if df.Err != nil {
		return fmt.Errorf("build dataframe: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes ds to a single sheet (default "Data"). Numeric cells are
// stored as numbers; missing entries are left empty.
func WriteXLSX(w io.Writer, ds *dataset.Dataset, sheet string) error {
	if sheet == "" {
		sheet = "Data"
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	for j, c := range ds.Columns {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, c.Name); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for i := 0; i < c.Len(); i++ {
			if c.IsMissing(i) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			var v any = c.Value(i)
			if c.Kind == dataset.Numeric {
				v = c.Floats[i]
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteJSON writes an array of records keyed by column name. Missing entries
// become null.
func WriteJSON(w io.Writer, ds *dataset.Dataset) error {
	records := Records(ds)
	b, err := utils.PrettyJSON(records)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// Records converts ds to one ordered map per row, suitable for JSON.
func Records(ds *dataset.Dataset) []Record {
	out := make([]Record, ds.Rows())
	for i := range out {
		rec := Record{keys: ds.Names(), vals: make([]any, ds.Cols())}
		for j, c := range ds.Columns {
			switch {
			case c.IsMissing(i):
				rec.vals[j] = nil
			case c.Kind == dataset.Numeric && !math.IsInf(c.Floats[i], 0):
				rec.vals[j] = c.Floats[i]
			default:
				rec.vals[j] = c.Value(i)
			}
		}
		out[i] = rec
	}
	return out
}

// Record is one row that marshals with keys in column order.
type Record struct {
	keys []string
	vals []any
}

func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.vals[i])
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
