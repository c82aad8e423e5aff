package loader

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(name string) bool {
	return hasExt(name, ".xlsx", ".xlsm")
}

// Load reads the selected sheet (the first one by default). The first row is
// the header.
func (xlsxLoader) Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &dataset.Dataset{Name: name}, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &dataset.Dataset{Name: name}, nil
	}
	body := rows[1:]
	kept := body[:0]
	for _, rec := range body {
		if !isBlank(rec) {
			kept = append(kept, rec)
		}
	}
	return Build(name, rows[0], kept, opt)
}
