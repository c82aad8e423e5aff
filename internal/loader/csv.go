package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

type csvLoader struct{}

func (csvLoader) CanLoad(name string) bool {
	return hasExt(name, ".csv", ".tsv", ".txt")
}

func (csvLoader) Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, data)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &dataset.Dataset{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
	}
	return Build(name, header, rows, opt)
}

// sniffDelimiter uses the extension for .tsv and otherwise picks the most
// frequent of ',', ';' and tab in the header line.
func sniffDelimiter(name string, data []byte) rune {
	if hasExt(name, ".tsv") {
		return '\t'
	}
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
