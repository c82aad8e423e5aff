// Package loader reads tabular datasets from files, HTTP endpoints or a
// seeded generator. File formats are resolved through a registry keyed on the
// file name, the way document parsers are registered.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
)

// DefaultMaxFileSize is the largest file LoadFile accepts unless overridden.
const DefaultMaxFileSize int64 = 100 << 20

var (
	// ErrUnsupportedFormat indicates no registered loader handles the file.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge indicates the file exceeds Options.MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
)

// Options controls parsing. Zero values auto-detect or take defaults.
type Options struct {
	// Delimiter for delimited text. If 0, detected from the extension and header line.
	Delimiter rune
	// DecimalSeparator for numeric parsing. If 0, detected per value.
	DecimalSeparator rune
	// ThousandsSeparator for numeric parsing. If 0, common separators are stripped.
	ThousandsSeparator rune
	// Sheet selects the workbook sheet; the first sheet when empty.
	Sheet string
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// MaxFileSize in bytes; 0 means DefaultMaxFileSize, negative disables the check.
	MaxFileSize int64
}

// Loader turns raw bytes of one format into a dataset.
type Loader interface {
	CanLoad(name string) bool
	Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(jsonLoader{})
}

// Supported reports whether some registered loader handles the file name.
func Supported(name string) bool {
	return find(name) != nil
}

func find(name string) Loader {
	for _, l := range registry {
		if l.CanLoad(name) {
			return l
		}
	}
	return nil
}

// LoadFile picks a loader by file name and reads the dataset.
func LoadFile(path string, opt Options) (*dataset.Dataset, error) {
	l := find(path)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, strings.ToLower(filepath.Ext(path)))
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	limit := opt.MaxFileSize
	if limit == 0 {
		limit = DefaultMaxFileSize
	}
	if limit > 0 && fi.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, filepath.Base(path), fi.Size(), limit)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	ds, err := l.Load(f, filepath.Base(path), opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	logging.Debug().Str("file", path).Int("rows", ds.Rows()).Int("cols", ds.Cols()).Msg("dataset loaded")
	return ds, nil
}

// Load reads a dataset of the format implied by name from r.
func Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	l := find(name)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return l.Load(r, name, opt)
}

func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
