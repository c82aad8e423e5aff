package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind tags the value type of a column. It is decided once, at load time.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Datetime
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Datetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ErrMalformed reports a dataset that violates the column invariants.
var ErrMalformed = errors.New("malformed dataset")

// Column is a named, typed column. Numeric columns use Floats with NaN for
// missing entries; other kinds use Strings with "" for missing entries.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// NewNumeric builds a numeric column.
func NewNumeric(name string, vals []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Floats: vals}
}

// NewCategorical builds a categorical column.
func NewCategorical(name string, vals []string) *Column {
	return &Column{Name: name, Kind: Categorical, Strings: vals}
}

// NewDatetime builds a datetime column holding the raw textual values.
func NewDatetime(name string, vals []string) *Column {
	return &Column{Name: name, Kind: Datetime, Strings: vals}
}

// Len returns the number of entries.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether entry i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Strings[i] == ""
}

// MissingCount returns the number of missing entries.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Present returns the non-missing numeric values. It returns nil for
// non-numeric columns.
func (c *Column) Present() []float64 {
	if c.Kind != Numeric {
		return nil
	}
	out := make([]float64, 0, len(c.Floats))
	for _, v := range c.Floats {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Value renders entry i as text; missing entries render as "".
func (c *Column) Value(i int) string {
	if c.Kind == Numeric {
		v := c.Floats[i]
		if math.IsNaN(v) {
			return ""
		}
		return formatFloat(v)
	}
	return c.Strings[i]
}

// Clone deep-copies the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	return out
}

// Dataset is an ordered collection of equally long, uniquely named columns.
type Dataset struct {
	Name    string
	Columns []*Column
}

// New builds a dataset and validates it.
func New(name string, cols ...*Column) (*Dataset, error) {
	ds := &Dataset{Name: name, Columns: cols}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks that column names are unique and non-empty, that every
// column carries storage for its kind, and that all columns have equal length.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil dataset", ErrMalformed)
	}
	seen := make(map[string]struct{}, len(d.Columns))
	rows := -1
	for i, c := range d.Columns {
		if c == nil {
			return fmt.Errorf("%w: column %d is nil", ErrMalformed, i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrMalformed, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate column name %q", ErrMalformed, c.Name)
		}
		seen[c.Name] = struct{}{}
		switch c.Kind {
		case Numeric:
			if c.Strings != nil {
				return fmt.Errorf("%w: numeric column %q carries string values", ErrMalformed, c.Name)
			}
		case Categorical, Datetime:
			if c.Floats != nil {
				return fmt.Errorf("%w: %s column %q carries numeric values", ErrMalformed, c.Kind, c.Name)
			}
		default:
			return fmt.Errorf("%w: column %q has unknown kind %d", ErrMalformed, c.Name, int(c.Kind))
		}
		if rows < 0 {
			rows = c.Len()
		} else if c.Len() != rows {
			return fmt.Errorf("%w: column %q has %d rows, want %d", ErrMalformed, c.Name, c.Len(), rows)
		}
	}
	return nil
}

// Rows returns the row count (0 for a dataset without columns).
func (d *Dataset) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// Cols returns the column count.
func (d *Dataset) Cols() int { return len(d.Columns) }

// IsEmpty reports whether the dataset has no columns or no rows.
func (d *Dataset) IsEmpty() bool { return d.Cols() == 0 || d.Rows() == 0 }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column, or nil.
func (d *Dataset) Column(name string) *Column {
	if i := d.Index(name); i >= 0 {
		return d.Columns[i]
	}
	return nil
}

// Has reports whether a column with this name exists.
func (d *Dataset) Has(name string) bool { return d.Index(name) >= 0 }

// OfKind returns the columns of the given kind, in order.
func (d *Dataset) OfKind(k Kind) []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Name: d.Name, Columns: make([]*Column, len(d.Columns))}
	for i, c := range d.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// Without returns a shallow dataset view without the named column, plus the
// removed column (nil if absent).
func (d *Dataset) Without(name string) (*Dataset, *Column) {
	out := &Dataset{Name: d.Name}
	var removed *Column
	for _, c := range d.Columns {
		if c.Name == name {
			removed = c
			continue
		}
		out.Columns = append(out.Columns, c)
	}
	return out, removed
}

// Row returns row i rendered as text.
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.Columns))
	for j, c := range d.Columns {
		out[j] = c.Value(i)
	}
	return out
}

// Matrix returns the named numeric columns as row-major [][]float64.
func (d *Dataset) Matrix(names []string) ([][]float64, error) {
	cols := make([]*Column, len(names))
	for j, n := range names {
		c := d.Column(n)
		if c == nil {
			return nil, fmt.Errorf("column %q not found", n)
		}
		if c.Kind != Numeric {
			return nil, fmt.Errorf("column %q is %s, want numeric", n, c.Kind)
		}
		cols[j] = c
	}
	rows := d.Rows()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Floats[i]
		}
		out[i] = row
	}
	return out, nil
}

// Equal reports whether two datasets hold the same columns and values.
// NaN entries compare equal to each other.
func Equal(a, b *Dataset) bool {
	if a.Cols() != b.Cols() {
		return false
	}
	for i := range a.Columns {
		ca, cb := a.Columns[i], b.Columns[i]
		if ca.Name != cb.Name || ca.Kind != cb.Kind || ca.Len() != cb.Len() {
			return false
		}
		for r := 0; r < ca.Len(); r++ {
			if ca.Kind == Numeric {
				x, y := ca.Floats[r], cb.Floats[r]
				if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
					return false
				}
				continue
			}
			if ca.Strings[r] != cb.Strings[r] {
				return false
			}
		}
	}
	return true
}
