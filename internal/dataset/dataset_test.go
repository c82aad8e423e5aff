package dataset

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func sample(t *testing.T) *Dataset {
	t.Helper()
	ds, err := New("sample",
		NewNumeric("x", []float64{1, math.NaN(), 3}),
		NewCategorical("city", []string{"Oslo", "", "Rome"}),
		NewDatetime("date", []string{"2024-01-01", "2024-01-02", ""}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ds
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cols []*Column
		want string
	}{
		{"nil column", []*Column{nil}, "is nil"},
		{"empty name", []*Column{NewNumeric(" ", []float64{1})}, "empty name"},
		{"duplicate", []*Column{NewNumeric("a", []float64{1}), NewNumeric("a", []float64{2})}, "duplicate"},
		{"length", []*Column{NewNumeric("a", []float64{1, 2}), NewCategorical("b", []string{"x"})}, "has 1 rows"},
		{"kind storage", []*Column{{Name: "a", Kind: Numeric, Strings: []string{"x"}}}, "carries string values"},
		{"unknown kind", []*Column{{Name: "a", Kind: Kind(9)}}, "unknown kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("bad", tt.cols...)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestColumnMissingAndValue(t *testing.T) {
	ds := sample(t)
	if ds.Rows() != 3 || ds.Cols() != 3 {
		t.Fatalf("shape = %dx%d", ds.Rows(), ds.Cols())
	}
	for _, c := range ds.Columns {
		if c.MissingCount() != 1 {
			t.Errorf("%s missing = %d, want 1", c.Name, c.MissingCount())
		}
	}
	if got := ds.Row(1); got[0] != "" || got[1] != "" || got[2] != "2024-01-02" {
		t.Fatalf("row 1 = %q", got)
	}
	if got := ds.Column("x").Value(2); got != "3" {
		t.Fatalf("Value = %q", got)
	}
	if p := ds.Column("x").Present(); len(p) != 2 {
		t.Fatalf("Present = %v", p)
	}
}

func TestCloneIsDeep(t *testing.T) {
	ds := sample(t)
	cp := ds.Clone()
	cp.Columns[0].Floats[0] = 99
	cp.Columns[1].Strings[0] = "Paris"
	if ds.Columns[0].Floats[0] != 1 || ds.Columns[1].Strings[0] != "Oslo" {
		t.Fatal("Clone shares storage with the original")
	}
	if Equal(ds, cp) {
		t.Fatal("Equal should see the change")
	}
	if !Equal(ds, ds.Clone()) {
		t.Fatal("a fresh clone should be equal, NaN included")
	}
}

func TestWithoutAndMatrix(t *testing.T) {
	ds, _ := New("m",
		NewNumeric("a", []float64{1, 2}),
		NewNumeric("b", []float64{3, 4}),
		NewCategorical("target", []string{"y", "n"}),
	)
	feats, lab := ds.Without("target")
	if lab == nil || lab.Name != "target" || feats.Cols() != 2 {
		t.Fatalf("Without: feats=%v lab=%v", feats.Names(), lab)
	}
	if _, none := ds.Without("missing"); none != nil {
		t.Fatal("Without on an absent column should return nil")
	}
	m, err := ds.Matrix([]string{"b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if m[1][0] != 4 || m[1][1] != 2 {
		t.Fatalf("Matrix = %v", m)
	}
	if _, err := ds.Matrix([]string{"target"}); err == nil {
		t.Fatal("expected error for categorical column")
	}
}

func TestTextFrame(t *testing.T) {
	ds := sample(t)
	ds.Columns[0].Floats[2] = 1e-7
	df := ds.ToTextFrame()
	if df.Nrow() != 3 || df.Ncol() != 3 {
		t.Fatalf("dataframe shape = %dx%d", df.Nrow(), df.Ncol())
	}
	recs := df.Records()
	if got := strings.Join(recs[2], ","); got != "NaN,NaN,2024-01-02" {
		t.Fatalf("missing row = %q", got)
	}
	if got := recs[3][0]; got != "1e-07" {
		t.Fatalf("small value rendered as %q", got)
	}
}

func TestFromDataFrame(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{1.5, math.NaN(), 3}, series.Float, "x"),
		series.New([]string{"Oslo", "NaN", "Rome"}, series.String, "city"),
	)
	back, err := FromDataFrame("back", df)
	if err != nil {
		t.Fatalf("FromDataFrame: %v", err)
	}
	if back.Column("x").Kind != Numeric || !math.IsNaN(back.Column("x").Floats[1]) {
		t.Fatalf("x = %+v", back.Column("x"))
	}
	if back.Column("city").Strings[1] != "" {
		t.Fatalf("city missing not restored: %q", back.Column("city").Strings)
	}

	ints := dataframe.New(series.New([]int{1, 2, 3}, series.Int, "n"))
	fromInts, err := FromDataFrame("ints", ints)
	if err != nil || fromInts.Column("n").Kind != Numeric {
		t.Fatalf("int series: %v %v", fromInts, err)
	}
}
