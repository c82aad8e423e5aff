package loader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadCSVInfersKinds(t *testing.T) {
	p := writeFile(t, "data.csv", "id,price,city,date,score\n"+
		"1,\"1,234.50\",Oslo,2024-01-01,12%\n"+
		"2,10.5,,2024-01-02,NA\n"+
		"3,7,Rome,2024-01-03,30%\n"+
		",,,,\n")
	ds, err := LoadFile(p, Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Rows() != 3 {
		t.Fatalf("rows = %d, want 3 (blank row skipped)", ds.Rows())
	}
	want := map[string]dataset.Kind{
		"id": dataset.Numeric, "price": dataset.Numeric, "city": dataset.Categorical,
		"date": dataset.Datetime, "score": dataset.Numeric,
	}
	for name, k := range want {
		if got := ds.Column(name).Kind; got != k {
			t.Errorf("%s kind = %s, want %s", name, got, k)
		}
	}
	if v := ds.Column("price").Floats[0]; v != 1234.5 {
		t.Fatalf("price[0] = %v, want 1234.5", v)
	}
	if !math.IsNaN(ds.Column("score").Floats[1]) {
		t.Fatal("NA should load as missing")
	}
	if ds.Column("city").Strings[1] != "" {
		t.Fatal("empty city should be missing")
	}
}

func TestSniffDelimiterAndLocale(t *testing.T) {
	p := writeFile(t, "eu.csv", "name;amount\nA;1.234,5\nB;2,75\n")
	ds, err := LoadFile(p, Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got := ds.Column("amount").Floats
	if got[0] != 1234.5 || got[1] != 2.75 {
		t.Fatalf("amount = %v", got)
	}

	tsv := writeFile(t, "data.tsv", "a\tb\n1\tx\n")
	ds, err = LoadFile(tsv, Options{})
	if err != nil || ds.Cols() != 2 {
		t.Fatalf("tsv: %v %v", ds, err)
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		opt  Options
		want float64
		ok   bool
	}{
		{"42", Options{}, 42, true},
		{"-1.5e3", Options{}, -1500, true},
		{"1 000", Options{}, 1000, true},
		{"3,5", Options{}, 3.5, true},
		{"1,234", Options{DecimalSeparator: '.', ThousandsSeparator: ','}, 1234, true},
		{"50 %", Options{}, 50, true},
		{"inf", Options{}, 0, false},
		{"abc", Options{}, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumeric(tt.in, tt.opt)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseNumeric(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInferColumnThousands(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []float64
	}{
		{"grouped", []string{"1,234", "2,500", "1,234,567"}, []float64{1234, 2500, 1234567}},
		{"grouped with decimals", []string{"1,234.5", "12", "-3,000"}, []float64{1234.5, 12, -3000}},
		{"decimal comma", []string{"1,5", "2,25"}, []float64{1.5, 2.25}},
		{"mixed stays decimal", []string{"1,5", "1,234"}, []float64{1.5, 1.234}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := inferColumn("v", tt.raw, Options{})
			if c.Kind != dataset.Numeric {
				t.Fatalf("kind = %v", c.Kind)
			}
			for i, w := range tt.want {
				if c.Floats[i] != w {
					t.Errorf("value %d = %v, want %v", i, c.Floats[i], w)
				}
			}
		})
	}

	c := inferColumn("v", []string{"1,234"}, Options{DecimalSeparator: ','})
	if c.Floats[0] != 1.234 {
		t.Fatalf("explicit decimal comma = %v", c.Floats[0])
	}
}

func TestColumnNamesUnique(t *testing.T) {
	got := columnNames([]string{"\ufeffa", "a", "", " b "})
	want := []string{"a", "a_2", "column_3", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columnNames = %v, want %v", got, want)
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(writeFile(t, "notes.docx", "x"), Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	big := writeFile(t, "big.csv", "a\n1\n2\n3\n")
	if _, err := LoadFile(big, Options{MaxFileSize: 4}); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if _, err := LoadFile(big, Options{MaxFileSize: -1}); err != nil {
		t.Fatalf("negative limit should disable the check: %v", err)
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{{"x", "label"}, {1.5, "a"}, {2, "b"}, {nil, "a"}}
	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	p := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(p); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	ds, err := LoadFile(p, Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Rows() != 3 || ds.Column("x").Kind != dataset.Numeric {
		t.Fatalf("unexpected dataset: rows=%d kinds=%v", ds.Rows(), ds.Column("x").Kind)
	}
	if !math.IsNaN(ds.Column("x").Floats[2]) {
		t.Fatal("empty cell should be missing")
	}
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "data.json", `{"data":[
		{"a": 1, "b": "x", "when": "2024-01-01"},
		{"a": 2.5, "b": null, "when": "2024-02-01"},
		{"a": null, "b": "y", "when": "2024-03-01"}
	]}`)
	ds, err := LoadFile(p, Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Rows() != 3 {
		t.Fatalf("rows = %d", ds.Rows())
	}
	a := ds.Column("a")
	if a.Kind != dataset.Numeric || a.Floats[1] != 2.5 || !math.IsNaN(a.Floats[2]) {
		t.Fatalf("a = %+v", a)
	}
	if b := ds.Column("b"); b.Kind != dataset.Categorical || b.Strings[1] != "" {
		t.Fatalf("b = %+v", b)
	}
	if ds.Column("when").Kind != dataset.Datetime {
		t.Fatalf("when kind = %s", ds.Column("when").Kind)
	}

	empty := writeFile(t, "empty.json", "[]")
	ds, err = LoadFile(empty, Options{})
	if err != nil || !ds.IsEmpty() {
		t.Fatalf("empty array: %v %v", ds, err)
	}
	if _, err := LoadFile(writeFile(t, "bad.json", `"text"`), Options{}); err == nil {
		t.Fatal("expected error for scalar json")
	}
}

func TestLoadJSONKeepsKeyOrder(t *testing.T) {
	p := writeFile(t, "ordered.json", `[
		{"zeta": 1, "alpha": "x", "mid": 3},
		{"alpha": "y", "mid": 4, "zeta": 2}
	]`)
	ds, err := LoadFile(p, Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := strings.Join(ds.Names(), ","); got != "zeta,alpha,mid" {
		t.Fatalf("columns = %s, want zeta,alpha,mid", got)
	}
	if z := ds.Column("zeta"); z.Floats[1] != 2 {
		t.Fatalf("zeta = %v", z.Floats)
	}
}

func TestFromURLRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"feature":1,"target":0},{"feature":2,"target":1}]`)
	}))
	defer srv.Close()

	ds, err := FromURL(context.Background(), srv.URL, ClientOptions{
		MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if ds.Rows() != 2 || !ds.Has("target") {
		t.Fatalf("unexpected dataset %v", ds.Names())
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestFromURLDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FromURL(context.Background(), srv.URL, ClientOptions{MaxAttempts: 3, BaseDelay: time.Millisecond})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestFromURLCSVPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		fmt.Fprint(w, "a,b\n1,2\n3,4\n")
	}))
	defer srv.Close()
	ds, err := FromURL(context.Background(), srv.URL+"/export", ClientOptions{})
	if err != nil || ds.Rows() != 2 || ds.Cols() != 2 {
		t.Fatalf("csv payload: %v %v", ds, err)
	}
	if _, err := FromURL(context.Background(), "ftp://example.com/x", ClientOptions{}); err == nil {
		t.Fatal("expected error for non-http url")
	}
}

func TestSampleIsDeterministic(t *testing.T) {
	a := Sample(200, DefaultSampleSeed)
	b := Sample(200, DefaultSampleSeed)
	if !dataset.Equal(a, b) {
		t.Fatal("same seed should give the same sample")
	}
	if a.Rows() != 200 || a.Cols() != 4 {
		t.Fatalf("shape = %dx%d", a.Rows(), a.Cols())
	}
	for _, v := range a.Column("feature3").Floats {
		if v < 0 || v >= 10 || v != math.Trunc(v) {
			t.Fatalf("feature3 out of range: %v", v)
		}
	}
	for _, v := range a.Column("target").Floats {
		if v != 0 && v != 1 {
			t.Fatalf("target = %v", v)
		}
	}
	if Sample(0, 1).Rows() != DefaultSampleRows {
		t.Fatal("n <= 0 should use the default size")
	}
}
