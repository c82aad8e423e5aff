package export

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/loader"
)

func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("fx",
		dataset.NewNumeric("x", []float64{1.5, math.NaN(), 3}),
		dataset.NewCategorical("city", []string{"Oslo", "", "Rome"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, fixture(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "x,city" {
		t.Fatalf("header = %q", lines[0])
	}
	want := []string{"x,city", "1.5,Oslo", "NaN,NaN", "3,Rome"}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestWriteCSVRoundTripKeepsPrecision(t *testing.T) {
	in, err := dataset.New("rt",
		dataset.NewNumeric("x", []float64{0.123456789, 1e-7, 2e-7}),
		dataset.NewNumeric("big", []float64{1234567.125, -0.5, 1e22}),
		dataset.NewNumeric("target", []float64{0, 1, 1}),
	)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if strings.Contains(buf.String(), "0.000000") || strings.Contains(buf.String(), "1.000000") {
		t.Fatalf("fixed-width float formatting leaked into output:\n%s", buf.String())
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for i, label := range []string{"0", "1", "1"} {
		fields := strings.Split(lines[i+1], ",")
		if got := fields[len(fields)-1]; got != label {
			t.Errorf("row %d label = %q, want %q", i, got, label)
		}
	}

	out, err := loader.Load(bytes.NewReader(buf.Bytes()), "rt.csv", loader.Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !dataset.Equal(in, out) {
		t.Fatalf("round trip changed values:\n%s", buf.String())
	}
}

func TestWriteJSONKeepsColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, fixture(t)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := buf.String()
	if strings.Index(out, `"x"`) > strings.Index(out, `"city"`) {
		t.Fatalf("column order lost: %s", out)
	}
	if !strings.Contains(out, `"x": null`) || !strings.Contains(out, `"city": null`) {
		t.Fatalf("missing values should be null: %s", out)
	}
}

func TestWriteFileXLSX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "data.xlsx")
	if err := WriteFile(fixture(t), p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := excelize.OpenFile(p)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Data")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[0][0] != "x" || rows[1][0] != "1.5" || rows[3][1] != "Rome" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestWriteFileUnsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.parquet")
	if err := WriteFile(fixture(t), p); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatal("no file should be written")
	}
}
