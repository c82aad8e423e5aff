package preprocess

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

const tol = 1e-9

// exampleDataset builds 100 rows: a with 5 missing values, b with one extreme
// outlier at row 42, and a 0/1 target.
func exampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	r := rand.New(rand.NewPCG(7, 11))
	n := 100
	a := make([]float64, n)
	b := make([]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		cls := float64(i % 2)
		target[i] = cls
		a[i] = 2*cls + r.NormFloat64()
		b[i] = 10 + r.NormFloat64()
	}
	for _, i := range []int{3, 17, 29, 55, 80} {
		a[i] = math.NaN()
	}
	b[42] = 1e6
	ds, err := dataset.New("example",
		dataset.NewNumeric("a", a),
		dataset.NewNumeric("b", b),
		dataset.NewNumeric("target", target),
	)
	if err != nil {
		t.Fatalf("build dataset: %v", err)
	}
	return ds
}

func TestProcessExample(t *testing.T) {
	in := exampleDataset(t)
	orig := in.Clone()

	res, err := Process(in, "target")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Fallback {
		t.Fatalf("unexpected fallback: %v", res.Cause)
	}
	out := res.Data
	if out.Rows() != 100 {
		t.Fatalf("rows = %d, want 100", out.Rows())
	}
	if got := strings.Join(out.Names(), ","); got != "a,b,target" {
		t.Fatalf("columns = %s, want a,b,target", got)
	}
	if n := out.Column("a").MissingCount(); n != 0 {
		t.Fatalf("a still has %d missing values", n)
	}
	if !dataset.Equal(in, orig) {
		t.Fatal("input dataset was mutated")
	}

	// b's outlier sits on the upper IQR bound before scaling.
	clipRep := res.Step(StepClip)
	scaleRep := res.Step(StepScale)
	if clipRep == nil || scaleRep == nil {
		t.Fatalf("missing step reports: %+v", res.Steps)
	}
	bounds := clipRep.Bounds["b"]
	sc := scaleRep.Scales["b"]
	want := (bounds.Upper - sc.Mean) / sc.Std
	if got := out.Column("b").Floats[42]; math.Abs(got-want) > tol {
		t.Fatalf("b[42] = %v, want scaled upper bound %v", got, want)
	}
	if bounds.Upper >= 1e6 {
		t.Fatalf("upper bound %v did not exclude the outlier", bounds.Upper)
	}

	gotT, wantT := out.Column("target").Floats, orig.Column("target").Floats
	for i := range wantT {
		if gotT[i] != wantT[i] {
			t.Fatalf("target[%d] = %v, want %v", i, gotT[i], wantT[i])
		}
	}

	sel := res.Step(StepSelect)
	if sel == nil || len(sel.Scores) != 2 || len(sel.Dropped) != 0 {
		t.Fatalf("select report = %+v", sel)
	}
}

func TestProcessScalesWithoutLabel(t *testing.T) {
	ds, _ := dataset.New("nolabel",
		dataset.NewNumeric("x", []float64{1, 2, 3, 4, 5, 6}),
		dataset.NewNumeric("y", []float64{10, math.NaN(), 30, 20, 50, 40}),
		dataset.NewNumeric("flat", []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1}),
		dataset.NewCategorical("city", []string{"a", "", "b", "a", "", "c"}),
	)
	res, err := Process(ds, "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Fallback {
		t.Fatalf("unexpected fallback: %v", res.Cause)
	}
	if !res.Step(StepSelect).Skipped {
		t.Fatal("select should be skipped without a label")
	}
	out := res.Data
	if out.Cols() != 4 {
		t.Fatalf("cols = %d, want 4", out.Cols())
	}
	for _, name := range []string{"x", "y"} {
		m, s, err := stats.MeanStd(out.Column(name).Floats)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(m) > tol || math.Abs(s-1) > tol {
			t.Errorf("%s: mean=%v std=%v, want 0 and 1", name, m, s)
		}
	}
	for i, v := range out.Column("flat").Floats {
		if v != 0 {
			t.Fatalf("flat[%d] = %v, want 0", i, v)
		}
	}
	city := out.Column("city").Strings
	if city[1] != "Unknown" || city[4] != "Unknown" || city[0] != "a" {
		t.Fatalf("city = %v", city)
	}
}

func TestProcessSelectsTopK(t *testing.T) {
	n := 60
	r := rand.New(rand.NewPCG(1, 2))
	label := make([]string, n)
	for i := range label {
		label[i] = []string{"red", "green", "blue"}[i%3]
	}
	var cols []*dataset.Column
	// f00 separates the classes best, f11 worst.
	for j := 0; j < 12; j++ {
		vals := make([]float64, n)
		strength := float64(12 - j)
		for i := range vals {
			vals[i] = strength*float64(i%3) + r.NormFloat64()
		}
		cols = append(cols, dataset.NewNumeric(fmt.Sprintf("f%02d", j), vals))
	}
	cols = append(cols, dataset.NewCategorical("note", make([]string, n)))
	cols = append(cols, dataset.NewCategorical("species", label))
	ds, err := dataset.New("wide", cols...)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Process(ds, "species")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Fallback {
		t.Fatalf("unexpected fallback: %v", res.Cause)
	}
	names := res.Data.Names()
	if len(names) != 11 {
		t.Fatalf("columns = %v, want 10 features plus label", names)
	}
	if names[len(names)-1] != "species" {
		t.Fatalf("label not last: %v", names)
	}
	for i := 0; i < 10; i++ {
		if want := fmt.Sprintf("f%02d", i); names[i] != want {
			t.Fatalf("feature %d = %s, want %s (original order)", i, names[i], want)
		}
	}
	dropped := strings.Join(res.Step(StepSelect).Dropped, ",")
	if dropped != "f10,f11,note" {
		t.Fatalf("dropped = %s", dropped)
	}
	for i, v := range res.Data.Column("species").Strings {
		if v != label[i] {
			t.Fatalf("label[%d] = %q, want %q", i, v, label[i])
		}
	}
}

func TestProcessTopKCap(t *testing.T) {
	tests := []struct {
		features, k, want int
	}{
		{3, 10, 3},
		{12, 10, 10},
		{5, 2, 2},
	}
	for _, tt := range tests {
		n := 20
		var cols []*dataset.Column
		for j := 0; j < tt.features; j++ {
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = float64((i*(j+3))%7) + float64(i%2)*float64(j+1)
			}
			cols = append(cols, dataset.NewNumeric(fmt.Sprintf("c%d", j), vals))
		}
		lab := make([]float64, n)
		for i := range lab {
			lab[i] = float64(i % 2)
		}
		cols = append(cols, dataset.NewNumeric("target", lab))
		ds, err := dataset.New("cap", cols...)
		if err != nil {
			t.Fatal(err)
		}
		res, err := New(Options{TopK: tt.k}).Process(ds, "target")
		if err != nil || res.Fallback {
			t.Fatalf("features=%d: err=%v cause=%v", tt.features, err, res.Cause)
		}
		if got := res.Data.Cols() - 1; got != tt.want {
			t.Errorf("features=%d k=%d: kept %d, want %d", tt.features, tt.k, got, tt.want)
		}
	}
}

func TestProcessFallsBackAtomically(t *testing.T) {
	ds, _ := dataset.New("broken",
		dataset.NewNumeric("ok", []float64{1, 2, 3, 100}),
		dataset.NewNumeric("empty", []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}),
		dataset.NewNumeric("target", []float64{0, 1, 0, 1}),
	)
	orig := ds.Clone()
	res, err := Process(ds, "target")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Fallback || res.Cause == nil {
		t.Fatal("expected fallback")
	}
	if res.Cause.Step != StepImpute || res.Cause.Column != "empty" {
		t.Fatalf("cause = %v", res.Cause)
	}
	if !errors.Is(res.Cause, ErrAllMissing) {
		t.Fatalf("cause should wrap ErrAllMissing: %v", res.Cause)
	}
	if !dataset.Equal(res.Data, orig) {
		t.Fatal("fallback should return the original dataset")
	}
	if res.Data == ds {
		t.Fatal("fallback should return a copy, not the caller's dataset")
	}
}

func TestProcessBestEffortKeepsPartialWork(t *testing.T) {
	ds, _ := dataset.New("oneclass",
		dataset.NewNumeric("x", []float64{1, math.NaN(), 3, 4}),
		dataset.NewCategorical("target", []string{"yes", "yes", "yes", "yes"}),
	)
	res, err := New(Options{Policy: PolicyBestEffort}).Process(ds, "target")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Fallback || res.Cause.Step != StepSelect {
		t.Fatalf("expected select failure, got %v", res.Cause)
	}
	if !errors.Is(res.Cause, ErrDegenerateLabel) {
		t.Fatalf("cause should wrap ErrDegenerateLabel: %v", res.Cause)
	}
	if got := strings.Join(res.Data.Names(), ","); got != "x,target" {
		t.Fatalf("columns = %s", got)
	}
	m, s, _ := stats.MeanStd(res.Data.Column("x").Floats)
	if math.Abs(m) > tol || math.Abs(s-1) > tol {
		t.Fatalf("x should be scaled: mean=%v std=%v", m, s)
	}

	atomic, _ := Process(ds, "target")
	if !dataset.Equal(atomic.Data, ds) {
		t.Fatal("atomic policy should return the input")
	}
}

func TestProcessLabelMissingValues(t *testing.T) {
	ds, _ := dataset.New("gaps",
		dataset.NewNumeric("x", []float64{1, 2, 3, 4}),
		dataset.NewNumeric("target", []float64{0, math.NaN(), 1, 1}),
	)
	res, _ := Process(ds, "target")
	if !res.Fallback || !errors.Is(res.Cause, ErrLabelMissing) {
		t.Fatalf("expected ErrLabelMissing, got %v", res.Cause)
	}
}

func TestProcessInfiniteValuesFail(t *testing.T) {
	ds, _ := dataset.New("inf", dataset.NewNumeric("x", []float64{1, math.Inf(1), 3}))
	res, _ := Process(ds, "")
	if !res.Fallback || !errors.Is(res.Cause, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", res.Cause)
	}
}

func TestProcessMissingLabelColumnIsSkipped(t *testing.T) {
	ds, _ := dataset.New("nolabel",
		dataset.NewNumeric("x", []float64{1, 2, 3, 4}),
		dataset.NewNumeric("y", []float64{4, 3, 2, 1}),
	)
	res, err := Process(ds, "target")
	if err != nil || res.Fallback {
		t.Fatalf("err=%v cause=%v", err, res.Cause)
	}
	if res.LabelUsed {
		t.Fatal("LabelUsed should be false")
	}
	if res.Data.Cols() != 2 || len(res.Notes) == 0 {
		t.Fatalf("cols=%d notes=%v", res.Data.Cols(), res.Notes)
	}
}

func TestProcessEmptyAndMalformed(t *testing.T) {
	empty := &dataset.Dataset{Name: "empty"}
	res, err := Process(empty, "target")
	if err != nil || res.Fallback || res.Data.Cols() != 0 {
		t.Fatalf("empty: res=%+v err=%v", res, err)
	}

	norows, _ := dataset.New("norows", dataset.NewNumeric("x", []float64{}))
	res, err = Process(norows, "")
	if err != nil || res.Data.Rows() != 0 || res.Data.Cols() != 1 {
		t.Fatalf("no rows: res=%+v err=%v", res, err)
	}

	bad := &dataset.Dataset{Columns: []*dataset.Column{
		dataset.NewNumeric("x", []float64{1, 2}),
		dataset.NewNumeric("y", []float64{1}),
	}}
	if _, err := Process(bad, ""); !errors.Is(err, dataset.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestClipBoundsHold(t *testing.T) {
	ds, _ := dataset.New("clip",
		dataset.NewNumeric("x", []float64{-50, 1, 2, 2, 3, 3, 4, 5, 90}),
		dataset.NewNumeric("y", []float64{5, 5, 5, 5, 5, 5, 5, 5, 5}),
	)
	rep, err := clip(ds, DefaultIQRMultiplier)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Changed != 2 {
		t.Fatalf("changed = %d, want 2", rep.Changed)
	}
	for _, c := range ds.Columns {
		b := rep.Bounds[c.Name]
		for i, v := range c.Floats {
			if v < b.Lower || v > b.Upper {
				t.Fatalf("%s[%d] = %v outside [%v, %v]", c.Name, i, v, b.Lower, b.Upper)
			}
		}
	}
}

func TestRankTopKOrdering(t *testing.T) {
	scores := []FeatureScore{
		{Column: "a", F: math.NaN()},
		{Column: "b", F: 3},
		{Column: "c", F: math.Inf(1)},
		{Column: "d", F: 3},
		{Column: "e", F: 1},
	}
	rankTopK(scores, 3)
	var kept []string
	for _, s := range scores {
		if s.Kept {
			kept = append(kept, s.Column)
		}
	}
	if got := strings.Join(kept, ","); got != "b,c,d" {
		t.Fatalf("kept = %s, want b,c,d", got)
	}

	rankTopK(scores[:1], 5)
	if !scores[0].Kept {
		t.Fatal("a lone NaN score should still be kept when k covers it")
	}
}

func TestFeatureScoreJSONHandlesNonFinite(t *testing.T) {
	b, err := json.Marshal([]FeatureScore{{Column: "x", F: math.Inf(1), P: 0}, {Column: "y", F: math.NaN(), P: math.NaN()}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"f":null`) {
		t.Fatalf("json = %s", b)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyAtomic, "ATOMIC": PolicyAtomic, "best_effort": PolicyBestEffort} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestProcessConcurrentCalls(t *testing.T) {
	in := exampleDataset(t)
	p := New(DefaultOptions())
	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Process(in, "target")
			if err != nil {
				t.Errorf("Process: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(results); i++ {
		if results[i] == nil || !dataset.Equal(results[0].Data, results[i].Data) {
			t.Fatalf("result %d differs", i)
		}
		if results[i].RunID == results[0].RunID {
			t.Fatal("run IDs should be unique")
		}
	}
}
