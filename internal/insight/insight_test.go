package insight

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

// twoBlobs builds two tight clusters far apart plus a noisy third feature.
func twoBlobs(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	a, b, noise := make([]float64, 2*n), make([]float64, 2*n), make([]float64, 2*n)
	label := make([]float64, 2*n)
	for i := 0; i < 2*n; i++ {
		off := 0.0
		if i >= n {
			off = 10
			label[i] = 1
		}
		a[i] = off + rng.NormFloat64()*0.1
		b[i] = off + rng.NormFloat64()*0.1
		noise[i] = rng.NormFloat64()
	}
	ds, err := dataset.New("blobs",
		dataset.NewNumeric("a", a),
		dataset.NewNumeric("b", b),
		dataset.NewNumeric("noise", noise),
		dataset.NewNumeric("target", label),
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestPCAExplainedVarianceOrdered(t *testing.T) {
	X := [][]float64{}
	for i := 0; i < 50; i++ {
		x := float64(i)
		X = append(X, []float64{x, 2*x + 0.01*float64(i%3), float64(i % 2)})
	}
	res, err := PCA(X, []string{"x", "y", "z"}, 2)
	if err != nil {
		t.Fatalf("PCA: %v", err)
	}
	if res.Components != 2 || len(res.Explained) != 2 || len(res.Projection) != 50 || len(res.Projection[0]) != 2 {
		t.Fatalf("shape: %+v", res.Explained)
	}
	if res.Explained[0] < res.Explained[1] || res.Explained[0] < 0.99 {
		t.Fatalf("explained = %v", res.Explained)
	}
	// Projections are centered.
	sum := 0.0
	for _, p := range res.Projection {
		sum += p[0]
	}
	if math.Abs(sum) > 1e-6 {
		t.Fatalf("projection mean = %v", sum/50)
	}
	if len(res.Loadings) != 3 || len(res.Loadings[0]) != 2 {
		t.Fatalf("loadings = %v", res.Loadings)
	}
}

func TestDBSCANTwoBlobs(t *testing.T) {
	X := [][]float64{}
	for i := 0; i < 6; i++ {
		X = append(X, []float64{float64(i) * 0.1, 0})
	}
	for i := 0; i < 6; i++ {
		X = append(X, []float64{10 + float64(i)*0.1, 0})
	}
	X = append(X, []float64{50, 50})
	res, err := DBSCAN(X, 0.5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Clusters != 2 || res.Noise != 1 {
		t.Fatalf("clusters=%d noise=%d labels=%v", res.Clusters, res.Noise, res.Labels)
	}
	if res.Labels[0] != 0 || res.Labels[6] != 1 || res.Labels[12] != Noise {
		t.Fatalf("labels = %v", res.Labels)
	}
	if res.Sizes[0] != 6 || res.Sizes[1] != 6 {
		t.Fatalf("sizes = %v", res.Sizes)
	}
}

func TestAnomaliesMapRows(t *testing.T) {
	X := [][]float64{{1}, {2}, {1}, {2}, {1}, {100}}
	res, err := Anomalies(X, []int{0, 2, 3, 4, 5, 7}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Flagged) != 1 || res.Flagged[0] != 7 {
		t.Fatalf("flagged = %v", res.Flagged)
	}
	if math.Abs(res.Contamination-1.0/6) > 1e-12 {
		t.Fatalf("contamination = %v", res.Contamination)
	}
}

func TestFeatureImportanceANOVA(t *testing.T) {
	ds := twoBlobs(t, 20)
	feats, label := features(ds, "target")
	imp, err := FeatureImportance(ds, feats, label)
	if err != nil {
		t.Fatal(err)
	}
	if len(imp) != 3 || imp[2].Feature != "noise" || imp[0].Method != MethodANOVA {
		t.Fatalf("importance = %+v", imp)
	}
}

func TestFeatureImportancePearson(t *testing.T) {
	ds, _ := dataset.New("r",
		dataset.NewNumeric("x", []float64{1, 2, 3, 4, 5}),
		dataset.NewNumeric("flat", []float64{1, 1, 1, 1, 1}),
		dataset.NewNumeric("y", []float64{1.5, 2.5, 3.5, 4.5, 5.7}),
	)
	feats, label := features(ds, "y")
	imp, err := FeatureImportance(ds, feats, label)
	if err != nil {
		t.Fatal(err)
	}
	if imp[0].Feature != "x" || imp[0].Method != MethodPearson || imp[0].Score < 0.99 || imp[1].Score != 0 {
		t.Fatalf("importance = %+v", imp)
	}
}

func TestGenerateAll(t *testing.T) {
	ds := twoBlobs(t, 10)
	ds.Columns[0].Floats[4] = math.NaN()
	res, err := Generate(ds, AllKinds, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Features) != 3 || len(res.UsedRows) != 19 {
		t.Fatalf("features=%v used=%d", res.Features, len(res.UsedRows))
	}
	if res.PCA == nil || res.Clusters == nil || res.Anomalies == nil || len(res.Importance) != 3 {
		t.Fatalf("missing sections: %+v", res)
	}
	if len(res.Notes) != 1 {
		t.Fatalf("notes = %v", res.Notes)
	}
	if _, err := json.Marshal(res); err != nil {
		t.Fatalf("marshal: %v", err)
	}

	opt := DefaultOptions()
	opt.Label = "absent"
	res, _ = Generate(ds, []Kind{KindFeature}, opt)
	if res.Importance != nil || len(res.Notes) != 2 {
		t.Fatalf("expected skipped importance: %v", res.Notes)
	}
}

func TestParseKinds(t *testing.T) {
	if k, err := ParseKinds("pca, feature"); err != nil || len(k) != 2 || k[1] != KindFeature {
		t.Fatalf("ParseKinds = %v, %v", k, err)
	}
	if k, _ := ParseKinds("all"); len(k) != 4 {
		t.Fatalf("all = %v", k)
	}
	if _, err := ParseKinds("tsne"); err == nil {
		t.Fatal("expected error")
	}
}
