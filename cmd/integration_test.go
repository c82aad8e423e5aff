package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const ordersCSV = `f1,f2,city,target
1.0,10,north,0
1.2,11,south,0
0.8,,north,0
1.1,9,east,0
0.9,10,south,0
1.0,12,north,0
3.0,10,east,1
3.2,11,south,1
2.9,9,north,1
3.1,10,east,1
,12,south,1
2.8,11,north,1
`

// resetFlags restores every flag to its default so bound variables and
// Changed state do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execCmd(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(t, args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

// setupHome redirects HOME and writes the orders fixture into it.
func setupHome(t *testing.T) (home, data string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DATAPREP_QUIET_LOGS", "1")
	data = filepath.Join(home, "orders.csv")
	if err := os.WriteFile(data, []byte(ordersCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return home, data
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestCLI_ProcessWritesSelectedFeatures(t *testing.T) {
	home, data := setupHome(t)
	runCmd(t, "process", data)

	out := readFile(t, filepath.Join(home, "orders_processed.csv"))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "f1,f2,target" {
		t.Fatalf("header = %q, want f1,f2,target", lines[0])
	}
	if len(lines) != 13 {
		t.Fatalf("got %d lines, want 13", len(lines))
	}
	if strings.Contains(out, "NaN") {
		t.Fatalf("processed output still has missing values:\n%s", out)
	}
	in := strings.Split(strings.TrimSpace(ordersCSV), "\n")
	for i := 1; i < len(lines); i++ {
		want := in[i][strings.LastIndex(in[i], ",")+1:]
		got := lines[i][strings.LastIndex(lines[i], ",")+1:]
		if got != want {
			t.Errorf("row %d target = %q, want %q", i, got, want)
		}
	}
}

func TestCLI_ProcessResolvesRelativeInputInDataDir(t *testing.T) {
	home, _ := setupHome(t)
	t.Setenv("DATAPREP_DATA_DIR", home)
	t.Chdir(t.TempDir())
	runCmd(t, "process", "orders.csv")

	out := readFile(t, filepath.Join(home, "orders_processed.csv"))
	if !strings.HasPrefix(out, "f1,f2,target") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLI_ProcessMissingLabelKeepsColumns(t *testing.T) {
	home, data := setupHome(t)
	outPath := filepath.Join(home, "out", "result.json")
	runCmd(t, "process", data, "--label", "nope", "--output", outPath)

	out := readFile(t, outPath)
	for _, col := range []string{`"city"`, `"f1"`, `"target"`} {
		if !strings.Contains(out, col) {
			t.Errorf("output missing column %s", col)
		}
	}
}

func TestCLI_ProcessRejectsBadPolicy(t *testing.T) {
	_, data := setupHome(t)
	if err := execCmd(t, "process", data, "--policy", "sometimes"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestCLI_ConfigSetPersists(t *testing.T) {
	home, _ := setupHome(t)
	runCmd(t, "config", "set", "top_k", "4")
	saved := readFile(t, filepath.Join(home, ".dataprep", "config.yaml"))
	if !strings.Contains(saved, "top_k: 4") {
		t.Fatalf("config.yaml missing top_k: 4:\n%s", saved)
	}
	if err := execCmd(t, "config", "set", "failure_policy", "sometimes"); err == nil {
		t.Fatal("expected validation error")
	}
	if err := execCmd(t, "config", "set", "no_such_key", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}
	runCmd(t, "config", "show")
	if cfg == nil || cfg.TopK != 4 {
		t.Fatalf("reloaded config = %+v", cfg)
	}
}

func TestCLI_AnalyzeWritesMarkdown(t *testing.T) {
	home, data := setupHome(t)
	outPath := filepath.Join(home, "analysis.md")
	runCmd(t, "analyze", data, "--type", "all", "--group-by", "city", "--output", outPath)

	md := readFile(t, outPath)
	for _, want := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[GROUP-BY SUMMARY]", "[CORRELATIONS]"} {
		if !strings.Contains(md, want) {
			t.Errorf("analysis missing %s", want)
		}
	}
	if !strings.Contains(md, "mean 95% CI [") {
		t.Errorf("schema missing the mean confidence interval:\n%s", md)
	}
	t.Setenv("DATAPREP_CONFIDENCE_LEVEL", "0.9")
	runCmd(t, "analyze", data, "--type", "stats", "--output", outPath)
	if md = readFile(t, outPath); !strings.Contains(md, "mean 90% CI [") {
		t.Errorf("confidence_level not applied:\n%s", md)
	}
	if err := execCmd(t, "analyze", data, "--type", "forecast"); err == nil {
		t.Fatal("expected error for unknown analysis type")
	}
}

func TestCLI_TrainSavesToModelsDir(t *testing.T) {
	home, data := setupHome(t)
	runCmd(t, "train", data, "--type", "classification", "--model", "knn")

	saved := readFile(t, filepath.Join(home, ".dataprep", "models", "classification_knn.json"))
	for _, want := range []string{`"accuracy"`, `"features"`, `"target": "target"`, `"x": [`, `"y": [`} {
		if !strings.Contains(saved, want) {
			t.Errorf("model file missing %s", want)
		}
	}
	if err := execCmd(t, "train", data, "--type", "regression", "--model", "forest"); err == nil {
		t.Fatal("expected unknown model error")
	}
}

func TestCLI_InsightWritesJSON(t *testing.T) {
	home, data := setupHome(t)
	outPath := filepath.Join(home, "insights.json")
	runCmd(t, "insight", data, "--type", "pca,feature", "--output", outPath)

	out := readFile(t, outPath)
	for _, want := range []string{`"pca"`, `"feature_importance"`, `"anova_f"`} {
		if !strings.Contains(out, want) {
			t.Errorf("insights missing %s", want)
		}
	}
}

func TestCLI_ReportHTMLWithProcessing(t *testing.T) {
	home, data := setupHome(t)
	outPath := filepath.Join(home, "reports", "orders.html")
	runCmd(t, "report", data, "--type", "html", "--process", "--insights", "--output", outPath)

	html := readFile(t, outPath)
	for _, want := range []string{"<h2>Data Summary</h2>", "<h2>Preprocessing</h2>", "<h2>Analysis Results</h2>", "<h2>Insights</h2>"} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %s", want)
		}
	}
}

func TestCLI_ReportDefaultsToConfiguredDir(t *testing.T) {
	home, data := setupHome(t)
	reports := filepath.Join(home, "reports")
	t.Setenv("DATAPREP_REPORT_DIR", reports)
	runCmd(t, "report", data, "--type", "md")

	md := readFile(t, filepath.Join(reports, "orders_report.md"))
	if !strings.HasPrefix(md, "# Data Analysis Report") {
		t.Fatalf("unexpected report start: %q", md[:min(len(md), 40)])
	}
}

func TestCLI_LoadSample(t *testing.T) {
	home, _ := setupHome(t)
	outPath := filepath.Join(home, "sample.csv")
	runCmd(t, "load", "--sample", "50", "--output", outPath)

	lines := strings.Split(strings.TrimSpace(readFile(t, outPath)), "\n")
	if len(lines) != 51 {
		t.Fatalf("got %d lines, want 51", len(lines))
	}
	if !strings.Contains(lines[0], "feature1") || !strings.Contains(lines[0], "target") {
		t.Fatalf("header = %q", lines[0])
	}
	if err := execCmd(t, "load"); err == nil {
		t.Fatal("expected error without a source")
	}
}
