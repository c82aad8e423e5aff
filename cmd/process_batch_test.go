package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProcessBatch_SameBasenameDoesNotOverwrite(t *testing.T) {
	home, _ := setupHome(t)

	// Prepare two CSV files with the same basename in different directories
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	a := "x,y,target\n1,5,0\n2,6,0\n3,7,1\n4,8,1\n"
	b := "x,y,target\n10,5,0\n20,,0\n30,7,1\n40,8,1\n"
	if err := os.WriteFile(filepath.Join(d1, "metrics.csv"), []byte(a), 0o644); err != nil {
		t.Fatalf("write d1: %v", err)
	}
	if err := os.WriteFile(filepath.Join(d2, "metrics.csv"), []byte(b), 0o644); err != nil {
		t.Fatalf("write d2: %v", err)
	}

	outDir := filepath.Join(home, "out")
	runCmd(t, "process-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "--workers", "2", "--quiet")

	first := readFile(t, filepath.Join(outDir, "metrics_processed.csv"))
	second := readFile(t, filepath.Join(outDir, "metrics_processed__2.csv"))
	if first == second {
		t.Fatal("outputs should differ for different inputs")
	}
	for _, s := range []string{first, second} {
		if !strings.HasPrefix(s, "x,y,target") {
			t.Fatalf("unexpected header in %q", s)
		}
	}
}

func TestProcessBatch_NoMatches(t *testing.T) {
	home, _ := setupHome(t)
	err := execCmd(t, "process-batch", filepath.Join(home, "missing", "*.csv"))
	if err == nil || !strings.Contains(err.Error(), "no input files matched") {
		t.Fatalf("err = %v", err)
	}
}

func TestExpandInputsDedupAndSort(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.csv", "a.csv"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x\n1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got := expandInputs([]string{filepath.Join(dir, "*.csv"), filepath.Join(dir, "a.csv")}, "")
	want := []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandInputsFallsBackToDataDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("x\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := expandInputs([]string{"sales.csv", "nowhere-*.csv"}, dir)
	if len(got) != 1 || got[0] != filepath.Join(dir, "sales.csv") {
		t.Fatalf("got %v", got)
	}
}
