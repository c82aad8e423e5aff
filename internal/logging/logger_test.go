package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitJSONAndFile(t *testing.T) {
	var buf bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "errors.log")
	if err := Init(Config{Level: "info", Format: "json", Output: &buf, File: logPath}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer func() { _ = Init(DefaultConfig()) }()

	Debug().Msg("hidden")
	Info().Str("step", "impute").Msg("step done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev["message"] != "step done" || ev["step"] != "impute" {
		t.Fatalf("unexpected event: %v", ev)
	}
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "step done") {
		t.Fatalf("log file missing event: %q", string(b))
	}
}
