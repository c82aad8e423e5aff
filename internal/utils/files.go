package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// WriteJSONFile marshals v as indented JSON and writes it atomically,
// creating the parent directory.
func WriteJSONFile(path string, v any) error {
	b, err := PrettyJSON(v)
	if err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return SafeWriteFile(path, append(b, '\n'))
}

// OutputPath derives an output file from an input file: dir/<stem><suffix><ext>.
// An empty dir keeps the input's directory; an empty ext keeps the input's.
func OutputPath(input, dir, suffix, ext string) string {
	base := filepath.Base(input)
	inExt := filepath.Ext(base)
	stem := strings.TrimSuffix(base, inExt)
	if ext == "" {
		ext = inExt
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+suffix+ext)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
