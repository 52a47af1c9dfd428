package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"marquee/internal/film"
)

// WriteLineup encodes films as a JSON lineup under dir and returns its path.
func WriteLineup(t testing.TB, dir string, films []film.Record) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	data, err := json.MarshalIndent(films, "", "  ")
	if err != nil {
		t.Fatalf("encode lineup: %v", err)
	}
	path := filepath.Join(dir, "lineup-input.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
