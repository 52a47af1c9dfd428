package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marquee/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCredentialNeverEchoesKey(t *testing.T) {
	result := CheckCredential("TMDB API key", "secret-value", "TMDB_API_KEY")
	if !result.Passed || strings.Contains(result.Detail, "secret") {
		t.Fatalf("unexpected result: %+v", result)
	}
	missing := CheckCredential("TMDB API key", " ", "TMDB_API_KEY")
	if missing.Passed || !strings.Contains(missing.Detail, "TMDB_API_KEY") {
		t.Fatalf("unexpected result: %+v", missing)
	}
}

func TestRunAllGatesCredentialsByKind(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Enrichment.SkipTrailers = true
	cfg.Enrichment.MetadataProvider = "omdb"
	cfg.OMDb.APIKey = "key"

	results := RunAll(&cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	got := strings.Join(names, ",")
	if got != "Cache directory,Output directory,OMDb API key" {
		t.Fatalf("unexpected checks: %s", got)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	cfg.Paths.CacheDir = ""
	cfg.Enrichment.SkipTrailers = false
	failed := Failed(RunAll(&cfg))
	if len(failed) != 1 || failed[0].Name != "YouTube API key" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}
