package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	cacheDir   string
	outputDir  string
	server     *httptest.Server
	requests   atomic.Int64
}

type testConfigOptions struct {
	youtubeKey string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	return setupCLITestEnvWith(t, testConfigOptions{youtubeKey: "yt-test-key"})
}

func setupCLITestEnvWith(t *testing.T, opts testConfigOptions) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"TMDB_API_KEY", "OMDB_API_KEY", "YOUTUBE_API_KEY"} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		cacheDir:   filepath.Join(base, "cache"),
		outputDir:  filepath.Join(base, "out"),
	}
	env.server = httptest.NewServer(http.HandlerFunc(env.serve))
	t.Cleanup(env.server.Close)

	content := fmt.Sprintf(`[paths]
cache_dir = %q
output_dir = %q

[enrichment]
workers = 2
reference_year = 2025

[retry]
max_rate_retries = 0
max_unavailable_retries = 0
initial_backoff_ms = 1
max_backoff_ms = 1

[tmdb]
api_key = "tmdb-test-key"
base_url = %q
politeness_ms = 0

[youtube]
api_key = %q
base_url = %q
politeness_ms = 0

[logging]
level = "error"

[export]
formats = ["json", "csv", "markdown"]
base_name = "lineup"
`, env.cacheDir, env.outputDir, env.server.URL+"/tmdb", opts.youtubeKey, env.server.URL+"/youtube")
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// serve fakes TMDB and YouTube. Only "anora" resolves; everything else has
// no results.
func (e *cliTestEnv) serve(w http.ResponseWriter, r *http.Request) {
	e.requests.Add(1)
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()
	switch r.URL.Path {
	case "/tmdb/search/movie":
		if q.Get("query") == "anora" {
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1064213,"title":"Anora","release_date":"2024-05-21"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
	case "/tmdb/movie/1064213":
		_, _ = w.Write([]byte(`{"id":1064213,"title":"Anora","release_date":"2024-05-21","imdb_id":"tt28607951","production_companies":[{"name":"Cre Film"},{"name":"FilmNation Entertainment"}]}`))
	case "/youtube/search":
		if strings.HasPrefix(q.Get("q"), "anora ") {
			_, _ = w.Write([]byte(`{"items":[{"id":{"videoId":"p1HxPvQaVzM"},"snippet":{"title":"Anora (2024) Official Trailer","channelTitle":"NEON"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	default:
		http.NotFound(w, r)
	}
}

func (e *cliTestEnv) writeLineup(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "lineup-input.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write lineup: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
