package testsupport

import (
	"path/filepath"
	"testing"

	"marquee/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config seeded with unique temp directories per
// test. Keys are fake, request spacing is off, and retries back off by 1ms.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.TMDB.APIKey = "test"
	cfgVal.TMDB.PolitenessMS = 0
	cfgVal.OMDb.APIKey = "test"
	cfgVal.OMDb.PolitenessMS = 0
	cfgVal.YouTube.APIKey = "test"
	cfgVal.YouTube.PolitenessMS = 0
	cfgVal.Retry.InitialBackoffMS = 1
	cfgVal.Retry.MaxBackoffMS = 1
	cfgVal.Enrichment.ReferenceYear = 2025

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithServiceURL points every lookup client at a single fake server. Paths
// are prefixed with /tmdb, /omdb and /youtube.
func WithServiceURL(base string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = base + "/tmdb"
		b.cfg.OMDb.BaseURL = base + "/omdb"
		b.cfg.YouTube.BaseURL = base + "/youtube"
	}
}

// WithMetadataProvider selects tmdb or omdb.
func WithMetadataProvider(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.MetadataProvider = name
	}
}

// WithCacheBackend selects the lookup cache backend.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// WithMemoryCache clears the cache directory so the memory store is used.
func WithMemoryCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.CacheDir = ""
	}
}
